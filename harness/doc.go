// Package harness exercises the example C project in testdata/project
// through the generated packages. The tests need the generated tree and a C
// toolchain, so they are behind the foreigntest build tag:
//
//	go generate ./harness
//	go test -tags foreigntest ./harness
package harness

//go:generate go run ../cmd/foreigntest -manifest ../foreigntest.toml -quiet
