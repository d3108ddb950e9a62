// Package common provides configuration loading, logging and process-level helpers.
package common

// DefaultLibName is the static library name generated packages link with
const DefaultLibName = "foreigntest"

// Output directory names under the generation root
const (
	BindingsDir = "bindings"
	MocksDir    = "mocks"
	NativeDir   = "native"
	IndexFile   = "foreigntest.artifacts.yaml"
)
