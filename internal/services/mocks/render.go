package mocks

import (
	"fmt"
	"strings"

	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

// unit is one interception package being assembled
type unit struct {
	header models.HeaderFile
	pkg    string
	prefix string // C symbol prefix for shim slots and trampolines
	funcs  []*bindgen.FuncSig
	native bool // a source with the header's stem is compiled
}

func (u *unit) decls() []string {
	out := []string{u.iface(), u.state(), u.use()}
	for _, f := range u.funcs {
		out = append(out, u.forward(f))
	}
	out = append(out, u.mock()...)
	if u.native {
		out = append(out, u.nativeImpl())
	} else if len(u.funcs) > 0 {
		out = append(out, u.trampolines()...)
	}
	return out
}

func (u *unit) iface() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Functions is the set of functions declared by %s.\n", u.header.Rel)
	b.WriteString("type Functions interface {\n")
	for _, f := range u.funcs {
		fmt.Fprintf(&b, "\t%s(%s)%s\n", f.GoName, f.GoParams(), f.GoResult())
	}
	b.WriteString("}\n")
	return b.String()
}

func (u *unit) state() string {
	if u.native {
		return "var (\n\tmu      sync.RWMutex\n\tcurrent Functions = Native{}\n)\n"
	}
	return "var (\n\tmu      sync.RWMutex\n\tcurrent Functions\n)\n"
}

func (u *unit) use() string {
	return fmt.Sprintf(`// Use installs f for every call made through this package and returns a
// function restoring the previous implementation.
func Use(f Functions) (restore func()) {
	mu.Lock()
	prev := current
	current = f
	mu.Unlock()
	return func() {
		mu.Lock()
		current = prev
		mu.Unlock()
	}
}

// Current returns the installed implementation.
func Current() Functions {
	mu.RLock()
	f := current
	mu.RUnlock()
	if f == nil {
		panic(%q)
	}
	return f
}
`, u.pkg+": no implementation installed for "+u.header.Rel+"; call Use first")
}

// forward is the package-level function calling the installed implementation
func (u *unit) forward(f *bindgen.FuncSig) string {
	call := fmt.Sprintf("Current().%s(%s)", f.GoName, strings.Join(f.ArgNames(), ", "))
	if f.Result != nil {
		call = "return " + call
	}
	return fmt.Sprintf("// %s calls %s through the installed implementation.\nfunc %s(%s)%s {\n\t%s\n}\n",
		f.GoName, f.CName, f.GoName, f.GoParams(), f.GoResult(), call)
}

func (u *unit) mock() []string {
	out := []string{`// MockFunctions is a mock of the Functions interface.
type MockFunctions struct {
	ctrl     *gomock.Controller
	recorder *MockFunctionsMockRecorder
}

// MockFunctionsMockRecorder is the mock recorder for MockFunctions.
type MockFunctionsMockRecorder struct {
	mock *MockFunctions
}

// NewMockFunctions creates a new mock instance.
func NewMockFunctions(ctrl *gomock.Controller) *MockFunctions {
	mock := &MockFunctions{ctrl: ctrl}
	mock.recorder = &MockFunctionsMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockFunctions) EXPECT() *MockFunctionsMockRecorder {
	return m.recorder
}
`}
	for _, f := range u.funcs {
		out = append(out, mockMethod(f), recorderMethod(f))
	}
	return out
}

func mockArgs(f *bindgen.FuncSig) []string {
	args := make([]string, len(f.Params))
	for i := range f.Params {
		args[i] = fmt.Sprintf("arg%d", i)
	}
	return args
}

func mockMethod(f *bindgen.FuncSig) string {
	args := mockArgs(f)
	params := make([]string, len(args))
	for i, p := range f.Params {
		params[i] = args[i] + " " + p.Type.Go
	}
	callArgs := ""
	if len(args) > 0 {
		callArgs = ", " + strings.Join(args, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s mocks base method.\n", f.GoName)
	fmt.Fprintf(&b, "func (m *MockFunctions) %s(%s)%s {\n", f.GoName, strings.Join(params, ", "), f.GoResult())
	b.WriteString("\tm.ctrl.T.Helper()\n")
	if f.Result == nil {
		fmt.Fprintf(&b, "\tm.ctrl.Call(m, %q%s)\n", f.GoName, callArgs)
	} else {
		fmt.Fprintf(&b, "\tret := m.ctrl.Call(m, %q%s)\n", f.GoName, callArgs)
		fmt.Fprintf(&b, "\tret0, _ := ret[0].(%s)\n", f.Result.Go)
		b.WriteString("\treturn ret0\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func recorderMethod(f *bindgen.FuncSig) string {
	args := mockArgs(f)
	params := ""
	if len(args) > 0 {
		params = strings.Join(args, ", ") + " any"
	}
	callArgs := ""
	if len(args) > 0 {
		callArgs = ", " + strings.Join(args, ", ")
	}
	return fmt.Sprintf(`// %[1]s indicates an expected call of %[1]s.
func (mr *MockFunctionsMockRecorder) %[1]s(%[2]s) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, %[3]q, reflect.TypeOf((*MockFunctions)(nil).%[1]s)%[4]s)
}
`, f.GoName, params, f.GoName, callArgs)
}

// nativeImpl calls straight into the compiled C source
func (u *unit) nativeImpl() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Native calls the compiled C implementation of %s.\n", u.header.Rel)
	b.WriteString("type Native struct{}\n")
	for _, f := range u.funcs {
		fmt.Fprintf(&b, "\nfunc (Native) %s(%s)%s {\n%s}\n", f.GoName, f.GoParams(), f.GoResult(), f.CallBody())
	}
	return b.String()
}

func (u *unit) symbol(f *bindgen.FuncSig) string {
	return u.prefix + "_" + f.CName
}

// trampolines are exported to C; the shim reaches them through a slot
// that init fills in
func (u *unit) trampolines() []string {
	var out []string
	var init strings.Builder
	init.WriteString("func init() {\n")
	for _, f := range u.funcs {
		sym := u.symbol(f)
		out = append(out, trampoline(sym, f))
		fmt.Fprintf(&init, "\tC.%[1]s_slot = C.%[1]s_fn(C.%[1]s)\n", sym)
	}
	init.WriteString("}\n")
	return append(out, init.String())
}

func trampoline(sym string, f *bindgen.FuncSig) string {
	params := make([]string, len(f.Params))
	args := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + " " + p.Type.ExportC()
		args[i] = p.Type.ToGo(p.Name)
	}
	result := ""
	if f.Result != nil {
		result = " " + f.Result.ExportC()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "//export %s\n", sym)
	fmt.Fprintf(&b, "func %s(%s)%s {\n", sym, strings.Join(params, ", "), result)
	call := fmt.Sprintf("Current().%s(%s)", f.GoName, strings.Join(args, ", "))
	if f.Result == nil {
		fmt.Fprintf(&b, "\t%s\n", call)
	} else {
		fmt.Fprintf(&b, "\tret := %s\n", call)
		if f.Result.Erased() {
			b.WriteString("\treturn unsafe.Pointer(ret)\n")
		} else {
			fmt.Fprintf(&b, "\treturn %s\n", f.Result.ToC("ret"))
		}
	}
	b.WriteString("}\n")
	return b.String()
}
