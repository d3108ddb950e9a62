package mocks

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

// named copies a function type with the Go parameter names, optionally
// dropping const qualifiers everywhere
func named(f *bindgen.FuncSig, stripConst bool) *models.CType {
	fn := cloneType(f.Decl, stripConst)
	for i := range fn.Params {
		if i < len(f.Params) {
			fn.Params[i].Name = f.Params[i].Name
		}
	}
	return fn
}

func cloneType(t *models.CType, stripConst bool) *models.CType {
	if t == nil {
		return nil
	}
	c := *t
	if stripConst {
		c.Const = false
	}
	c.Elem = cloneType(t.Elem, stripConst)
	if len(t.Params) > 0 {
		c.Params = make([]models.CParam, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = models.CParam{Name: p.Name, Type: cloneType(p.Type, stripConst)}
		}
	}
	return &c
}

func pointerTo(t *models.CType) *models.CType {
	return &models.CType{Kind: models.CPointer, Elem: t}
}

func voidPointer() *models.CType {
	return pointerTo(&models.CType{Kind: models.CVoid})
}

// slotType is the C type of the exported trampoline: the function's own
// type with every erased parameter or result turned into void *
func slotType(f *bindgen.FuncSig, stripConst bool) *models.CType {
	fn := named(f, stripConst)
	for i, p := range f.Params {
		if i < len(fn.Params) && p.Type.Erased() {
			fn.Params[i].Type = voidPointer()
		}
	}
	if f.Result != nil && f.Result.Erased() {
		fn.Elem = voidPointer()
	}
	return fn
}

// externs declares the slot and trampoline symbols for the Go preamble.
// cgo writes exported prototypes without qualifiers, so const is dropped
// to keep both declarations compatible. Function pointers are void *.
func (u *unit) externs() []string {
	var lines []string
	for _, f := range u.funcs {
		sym := u.symbol(f)
		fn := slotType(f, true)
		lines = append(lines,
			"typedef "+pointerTo(fn).Spelling(sym+"_fn")+";",
			"extern "+sym+"_fn "+sym+"_slot;",
			"extern "+fn.Spelling(sym)+";",
		)
	}
	return lines
}

// shim defines every function of the header in C, forwarding through a
// slot the interception package fills in at init. The header is included
// relative to dir, where the shim is written.
func (u *unit) shim(dir string) []byte {
	include := u.header.Abs
	if rel, err := filepath.Rel(dir, u.header.Abs); err == nil {
		include = rel
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "/* Code generated by foreigntest from %s. DO NOT EDIT. */\n\n", u.header.Rel)
	b.WriteString("#include <stdio.h>\n#include <stdlib.h>\n")
	fmt.Fprintf(&b, "#include %s\n", strconv.Quote(filepath.ToSlash(include)))

	for _, f := range u.funcs {
		sym := u.symbol(f)
		fn := named(f, false)
		args := ""
		for i, p := range f.Params {
			if i > 0 {
				args += ", "
			}
			if p.Type.Erased() {
				args += "(void *)"
			}
			args += p.Name
		}

		b.WriteString("\n")
		fmt.Fprintf(&b, "typedef %s;\n", pointerTo(slotType(f, false)).Spelling(sym+"_fn"))
		fmt.Fprintf(&b, "%s_fn %s_slot;\n\n", sym, sym)
		fmt.Fprintf(&b, "%s\n{\n", fn.Spelling(f.CName))
		fmt.Fprintf(&b, "\tif (%s_slot == NULL) {\n", sym)
		fmt.Fprintf(&b, "\t\tfprintf(stderr, \"foreigntest: %s called before package %s was initialised\\n\");\n", f.CName, u.pkg)
		b.WriteString("\t\tabort();\n\t}\n")
		if f.Result == nil {
			fmt.Fprintf(&b, "\t%s_slot(%s);\n", sym, args)
		} else if f.Result.Erased() {
			fmt.Fprintf(&b, "\treturn (%s)%s_slot(%s);\n", fn.Elem.Spelling(""), sym, args)
		} else {
			fmt.Fprintf(&b, "\treturn %s_slot(%s);\n", sym, args)
		}
		b.WriteString("}\n")
	}
	return b.Bytes()
}
