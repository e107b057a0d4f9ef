// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sandboxtest assembles tiny wasm guests for tests. Modules are
// emitted directly in the wasm binary format, so fixtures need no compiler
// and every byte is accounted for in the builder.
package sandboxtest

import (
	"github.com/luxfi/hookvm/sandbox"
)

// Import declares one host function a guest imports from the sandbox's host
// module. Every parameter is an i32 and the result is an i64, matching the
// sandbox's binding convention. Imported functions are indexed in
// declaration order starting at zero; the guest's own function follows them.
type Import struct {
	Name      string
	NumParams int
}

const (
	valI32 = 0x7F
	valI64 = 0x7E

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	descFunc   = 0x00
	descMemory = 0x02

	opUnreachable = 0x00
	opLoop        = 0x03
	opEnd         = 0x0B
	opBr          = 0x0C
	opCall        = 0x10
	opDrop        = 0x1A
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32WrapI64  = 0xA7

	blockTypeEmpty = 0x40
)

// Module assembles a guest that imports the given host functions, owns one
// page of linear memory initialized with data at offset zero, and exports
// hook(i32) -> i64 with the given body. The body must leave one i64 on the
// stack; the terminating end opcode is appended here.
func Module(imports []Import, data []byte, body ...[]byte) []byte {
	return assemble("hook", true, imports, data, body)
}

// ModuleExporting is Module with a custom name for the exported entry point.
func ModuleExporting(entry string, imports []Import, data []byte, body ...[]byte) []byte {
	return assemble(entry, true, imports, data, body)
}

// ModuleNoMemory is Module without a linear memory, for exercising hosts
// against guests that have nothing to point into.
func ModuleNoMemory(imports []Import, body ...[]byte) []byte {
	return assemble("hook", false, imports, nil, body)
}

// I32Const pushes v.
func I32Const(v int32) []byte {
	return append([]byte{opI32Const}, sleb(int64(v))...)
}

// I64Const pushes v.
func I64Const(v int64) []byte {
	return append([]byte{opI64Const}, sleb(v)...)
}

// I32WrapI64 truncates the i64 on top of the stack to an i32.
func I32WrapI64() []byte {
	return []byte{opI32WrapI64}
}

// Call invokes the function at index.
func Call(index int) []byte {
	return append([]byte{opCall}, uleb(uint64(index))...)
}

// Drop pops the top of the stack.
func Drop() []byte {
	return []byte{opDrop}
}

// Unreachable traps.
func Unreachable() []byte {
	return []byte{opUnreachable}
}

// LoopForever spins until the runtime tears the guest down.
func LoopForever() []byte {
	return []byte{opLoop, blockTypeEmpty, opBr, 0x00, opEnd}
}

func assemble(entry string, withMemory bool, imports []Import, data []byte, body [][]byte) []byte {
	module := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// One function type per import plus the entry's own, in that order.
	// Duplicates are legal and keep type indices equal to function indices.
	types := uleb(uint64(len(imports) + 1))
	for _, imp := range imports {
		types = append(types, 0x60)
		types = append(types, uleb(uint64(imp.NumParams))...)
		for i := 0; i < imp.NumParams; i++ {
			types = append(types, valI32)
		}
		types = append(types, 0x01, valI64)
	}
	types = append(types, 0x60, 0x01, valI32, 0x01, valI64)
	module = append(module, section(sectionType, types)...)

	if len(imports) > 0 {
		imps := uleb(uint64(len(imports)))
		for i, imp := range imports {
			imps = append(imps, name(sandbox.HostModuleName)...)
			imps = append(imps, name(imp.Name)...)
			imps = append(imps, descFunc)
			imps = append(imps, uleb(uint64(i))...)
		}
		module = append(module, section(sectionImport, imps)...)
	}

	funcs := uleb(1)
	funcs = append(funcs, uleb(uint64(len(imports)))...)
	module = append(module, section(sectionFunction, funcs)...)

	if withMemory {
		// One page, no declared maximum.
		module = append(module, section(sectionMemory, []byte{0x01, 0x00, 0x01})...)
	}

	numExports := 1
	if withMemory {
		numExports = 2
	}
	exports := uleb(uint64(numExports))
	exports = append(exports, name(entry)...)
	exports = append(exports, descFunc)
	exports = append(exports, uleb(uint64(len(imports)))...)
	if withMemory {
		exports = append(exports, name("memory")...)
		exports = append(exports, descMemory, 0x00)
	}
	module = append(module, section(sectionExport, exports)...)

	fn := []byte{0x00} // no locals
	for _, part := range body {
		fn = append(fn, part...)
	}
	fn = append(fn, opEnd)
	codes := uleb(1)
	codes = append(codes, uleb(uint64(len(fn)))...)
	codes = append(codes, fn...)
	module = append(module, section(sectionCode, codes)...)

	if len(data) > 0 {
		seg := []byte{0x00, opI32Const, 0x00, opEnd} // active, memory 0, offset 0
		seg = append(seg, uleb(uint64(len(data)))...)
		seg = append(seg, data...)
		segs := uleb(1)
		segs = append(segs, seg...)
		module = append(module, section(sectionData, segs)...)
	}
	return module
}

func section(id byte, contents []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(contents)))...)
	return append(out, contents...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func uleb(v uint64) []byte {
	var out []byte
	for v >= 0x80 {
		out = append(out, byte(v)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
