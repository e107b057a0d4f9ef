// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
)

// HostModuleName is the import namespace guests declare host functions under.
const HostModuleName = "env"

var (
	_ Runtime  = (*wazeroRuntime)(nil)
	_ Instance = (*wazeroInstance)(nil)
	_ Memory   = (*wazeroMemory)(nil)
)

// wazeroRuntime builds one isolated wazero runtime per instantiation, so host
// bindings and guest state never outlive an invocation. Compiled modules are
// shared across instantiations through a compilation cache keyed by content.
type wazeroRuntime struct {
	compilationCache wazero.CompilationCache
	maxGuestPages    uint32
}

// NewRuntime returns a wazero-backed [Runtime]. maxGuestPages bounds each
// instance's linear memory in 64 KiB pages; zero leaves the engine default.
func NewRuntime(maxGuestPages uint32) Runtime {
	return &wazeroRuntime{
		compilationCache: wazero.NewCompilationCache(),
		maxGuestPages:    maxGuestPages,
	}
}

func (r *wazeroRuntime) Instantiate(ctx context.Context, code []byte, hostFns []HostFunc) (Instance, error) {
	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(r.compilationCache)
	if r.maxGuestPages > 0 {
		cfg = cfg.WithMemoryLimitPages(r.maxGuestPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, cfg)

	builder := runtime.NewHostModuleBuilder(HostModuleName)
	for _, hostFn := range hostFns {
		params := make([]api.ValueType, hostFn.NumParams)
		for i := range params {
			params[i] = api.ValueTypeI32
		}
		fn := hostFn.Fn
		numParams := hostFn.NumParams
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				args := make([]uint32, numParams)
				for i := range args {
					args[i] = uint32(stack[i])
				}
				ret := fn(ctx, &wazeroMemory{mem: mod.Memory()}, args)
				stack[0] = uint64(ret)
			}), params, []api.ValueType{api.ValueTypeI64}).
			Export(hostFn.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}

	// No start functions: nothing runs until the entry point is called.
	module, err := runtime.InstantiateWithConfig(ctx, code, wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}

	return &wazeroInstance{
		runtime: runtime,
		module:  module,
	}, nil
}

func (r *wazeroRuntime) Close(ctx context.Context) error {
	return r.compilationCache.Close(ctx)
}

type wazeroInstance struct {
	runtime wazero.Runtime
	module  api.Module
}

func (i *wazeroInstance) Call(ctx context.Context, entry string, arg uint64) (uint64, error) {
	fn := i.module.ExportedFunction(entry)
	if fn == nil {
		return 0, fmt.Errorf("%w: %q", ErrNotExported, entry)
	}

	results, err := fn.Call(ctx, arg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == abortExitCode {
			return 0, ErrGuestAbort
		}
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (i *wazeroInstance) Memory() Memory {
	return &wazeroMemory{mem: i.module.Memory()}
}

// Close closes the per-instance runtime, which closes the module and the
// host bindings with it.
func (i *wazeroInstance) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

type wazeroMemory struct {
	mem api.Memory
}

func (m *wazeroMemory) Read(ptr, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, fmt.Errorf("%w: module has no memory", ErrOutOfBounds)
	}
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, memory size %d", ErrOutOfBounds, length, ptr, m.mem.Size())
	}
	// The view aliases linear memory; the guest may mutate it after we
	// return.
	return slices.Clone(view), nil
}

func (m *wazeroMemory) Write(ptr uint32, data []byte) error {
	if m.mem == nil {
		return fmt.Errorf("%w: module has no memory", ErrOutOfBounds)
	}
	if !m.mem.Write(ptr, data) {
		return fmt.Errorf("%w: %d bytes at offset %d, memory size %d", ErrOutOfBounds, len(data), ptr, m.mem.Size())
	}
	return nil
}

// Size reports zero for a module that declares no memory, which fails every
// bounds check before any access is attempted.
func (m *wazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}
