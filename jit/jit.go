// Package jit stands in for the opaque "JIT module -> native entry
// address" collaborator (spec §1, §6). A real deployment resolves a
// compiled frontend.Module's kernel stubs to native machine addresses via
// LLVM's MCJIT; this reference Engine resolves them to the
// workitem.KernelFunc closures already sitting in the frontend.Registry,
// which is the only "linking" step left once there is no bitcode to
// generate machine code from.
package jit

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/frontend"
)

// Engine is a per-device JIT handle (spec §3: "a JIT engine handle" is one
// of the CPU device's owned resources). AddModule/RemoveModule mirror the
// kernel build pipeline's step 3 ("Add the module to the JIT, materialize
// the stub") and its mirror on release.
type Engine struct {
	registry *frontend.Registry

	mu     sync.Mutex
	loaded map[string]workitem.KernelFunc
}

// NewEngine returns an Engine resolving entries against registry.
func NewEngine(registry *frontend.Registry) *Engine {
	return &Engine{registry: registry, loaded: make(map[string]workitem.KernelFunc)}
}

// AddModule materializes every kernel in mod, failing if any kernel named
// in the module has no registered body — the reference equivalent of an
// unresolved symbol at link time.
func (e *Engine) AddModule(mod *frontend.Module) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name := range mod.Kernels {
		body, ok := e.registry.Body(name)
		if !ok {
			return errors.Errorf("jit: kernel %q has no materializable entry", name)
		}
		e.loaded[name] = body
	}
	return nil
}

// EntryAddress resolves a kernel name to its executable entry, the
// reference stand-in for a native function pointer.
func (e *Engine) EntryAddress(name string) (workitem.KernelFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, ok := e.loaded[name]
	return fn, ok
}

// RemoveModule evicts every kernel entry in mod, mirroring the
// kernel-release flow's "remove the module from the JIT, evict the cache
// entry" (spec §4.F).
func (e *Engine) RemoveModule(mod *frontend.Module) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range mod.Kernels {
		delete(e.loaded, name)
	}
}
