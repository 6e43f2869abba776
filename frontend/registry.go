package frontend

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/device/cpu/workitem"
)

type registeredKernel struct {
	meta KernelMeta
	body workitem.KernelFunc
}

// Registry is the host-process-wide table of kernel bodies a demo or test
// registers ahead of time — the substitute for a real front-end's code
// generation. It also implements Compiler.
type Registry struct {
	mu      sync.RWMutex
	kernels map[string]registeredKernel
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kernels: make(map[string]registeredKernel)}
}

// Register binds name to an executable body and its declared call edges
// (see KernelMeta.Calls). It is a programming error to register the same
// name twice; Register returns an error rather than silently overwriting so
// a demo can't shadow a kernel by accident.
func (r *Registry) Register(name string, meta KernelMeta, body workitem.KernelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kernels[name]; exists {
		return errors.Errorf("kernel %q already registered", name)
	}
	meta.Name = name
	r.kernels[name] = registeredKernel{meta: meta, body: body}
	return nil
}

// Unregister removes name, allowing it to be re-registered later. A no-op
// if name was never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kernels, name)
}

// Body returns the registered body for name.
func (r *Registry) Body(name string) (workitem.KernelFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kernels[name]
	return k.body, ok
}

func (r *Registry) lookup(name string) (registeredKernel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kernels[name]
	return k, ok
}
