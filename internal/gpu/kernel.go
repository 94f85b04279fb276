package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/cvpipeline/gpucore"
)

// KernelFunc implements a compute kernel's per-dispatch behavior on
// [StubAdapter]. It receives the bindings recorded for the dispatch and the
// workgroup counts passed to Dispatch, and reads/writes the adapter's
// buffers and textures directly through the adapter handle.
//
// A real NativeAdapter dispatch instead runs compiled WGSL on the GPU;
// KernelFunc only exists on the CPU simulation path.
type KernelFunc func(a *StubAdapter, binds []gpucore.BindGroupEntry, x, y, z uint32) error

var (
	kernelMu sync.RWMutex
	kernels  = make(map[string]KernelFunc)
)

// RegisterKernel makes a CPU kernel implementation available under name.
// Node packages call this from an init() so that [StubAdapter] can execute
// their compute stage without a real shader compiler.
//
// RegisterKernel panics if name is already registered, mirroring the
// package-level accelerator registries this codebase otherwise uses.
func RegisterKernel(name string, fn KernelFunc) {
	if fn == nil {
		panic("gpu: RegisterKernel with nil function for " + name)
	}
	kernelMu.Lock()
	defer kernelMu.Unlock()
	if _, exists := kernels[name]; exists {
		panic("gpu: kernel already registered: " + name)
	}
	kernels[name] = fn
}

// lookupKernel returns the kernel registered under name, or an error.
func lookupKernel(name string) (KernelFunc, error) {
	kernelMu.RLock()
	defer kernelMu.RUnlock()
	fn, ok := kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: no kernel registered for entry point %q", ErrNotSupported, name)
	}
	return fn, nil
}
