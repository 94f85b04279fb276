// Package gpu implements the two [gpucore.GPUAdapter] backends used by the
// node graph executor.
//
// [NativeAdapter] drives a real GPU through github.com/gogpu/wgpu: it opens
// an instance, requests an adapter and device, and issues compute dispatches
// against it. Texture and buffer readback go through the device's queue.
//
// [StubAdapter] simulates the same contract entirely on the CPU using plain
// byte slices. It is used when no GPU is available, in unit tests, and by
// the reference keypoint encoder. Kernel "dispatch" on the stub adapter runs
// a registered [KernelFunc] synchronously instead of a compiled shader.
//
// Both adapters are safe for concurrent use by multiple goroutines, as
// required by [gpucore.GPUAdapter]'s contract.
package gpu
