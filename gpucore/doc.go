// Package gpucore provides shared GPU abstractions for the cvpipeline runtime.
//
// This package defines the [GPUAdapter] interface, which abstracts over
// different GPU backend implementations so that the same node graph
// executor works with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL) through a native adapter
//   - an in-process CPU simulation through a stub adapter, used for tests
//     and hosts without a usable GPU
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID],
// [ComputePipelineID], ...). The [GPUAdapter] interface provides creation
// and destruction methods for each resource type. Adapters are responsible
// for tracking the mapping between IDs and actual backend resources.
// Destroying a resource while it is still bound to a pending compute pass
// is undefined behavior; callers own sequencing.
//
// # Kernel Dispatch
//
// Compute work is recorded through a [ComputePassEncoder] obtained from
// [GPUAdapter.BeginComputePass]: set a pipeline, bind resources, dispatch
// workgroups, then End() and Submit(). The uniform structs in this package
// (e.g. [MixerUniforms], [DetectorUniforms], [EncoderUniforms]) describe the
// small parameter blocks each kernel expects; they mirror the layout a WGSL
// kernel would declare, even though kernel sources are outside this
// package's scope.
package gpucore
