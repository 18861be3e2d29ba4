// Package gpucore provides the device abstraction fx effects run on.
//
// This package defines the [Device] interface, which abstracts over the
// compute backends, allowing the same effect code to work with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL), see backend/native
//   - a CPU device that runs Go kernels on a worker pool, see backend/software
//
// # Architecture
//
//	               +-----------------+
//	               |       fx        |
//	               | (Effect.Output) |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  native device  |          | software device |
//	|  (hal.Device)   |          |  (WorkerPool)   |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// Resources are managed via opaque IDs ([BufferID], [TextureID],
// [ComputePipelineID]). Destruction is ordered on the device queue, so an
// effect can drop a texture while a dispatch that reads it is in flight.
//
// # Command Submission
//
// A [CommandEncoder] records uploads and compute passes; Commit enqueues
// them and returns immediately. [Device.ReadTexture] is the only call that
// waits, and it waits only for work committed before it.
//
// # Kernels
//
// A [ShaderFunction] carries WGSL for GPU devices and an optional
// [KernelFunc] for CPU devices. Texture slots and parameter buffer slots
// are separate namespaces, described by a [BindingLayout].
package gpucore
