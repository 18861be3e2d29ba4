// Package software implements gpucore.Device on the CPU.
//
// Kernels are the Go functions attached to each shader function
// (ShaderFunction.CPU). A dispatch calls the kernel once per thread of
// every group, with group rows spread over a work-stealing pool. Texels
// are stored as RGBA8 bytes; out-of-range loads return zero and
// out-of-range stores are dropped, matching storage-buffer semantics on
// the GPU.
//
// Command sequences run in commit order on one queue goroutine, so a
// dispatch always sees the uploads recorded before it and ReadTexture sees
// every dispatch committed before it.
//
// Importing the package registers it with the backend registry under
// backend.Software.
package software
