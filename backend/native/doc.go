// Package native implements gpucore.Device on the GPU through the Pure Go
// gogpu/wgpu HAL (Vulkan by default).
//
// Textures are storage buffers of packed RGBA8 texels, one u32 per texel,
// so uploads and readbacks are plain buffer copies. Kernels see three bind
// groups:
//
//	@group(0) @binding(slot)  texture slots, array<u32> storage
//	@group(1) @binding(slot)  parameter slots, vec4<f32> uniforms
//	@group(2) @binding(0)     extent, vec4<u32> {width, height, 0, 0}
//
// The extent is the size of the first writable texture; kernels use it to
// drop threads that fall outside the image.
//
// WGSL fixes the workgroup size at compile time, so ConfigureWorkgroup
// recompiles the kernel for the requested side and a dispatch must use
// exactly that side.
//
// Commit submits without waiting. Each submission carries a fence; its
// transient buffers and bind groups, and any resource destroyed while it
// was in flight, are released once the fence signals. ReadTexture waits
// for all prior work.
//
// Build with -tags nogpu to exclude the device and its registration.
package native
