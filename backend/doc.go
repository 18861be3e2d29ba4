// Package backend selects the device that effects run on.
//
// Backends register a [Factory] from an init() function and are opened at
// runtime by name or by priority. Import the backend packages you want:
//
//	import (
//		_ "github.com/gogpu/fx/backend/native"
//		_ "github.com/gogpu/fx/backend/software"
//	)
//
// # Backend Selection
//
// Use Default() to open the best available device, or Get() to request a
// specific backend by name:
//
//	// Best available: native GPU, falling back to software
//	dev, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Get(backend.Software)
//
// A backend whose factory fails (no adapter, driver missing) is skipped by
// Default.
//
// # Available Backends
//
// - "native": compute shaders on Vulkan via gogpu/wgpu HAL
// - "software": Go kernels on a CPU worker pool (always available)
package backend
