// Package kernel is the compiled-kernel library effects resolve from.
//
// A [Library] maps names to [Function] values. Each function holds WGSL
// source with a workgroup-size placeholder and, optionally, a Go
// implementation for CPU devices. GPU devices ask for SPIR-V per
// workgroup side; the WGSL is specialized, compiled with naga and cached.
//
//	lib := kernel.NewLibrary()
//	lib.MustAdd(kernel.Source{Name: "invert", WGSL: invertWGSL, CPU: invertCPU})
//	fn, err := lib.Resolve("invert")
package kernel
