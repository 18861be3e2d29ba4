// Package fx runs image effects as GPU compute kernels.
//
// # Overview
//
// An effect is a named compute kernel plus a table of typed, bounded
// parameters and an execution mode. fx resolves the kernel, picks a
// work-group tile from the device limits, manages the texture pair, uploads
// parameters to their buffer slots and submits the dispatch. The result is
// an [Image] wrapping the output texture.
//
// # Quick Start
//
//	dev := software.New(software.Config{})
//	defer dev.Close()
//
//	lib := kernel.NewLibrary()
//	lib.MustAdd(kernel.Source{Name: "invert", WGSL: invertWGSL, CPU: invertCPU})
//
//	e, err := fx.NewImageEffect(dev, lib, "invert", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e.SetInput(fx.NewImage(src))
//	out, err := e.Output()
//	pixels, err := out.RGBA()
//
// # Execution Modes
//
// [ImageEffect] transforms a source image; its output has the source's
// extent and the kernel sees the input at texture slot 0 and the output at
// slot 1. [GeneratorEffect] has no input; its output has a configured size
// and the kernel writes slot 0. Both implement [Mode], which is how the
// dispatcher tells them apart.
//
// # Parameters
//
// Each [Param] pairs a [ParamDesc] with typed accessors. On every dispatch
// the binder calls Get, converts Scalar values to one float and Color
// values to a vec4, and uploads them to the buffer at the parameter's slot.
// A value that cannot be read or converted is skipped and its slot left
// unbound, unless the effect was built [WithStrictParams].
//
// # Textures
//
// The texture pair is allocated on the first Output and reused while the
// output size is unchanged. A size change invalidates the pair; the next
// Output releases it and allocates a new one. See [TextureState].
//
// # Work Groups
//
// [TileSize] picks the largest square group whose thread count is a
// multiple of the device execution width. The dispatch grid divides the
// texture by the tile with truncation by default; [WithGridPolicy] with
// [GridCeil] covers the border as well.
//
// # Logging
//
// fx is silent by default. Call [SetLogger] with a [log/slog.Logger].
package fx
