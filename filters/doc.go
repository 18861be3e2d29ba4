// Package filters provides ready-made effects built on package fx.
//
//   - [Pixellate] (image): replaces blocks with their mean color.
//   - [PerlinNoise] (generator): fractal gradient noise between two colors.
//   - [Kuwahara] (image): edge-preserving quadrant smoothing.
//
// Each effect ships a WGSL compute shader for GPU devices and an equivalent
// Go kernel for the software device; [Library] holds both. Effects are also
// reachable by name through the registry:
//
//	dev, _ := backend.Default()
//	e, err := filters.New("pixellate", dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e.(filters.ImageFilter).SetInput(fx.NewImage(src))
//	out, err := e.Output()
//
// Filters size their dispatch grid with [fx.GridCeil]; pass
// fx.WithGridPolicy(fx.GridTruncate) to opt out.
//
// Shaders bind textures as packed RGBA8 storage buffers in group 0 at their
// texture slot, parameters as vec4<f32> uniforms in group 1 at their
// parameter slot, and the destination extent in group 2.
package filters
