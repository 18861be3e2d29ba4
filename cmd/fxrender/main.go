// Command fxrender runs one effect from the filters package on an image
// and writes the result.
//
//	fxrender -list
//	fxrender -effect pixellate -in photo.jpg -out blocks.png -set inputPixelWidth=20
//	fxrender -effect perlin -width 512 -height 512 -out - > noise.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/term"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/backend"
	_ "github.com/gogpu/fx/backend/native"
	_ "github.com/gogpu/fx/backend/software"
	"github.com/gogpu/fx/filters"
	"github.com/gogpu/fx/gpucore"
)

// pipeName selects stdin or stdout instead of a file.
const pipeName = "-"

// setFlags collects repeated -set name=value flags.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		list       = flag.Bool("list", false, "list effects and their parameters")
		effectName = flag.String("effect", "", "effect to run")
		source     = flag.String("in", "", "source image, or - for stdin")
		dest       = flag.String("out", "out.png", "destination image, or - for stdout")
		width      = flag.Int("width", 0, "generator output width")
		height     = flag.Int("height", 0, "generator output height")
		backendArg = flag.String("backend", "", "device backend (native, software); default picks the best available")
		resize     = flag.Int("resize", 0, "scale the source to this width before filtering")
		verbose    = flag.Bool("v", false, "verbose logging")
		sets       setFlags
	)
	flag.Var(&sets, "set", "parameter as name=value or name=r,g,b[,a] (repeatable)")
	log.SetFlags(0)
	flag.Parse()

	if *verbose {
		fx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if *list {
		printEffects(os.Stdout)
		return
	}
	if *effectName == "" {
		flag.Usage()
		log.Fatal("fxrender: -effect is required")
	}

	dev, err := openDevice(*backendArg)
	if err != nil {
		log.Fatalf("fxrender: %v", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("fxrender: close device: %v", err)
		}
	}()
	log.Printf("fxrender: using %s device", dev.Name())

	if err := run(dev, *effectName, *source, *dest, *width, *height, *resize, sets); err != nil {
		log.Fatalf("fxrender: %v", err)
	}
	if *dest != pipeName {
		log.Printf("fxrender: saved %s", *dest)
	}
}

func openDevice(name string) (gpucore.Device, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Get(name)
}

func run(dev gpucore.Device, name, in, out string, width, height, resize int, sets []string) error {
	effect, err := filters.New(name, dev)
	if err != nil {
		return err
	}
	defer effect.Release()

	for _, s := range sets {
		pname, v, err := parseSetting(effect.Metadata(), s)
		if err != nil {
			return err
		}
		if err := effect.SetParam(pname, v); err != nil {
			return err
		}
	}

	switch e := effect.(type) {
	case filters.ImageFilter:
		if in == "" {
			return fmt.Errorf("%s filters an image: -in is required", name)
		}
		src, err := readImage(in)
		if err != nil {
			return err
		}
		if resize > 0 {
			src = imaging.Resize(src, resize, 0, imaging.Lanczos)
		}
		e.SetInput(fx.NewImage(src))
	case filters.Generator:
		if width > 0 || height > 0 {
			w, h := width, height
			if w <= 0 {
				w = h
			}
			if h <= 0 {
				h = w
			}
			e.SetSize(w, h)
		}
	}

	img, err := effect.Output()
	if err != nil {
		return err
	}
	rgba, err := img.RGBA()
	if err != nil {
		return err
	}
	return writeImage(out, rgba)
}

func readImage(path string) (image.Image, error) {
	if path != pipeName {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("open source image: %w", err)
		}
		return img, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("`-` should be used with a pipe for stdin")
	}
	img, err := imaging.Decode(os.Stdin, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode stdin: %w", err)
	}
	return img, nil
}

func writeImage(path string, img image.Image) error {
	if path != pipeName {
		if err := imaging.Save(img, path); err != nil {
			return fmt.Errorf("save image: %w", err)
		}
		return nil
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("`-` should be used with a pipe for stdout")
	}
	return imaging.Encode(os.Stdout, img, imaging.PNG)
}

// printEffects writes every registered effect with its parameters.
func printEffects(w io.Writer) {
	for _, name := range filters.Available() {
		meta, _ := filters.Metadata(name)
		fmt.Fprintf(w, "%s (%s)\n", name, meta.DisplayName)
		for _, p := range meta.Params {
			fmt.Fprintf(w, "  %-22s %-6s default %s", p.Name, p.Kind, formatValue(p.Default))
			if p.Kind == fx.KindScalar {
				fmt.Fprintf(w, "  range %g..%g", p.SliderMin, p.SliderMax)
			}
			fmt.Fprintln(w)
		}
	}
}
