package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/fx"
)

// parseSetting parses name=value against the effect's metadata. Scalars
// take one number; colors take r,g,b or r,g,b,a.
func parseSetting(meta fx.Metadata, s string) (string, fx.Value, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("-set %q: want name=value", s)
	}
	desc, ok := meta.Lookup(name)
	if !ok {
		return "", nil, fmt.Errorf("-set %q: %w", name, fx.ErrUnknownParam)
	}

	switch desc.Kind {
	case fx.KindScalar:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return "", nil, fmt.Errorf("-set %s: %w", name, err)
		}
		return name, fx.Scalar(f), nil
	case fx.KindColor:
		parts := strings.Split(raw, ",")
		if len(parts) != 3 && len(parts) != 4 {
			return "", nil, fmt.Errorf("-set %s: color wants r,g,b[,a], got %q", name, raw)
		}
		c := [4]float64{3: 1}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return "", nil, fmt.Errorf("-set %s: %w", name, err)
			}
			c[i] = f
		}
		return name, fx.Color{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
	default:
		return "", nil, fmt.Errorf("-set %s: %s parameters cannot be set from the command line", name, desc.Kind)
	}
}

func formatValue(v fx.Value) string {
	switch v := v.(type) {
	case fx.Scalar:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case fx.Color:
		return fmt.Sprintf("(%g, %g, %g, %g)", v.R, v.G, v.B, v.A)
	case nil:
		return "-"
	default:
		return v.Kind().String()
	}
}
