package fx

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/exp/constraints"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ParamDesc describes one tunable value of an effect.
//
// Slot is the kernel buffer binding point. It must be unique among the
// bindable parameters of one effect. The framework reads only Slot, Kind
// and Unbound; the remaining fields are for hosts that build controls.
type ParamDesc struct {
	Name        string
	Slot        int
	Kind        Kind
	Default     Value
	DisplayName string
	Min         float64
	SliderMin   float64
	SliderMax   float64

	// Unbound marks a host setting that is listed and settable but never
	// uploaded, such as a generator's output size.
	Unbound bool
}

// Bindable reports whether the parameter is uploaded to a buffer slot.
func (d ParamDesc) Bindable() bool {
	return !d.Unbound && d.Kind != KindImage
}

// Label returns DisplayName, or a title derived from Name when it is empty:
// "inputPixelWidth" becomes "Pixel Width".
func (d ParamDesc) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return displayName(d.Name)
}

// DefaultScalar returns the default as a float, or 0 for non-scalars.
func (d ParamDesc) DefaultScalar() float64 {
	if s, ok := d.Default.(Scalar); ok {
		return float64(s)
	}
	return 0
}

// DefaultColor returns the default as a color, or transparent black.
func (d ParamDesc) DefaultColor() Color {
	if c, ok := d.Default.(Color); ok {
		return c
	}
	return Color{}
}

// Param pairs a descriptor with typed accessors supplied by the effect.
// The binder calls Get on every dispatch; a nil Get or a false ok skips
// the parameter. Set is used by hosts and may be nil for read-only values.
type Param struct {
	ParamDesc
	Get func() (Value, bool)
	Set func(Value) error
}

// ScalarParam binds a scalar descriptor to a float field.
func ScalarParam(desc ParamDesc, v *float64) Param {
	desc.Kind = KindScalar
	return Param{
		ParamDesc: desc,
		Get:       func() (Value, bool) { return Scalar(*v), true },
		Set: func(val Value) error {
			s, ok := val.(Scalar)
			if !ok {
				return fmt.Errorf("%w: %s wants %s, got %s", ErrParamKind, desc.Name, KindScalar, val.Kind())
			}
			*v = float64(s)
			return nil
		},
	}
}

// ColorParam binds a color descriptor to a Color field.
func ColorParam(desc ParamDesc, c *Color) Param {
	desc.Kind = KindColor
	return Param{
		ParamDesc: desc,
		Get:       func() (Value, bool) { return *c, true },
		Set: func(val Value) error {
			cv, ok := val.(Color)
			if !ok {
				return fmt.Errorf("%w: %s wants %s, got %s", ErrParamKind, desc.Name, KindColor, val.Kind())
			}
			*c = cv
			return nil
		},
	}
}

// Metadata is the static description of an effect for host inspectors.
type Metadata struct {
	Kernel      string
	DisplayName string
	Params      []ParamDesc
}

// Lookup finds a parameter by name.
func (m Metadata) Lookup(name string) (ParamDesc, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDesc{}, false
}

// Validate reports configuration defects: empty or duplicate names,
// unknown kinds, negative slots, and slot collisions between bindable
// parameters.
func (m Metadata) Validate() error {
	names := make(map[string]bool, len(m.Params))
	slots := make(map[int]string, len(m.Params))
	for _, p := range m.Params {
		if p.Name == "" {
			return fmt.Errorf("fx: %s: parameter with empty name", m.Kernel)
		}
		if names[p.Name] {
			return fmt.Errorf("fx: %s: duplicate parameter %q", m.Kernel, p.Name)
		}
		names[p.Name] = true

		switch p.Kind {
		case KindScalar, KindColor, KindImage:
		default:
			return fmt.Errorf("fx: %s: parameter %q has unknown kind %d", m.Kernel, p.Name, p.Kind)
		}
		if !p.Bindable() {
			continue
		}
		if p.Slot < 0 {
			return fmt.Errorf("fx: %s: parameter %q has negative slot %d", m.Kernel, p.Name, p.Slot)
		}
		if other, ok := slots[p.Slot]; ok {
			return fmt.Errorf("%w: %s: %q and %q both use slot %d", ErrSlotCollision, m.Kernel, other, p.Name, p.Slot)
		}
		slots[p.Slot] = p.Name
	}
	return nil
}

// normalize applies bounds to a host-supplied value.
func (d ParamDesc) normalize(v Value) Value {
	switch val := v.(type) {
	case Scalar:
		return Scalar(clamp(float64(val), d.Min, math.Inf(1)))
	case Color:
		return val.clamped()
	default:
		return v
	}
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// displayName turns an attribute key into a title, dropping the
// conventional "input" prefix.
func displayName(name string) string {
	if rest, ok := strings.CutPrefix(name, "input"); ok && rest != "" && unicode.IsUpper(rune(rest[0])) {
		name = rest
	}
	var words []string
	start := 0
	runes := []rune(name)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(strings.ToLower(strings.Join(words, " ")))
}
