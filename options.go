package fx

// Option configures an Effect during creation.
//
// Example:
//
//	e, err := fx.NewImageEffect(dev, lib, "pixellate", params,
//	    fx.WithLabel("pixellate"),
//	    fx.WithGridPolicy(fx.GridCeil),
//	)
type Option func(*options)

// options holds optional configuration for Effect creation.
type options struct {
	label      string
	display    string
	grid       GridPolicy
	strict     bool
	colorSpace ColorSpace
}

// defaultOptions returns the default effect options.
func defaultOptions() options {
	return options{
		grid:       GridTruncate,
		colorSpace: WorkingColorSpace,
	}
}

// WithLabel sets the label used for device resources and log lines.
// It defaults to the kernel name.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithDisplayName sets the name reported in Metadata. It defaults to a
// title derived from the kernel name.
func WithDisplayName(name string) Option {
	return func(o *options) {
		o.display = name
	}
}

// WithGridPolicy selects truncating (default) or ceiling grid sizing.
func WithGridPolicy(p GridPolicy) Option {
	return func(o *options) {
		o.grid = p
	}
}

// WithStrictParams makes Output fail when a parameter cannot be read or
// converted, instead of skipping it.
func WithStrictParams() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithColorSpace sets the tag applied to output images.
func WithColorSpace(cs ColorSpace) Option {
	return func(o *options) {
		o.colorSpace = cs
	}
}
