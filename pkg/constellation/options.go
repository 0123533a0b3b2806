package constellation

// Default layout parameters.
const (
	DefaultWidth         = 800.0
	DefaultHeight        = 600.0
	DefaultMinRadius     = 20.0
	DefaultMaxRadius     = 60.0
	DefaultPadding       = 4.0
	DefaultMargin        = 10.0
	DefaultAngleStep     = 0.5 // radians per spiral step
	DefaultDistanceStep  = 2.0 // pixels per spiral step
	DefaultMaxIterations = 500
)

// Options configures a [Packer]. Zero fields take the defaults above.
// Padding and Margin are pointers so that an explicit 0 survives; nil
// takes the default.
type Options struct {
	Width         float64 `json:"width" toml:"width" validate:"gte=0"`
	Height        float64 `json:"height" toml:"height" validate:"gte=0"`
	MinRadius     float64 `json:"min_radius" toml:"min_radius" validate:"gte=0"`
	MaxRadius     float64 `json:"max_radius" toml:"max_radius" validate:"gte=0"`
	Padding       *float64 `json:"padding,omitempty" toml:"padding,omitempty" validate:"omitempty,gte=0"`
	Margin        *float64 `json:"margin,omitempty" toml:"margin,omitempty" validate:"omitempty,gte=0"`
	AngleStep     float64 `json:"angle_step" toml:"angle_step" validate:"gte=0"`
	DistanceStep  float64 `json:"distance_step" toml:"distance_step" validate:"gte=0"`
	MaxIterations int     `json:"max_iterations" toml:"max_iterations" validate:"gte=0"`
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
// A MaxRadius below MinRadius is raised to MinRadius.
func (o Options) WithDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.MinRadius == 0 {
		o.MinRadius = DefaultMinRadius
	}
	if o.MaxRadius == 0 {
		o.MaxRadius = DefaultMaxRadius
	}
	if o.MaxRadius < o.MinRadius {
		o.MaxRadius = o.MinRadius
	}
	if o.Padding == nil {
		o.Padding = Float(DefaultPadding)
	}
	if o.Margin == nil {
		o.Margin = Float(DefaultMargin)
	}
	if o.AngleStep == 0 {
		o.AngleStep = DefaultAngleStep
	}
	if o.DistanceStep == 0 {
		o.DistanceStep = DefaultDistanceStep
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Float returns a pointer to v, for setting Padding and Margin.
func Float(v float64) *float64 { return &v }

// Center returns the canvas center.
func (o Options) Center() (x, y float64) {
	return o.Width / 2, o.Height / 2
}
