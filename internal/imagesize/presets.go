package imagesize

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Presets maps the resizable named sizes to their configured dimensions.
// "full" never appears here: it means the original image.
type Presets map[string]Dimensions

// DefaultPresets returns the stock CMS dimensions for the resizable presets.
func DefaultPresets() Presets {
	return Presets{
		Thumbnail: {Width: 150, Height: 150},
		Medium:    {Width: 300, Height: 300},
		Large:     {Width: 1024, Height: 1024},
	}
}

// Lookup resolves the target dimensions for s. Explicit sizes are used
// directly; named sizes are looked up in p. The second return value is
// false when s cannot be resolved to a concrete box (e.g. "full").
func (p Presets) Lookup(s Size) (Dimensions, bool) {
	if s.IsExplicit() {
		return Dimensions{Width: s.Width, Height: s.Height}, true
	}
	d, ok := p[s.Name]
	if !ok || d.Width <= 0 || d.Height <= 0 {
		return Dimensions{}, false
	}
	return d, true
}
