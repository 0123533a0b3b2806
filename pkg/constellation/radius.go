package constellation

// ComputeRadius maps a frequency to a radius with the default radius range.
func ComputeRadius(frequency, maxFrequency int) float64 {
	return Options{}.WithDefaults().Radius(frequency, maxFrequency)
}

// Radius interpolates linearly between MinRadius and MaxRadius by
// frequency/maxFrequency clamped to [0, 1]. When maxFrequency <= 1 every
// bubble gets MinRadius, which also covers empty and all-zero matrices.
func (o Options) Radius(frequency, maxFrequency int) float64 {
	if maxFrequency <= 1 {
		return o.MinRadius
	}
	ratio := float64(frequency) / float64(maxFrequency)
	ratio = min(max(ratio, 0), 1)
	return o.MinRadius + (o.MaxRadius-o.MinRadius)*ratio
}
