package util

// AbsFloat64 returns |x| without pulling in math for one call site.
func AbsFloat64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
