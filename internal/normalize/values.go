package normalize

import "math"

// intValue converts integral JSON numbers to int and passes anything else through.
func intValue(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		return int(f)
	}
	return v
}
