package retrieval

import "math"

// Normalize делит вектор на его L2-норму. Нулевой вектор возвращается как есть.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	if norm == 0 {
		copy(out, vec)
		return out
	}
	for i, x := range vec {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Score converts a squared L2 distance into a similarity in (0, 1].
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
