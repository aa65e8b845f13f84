package measurement

import (
	"math"
)

// Mean returns the mean of each metric over the measurements that carry it.
func Mean(measurements []Measurement) map[string]float32 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range measurements {
		for k, v := range m.ValueMap() {
			sums[k] += float64(v)
			counts[k]++
		}
	}

	means := make(map[string]float32)
	for k, v := range sums {
		means[k] = float32(v / float64(counts[k]))
	}

	return means
}

// StdDev returns the population standard deviation of each metric.
func StdDev(measurements []Measurement) map[string]float32 {
	avg := Mean(measurements)

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range measurements {
		for k, v := range m.ValueMap() {
			sums[k] += math.Pow(float64(v-avg[k]), 2)
			counts[k]++
		}
	}

	devs := make(map[string]float32)
	for k, v := range sums {
		devs[k] = float32(math.Sqrt(v / float64(counts[k])))
	}

	return devs
}

func Min(measurements []Measurement) map[string]float32 {
	x := make(map[string]float32)
	for _, m := range measurements {
		for k, v := range m.ValueMap() {
			if _, ok := x[k]; !ok {
				x[k] = math.MaxFloat32
			}

			if v < x[k] {
				x[k] = v
			}
		}
	}

	return x
}

func Max(measurements []Measurement) map[string]float32 {
	x := make(map[string]float32)
	for _, m := range measurements {
		for k, v := range m.ValueMap() {
			if _, ok := x[k]; !ok {
				x[k] = -math.MaxFloat32
			}

			if v > x[k] {
				x[k] = v
			}
		}
	}

	return x
}

// MeanAngle returns the circular mean of angles given in degrees, in [0, 360).
// It returns NaN if the angles cancel out or none are given.
func MeanAngle(degrees []float64) float64 {
	var sin, cos float64
	for _, d := range degrees {
		r := d * math.Pi / 180
		sin += math.Sin(r)
		cos += math.Cos(r)
	}
	if math.Hypot(sin, cos) < 1e-9 {
		return math.NaN()
	}

	mean := math.Atan2(sin, cos) * 180 / math.Pi
	if mean < 0 {
		mean += 360
	}
	if mean >= 360 {
		mean = 0
	}
	return mean
}
