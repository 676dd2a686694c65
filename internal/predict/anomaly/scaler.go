package anomaly

import (
	"fmt"
	"math"
)

// StandardScaler normalizes feature vectors to zero mean and unit variance
// using statistics captured at fit time. Its fields are exported so a fitted
// scaler round-trips through the JSON model artifact.
type StandardScaler struct {
	Means   []float64 `json:"means"`
	StdDevs []float64 `json:"std_devs"`
}

// FitScaler computes per-feature mean and standard deviation over the
// training rows. All rows must share the same width.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty training set")
	}
	width := len(rows[0])

	means := make([]float64, width)
	for _, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("inconsistent feature width: expected %d, got %d", width, len(row))
		}
		for i, v := range row {
			means[i] += v
		}
	}
	for i := range means {
		means[i] /= float64(len(rows))
	}

	stds := make([]float64, width)
	for _, row := range rows {
		for i, v := range row {
			d := v - means[i]
			stds[i] += d * d
		}
	}
	for i := range stds {
		stds[i] = math.Sqrt(stds[i] / float64(len(rows)))
	}

	return &StandardScaler{Means: means, StdDevs: stds}, nil
}

// Transform scales one feature vector. A zero-variance feature passes through
// centered but undivided so constant training features never produce NaN.
func (s *StandardScaler) Transform(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, v := range features {
		if i >= len(s.Means) {
			out[i] = v
			continue
		}
		centered := v - s.Means[i]
		if s.StdDevs[i] > 0 {
			out[i] = centered / s.StdDevs[i]
		} else {
			out[i] = centered
		}
	}
	return out
}
