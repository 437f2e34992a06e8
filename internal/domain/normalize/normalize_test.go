package normalize_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/orbitwatch/internal/domain/normalize"
	"github.com/okian/orbitwatch/internal/domain/orbit"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name     string
		vectors  []orbit.Features
		wantMean orbit.Features
		wantStd  orbit.Features
		wantErr  error
	}{
		{
			name:    "empty",
			vectors: nil,
			wantErr: normalize.ErrNoVectors,
		},
		{
			name:     "single vector floors every column",
			vectors:  []orbit.Features{{1, 2, 3, 4, 5, 6}},
			wantMean: orbit.Features{1, 2, 3, 4, 5, 6},
			wantStd:  orbit.Features{1e-5, 1e-5, 1e-5, 1e-5, 1e-5, 1e-5},
		},
		{
			name:     "population deviation",
			vectors:  []orbit.Features{{0, 2, 1, 1, 1, 1}, {2, 4, 1, 1, 1, 1}},
			wantMean: orbit.Features{1, 3, 1, 1, 1, 1},
			wantStd:  orbit.Features{1, 1, 1e-5, 1e-5, 1e-5, 1e-5},
		},
		{
			name:     "four samples",
			vectors:  []orbit.Features{{2, 0, 0, 0, 0, 0}, {4, 0, 0, 0, 0, 0}, {4, 0, 0, 0, 0, 0}, {6, 0, 0, 0, 0, 0}},
			wantMean: orbit.Features{4, 0, 0, 0, 0, 0},
			wantStd:  orbit.Features{math.Sqrt2, 1e-5, 1e-5, 1e-5, 1e-5, 1e-5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := normalize.Fit(tt.vectors)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for i := 0; i < orbit.FeatureCount; i++ {
				assert.InDelta(t, tt.wantMean[i], s.Mean[i], 1e-12, "mean[%d]", i)
				assert.InDelta(t, tt.wantStd[i], s.Std[i], 1e-12, "std[%d]", i)
			}
		})
	}
}

func TestStdFloorOnConstantColumn(t *testing.T) {
	vectors := make([]orbit.Features, 50)
	for i := range vectors {
		vectors[i] = orbit.Features{0.9, 0.0001, 0.0043, float64(i), 2, 3}
	}
	s, err := normalize.Fit(vectors)
	require.NoError(t, err)

	for i, std := range s.Std {
		assert.GreaterOrEqual(t, std, normalize.Epsilon, "std[%d]", i)
	}
	for _, v := range s.TransformAll(vectors) {
		for i, x := range v {
			assert.False(t, math.IsNaN(x) || math.IsInf(x, 0), "component %d not finite", i)
		}
	}
}

func TestTransform(t *testing.T) {
	s := normalize.Stats{
		Mean: orbit.Features{1, 2, 3, 4, 5, 6},
		Std:  orbit.Features{2, 2, 2, 2, 2, 1e-5},
	}
	v := orbit.Features{3, 2, 1, 4, 5, 6.00001}

	got := s.Transform(v)
	assert.InDeltaSlice(t, []float64{1, 0, -1, 0, 0, 1}, got[:], 1e-6)

	// referential transparency
	assert.Equal(t, got, s.Transform(v))
	assert.Equal(t, orbit.Features{3, 2, 1, 4, 5, 6.00001}, v)
}
