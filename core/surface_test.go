package core

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

// rampSurface builds a 10x10 surface holding 0..99 in scan order.
func rampSurface(t *testing.T, polarity Polarity) *QualitySurface {
	t.Helper()
	grid := mustRaster(t, 10, 10, 0, 0, 1, 1)
	for i := range grid.Values {
		grid.Values[i] = float64(i)
	}
	return &QualitySurface{Grid: grid, Polarity: polarity}
}

func TestQualityQuantileFollowsPolarity(t *testing.T) {
	cases := []struct {
		name     string
		polarity Polarity
		q        float64
		want     float64
	}{
		{"higher best cell", HigherIsBetter, 1, 99},
		{"higher worst cell", HigherIsBetter, 0, 0},
		{"higher interpolated", HigherIsBetter, 0.9, 89.1},
		{"lower best cell", LowerIsBetter, 1, 0},
		{"lower worst cell", LowerIsBetter, 0, 99},
		{"lower interpolated", LowerIsBetter, 0.9, 9.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := rampSurface(t, tc.polarity)
			got, err := s.qualityQuantile(tc.q)
			if err != nil {
				t.Fatalf("qualityQuantile(%v): %v", tc.q, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("qualityQuantile(%v) = %v, want %v", tc.q, got, tc.want)
			}
		})
	}
}

func TestQualityQuantileSkipsNoData(t *testing.T) {
	s := rampSurface(t, HigherIsBetter)
	s.Grid.Set(9, 9, math.NaN()) // drop the former best cell

	got, err := s.qualityQuantile(1)
	if err != nil {
		t.Fatalf("qualityQuantile: %v", err)
	}
	if got != 98 {
		t.Fatalf("best valid value = %v, want 98", got)
	}

	s.Grid.Fill(math.NaN())
	var empty *EmptySurfaceError
	if _, err := s.qualityQuantile(0.5); !errors.As(err, &empty) {
		t.Fatalf("all-NaN surface should yield EmptySurfaceError, got %v", err)
	}
}

func TestForEachRowParallelCoversEveryRow(t *testing.T) {
	for _, workers := range []int{1, 4, 64} {
		rows := 37
		visits := make([]int32, rows)
		forEachRowParallel(rows, workers, func(row int) {
			atomic.AddInt32(&visits[row], 1)
		})
		for row, n := range visits {
			if n != 1 {
				t.Fatalf("workers=%d: row %d visited %d times, want 1", workers, row, n)
			}
		}
	}
}
