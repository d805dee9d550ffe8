package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    BookingMode
		wantErr bool
	}{
		{"half", ModeHalf, false},
		{"full", ModeFull, false},
		{"HALF", ModeHalf, false},
		{" full ", ModeFull, false},
		{"5v5", ModeHalf, false},
		{"7v7", ModeFull, false},
		{"", "", true},
		{"9v9", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBookingMode(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestBookingModeUnits(t *testing.T) {
	assert.Equal(t, 1, ModeHalf.Units())
	assert.Equal(t, 2, ModeFull.Units())
}

func TestReduceOccupancy(t *testing.T) {
	tests := []struct {
		name      string
		fullCount int
		halfCount int
		want      OccupancyState
		integrity bool
	}{
		{"empty", 0, 0, OccupancyEmpty, false},
		{"one half", 0, 1, OccupancyHalf, false},
		{"two halves", 0, 2, OccupancyFull, false},
		{"one full", 1, 0, OccupancyFull, false},
		{"three halves", 0, 3, OccupancyFull, true},
		{"full plus half", 1, 1, OccupancyFull, true},
		{"two fulls", 2, 0, OccupancyFull, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReduceOccupancy(tt.fullCount, tt.halfCount)
			assert.Equal(t, tt.want, got)
			if tt.integrity {
				assert.ErrorIs(t, err, ErrDataIntegrity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOccupancyAdmits(t *testing.T) {
	assert.True(t, OccupancyEmpty.Admits(ModeFull))
	assert.True(t, OccupancyEmpty.Admits(ModeHalf))
	assert.True(t, OccupancyHalf.Admits(ModeHalf))
	assert.False(t, OccupancyHalf.Admits(ModeFull))
	assert.False(t, OccupancyFull.Admits(ModeHalf))
	assert.False(t, OccupancyFull.Admits(ModeFull))
}

func TestBookingAmount(t *testing.T) {
	assert.Equal(t, int64(500), BookingAmount(ModeHalf, 1))
	assert.Equal(t, int64(2000), BookingAmount(ModeHalf, 4))
	assert.Equal(t, int64(1000), BookingAmount(ModeFull, 1))
	assert.Equal(t, int64(3000), BookingAmount(ModeFull, 3))
}

func TestNewBookingRef(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewBookingRef()
		assert.True(t, strings.HasPrefix(ref, "BK-"), ref)
		parts := strings.Split(ref, "-")
		require.Len(t, parts, 3, ref)
		assert.Len(t, parts[2], 5, ref)
		seen[ref] = true
	}
	// The random suffix should make collisions within one run unlikely.
	assert.Greater(t, len(seen), 90)
}
