package trim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/wall"
)

func segment() *wall.WallSegment {
	return &wall.WallSegment{
		Source:     "W1",
		LayerIndex: 1,
		Centerline: geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5000, 30)},
		Thickness:  50,
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		target  geom.Point
		end     wall.Endpoint
		outcome Outcome
		want    geom.Line
		wantErr bool
	}{
		{
			name:    "extend end",
			target:  geom.Pt(5100, 0),
			end:     wall.End,
			outcome: Extended,
			want:    geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5100, 30)},
		},
		{
			name:    "trim end",
			target:  geom.Pt(4900, 200),
			end:     wall.End,
			outcome: Trimmed,
			want:    geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(4900, 30)},
		},
		{
			name:    "extend start",
			target:  geom.Pt(-100, -500),
			end:     wall.Start,
			outcome: Extended,
			want:    geom.Line{Start: geom.Pt(-100, 30), End: geom.Pt(5000, 30)},
		},
		{
			name:    "trim start",
			target:  geom.Pt(250, 0),
			end:     wall.Start,
			outcome: Trimmed,
			want:    geom.Line{Start: geom.Pt(250, 30), End: geom.Pt(5000, 30)},
		},
		{
			name:    "below negligible",
			target:  geom.Pt(5000.5, 0),
			end:     wall.End,
			outcome: Negligible,
			want:    geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5000, 30)},
		},
		{
			name:    "too short",
			target:  geom.Pt(30, 0),
			end:     wall.End,
			outcome: Skipped,
			want:    geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5000, 30)},
			wantErr: true,
		},
		{
			name:    "reversed",
			target:  geom.Pt(5200, 0),
			end:     wall.Start,
			outcome: Skipped,
			want:    geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5000, 30)},
			wantErr: true,
		},
	}

	e := New(DefaultNegligible, DefaultMinLength, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := segment()
			got, err := e.Apply(seg, tt.target, tt.end)
			assert.Equal(t, tt.outcome, got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, wall.ErrTrimDegenerate))
				var werr *wall.Error
				require.True(t, errors.As(err, &werr))
				assert.Equal(t, 1, werr.Layer)
			} else {
				require.NoError(t, err)
			}
			assert.InDelta(t, tt.want.Start.X, seg.Centerline.Start.X, 1e-9)
			assert.InDelta(t, tt.want.Start.Y, seg.Centerline.Start.Y, 1e-9)
			assert.InDelta(t, tt.want.End.X, seg.Centerline.End.X, 1e-9)
			assert.InDelta(t, tt.want.End.Y, seg.Centerline.End.Y, 1e-9)
		})
	}
}

// The minimum length is inclusive: exactly MinLength is kept.
func TestApplyMinimumLengthBoundary(t *testing.T) {
	e := New(DefaultNegligible, DefaultMinLength, nil)

	seg := segment()
	got, err := e.Apply(seg, geom.Pt(50, 0), wall.End)
	require.NoError(t, err)
	assert.Equal(t, Trimmed, got)
	assert.InDelta(t, 50, seg.Centerline.Length(), 1e-9)

	seg = segment()
	got, err = e.Apply(seg, geom.Pt(49, 0), wall.End)
	assert.ErrorIs(t, err, wall.ErrTrimDegenerate)
	assert.Equal(t, Skipped, got)
	assert.InDelta(t, 5000, seg.Centerline.Length(), 1e-9)
}

func TestApplyKeepsElevation(t *testing.T) {
	seg := segment()
	seg.Centerline = geom.Line{Start: geom.Pt3(0, 0, 3000), End: geom.Pt3(1000, 0, 3000)}

	_, err := New(DefaultNegligible, DefaultMinLength, nil).Apply(seg, geom.Pt(1200, 0), wall.End)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, seg.Centerline.End.Z)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "extended", Extended.String())
	assert.True(t, Trimmed.Changed())
	assert.False(t, Negligible.Changed())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
