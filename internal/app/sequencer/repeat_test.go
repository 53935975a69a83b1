package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRepeatPolicy(t *testing.T) {
	p, err := NewRepeatPolicy(3)
	assert.NoError(t, err)
	assert.Equal(t, 3, p.Count)

	_, err = NewRepeatPolicy(-1)
	assert.ErrorIs(t, err, ErrInvalidRepeat)
}

func TestRepeatPolicy_Semantics(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		single     bool
		plays      int
		loopsItem  bool
		loopsRange bool
		unbounded  bool
	}{
		{name: "single zero", count: 0, single: true, plays: 0, loopsItem: true, unbounded: true},
		{name: "single one", count: 1, single: true, plays: 1},
		{name: "single five", count: 5, single: true, plays: 5},
		{name: "range zero", count: 0, single: false, plays: 1, loopsRange: true, unbounded: true},
		{name: "range one", count: 1, single: false, plays: 1},
		{name: "range three", count: 3, single: false, plays: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RepeatPolicy{Count: tt.count}
			assert.Equal(t, tt.plays, p.PlaysPerItem(tt.single))
			assert.Equal(t, tt.loopsItem, p.LoopsItem(tt.single))
			assert.Equal(t, tt.loopsRange, p.LoopsRange(tt.single))
			assert.Equal(t, tt.unbounded, p.Unbounded())
		})
	}
}

func TestRepeatPolicy_Describe(t *testing.T) {
	assert.Equal(t, "Will repeat this verse infinitely.", RepeatPolicy{Count: 0}.Describe(true))
	assert.Equal(t, "Will repeat this verse 4 times.", RepeatPolicy{Count: 4}.Describe(true))
	assert.Equal(t, "Will play each verse once and loop the range infinitely.", RepeatPolicy{Count: 0}.Describe(false))
	assert.Equal(t, "Will repeat each verse 2 times before moving to the next verse.", RepeatPolicy{Count: 2}.Describe(false))
}
