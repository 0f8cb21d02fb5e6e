package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestOverrideCoversDate(t *testing.T) {
	o := &Override{
		StartDate: date(2025, 6, 10),
		EndDate:   date(2025, 6, 12),
	}
	assert.False(t, o.CoversDate(date(2025, 6, 9)))
	assert.True(t, o.CoversDate(date(2025, 6, 10)))
	assert.True(t, o.CoversDate(date(2025, 6, 12)))
	assert.False(t, o.CoversDate(date(2025, 6, 13)))
}

func TestOverrideAppliesTo(t *testing.T) {
	wholeDay := &Override{}
	assert.True(t, wholeDay.AppliesTo(0))
	assert.True(t, wholeDay.AppliesTo(1350))

	ranged := &Override{StartSlot: intPtr(450), EndSlot: intPtr(630)}
	assert.False(t, ranged.AppliesTo(360))
	assert.True(t, ranged.AppliesTo(450))
	assert.True(t, ranged.AppliesTo(630))
	assert.False(t, ranged.AppliesTo(720))

	openEnd := &Override{StartSlot: intPtr(1260)}
	assert.False(t, openEnd.AppliesTo(1170))
	assert.True(t, openEnd.AppliesTo(1350))
}

func TestOverrideAppliesAt(t *testing.T) {
	o := &Override{
		StartDate: date(2025, 6, 10),
		EndDate:   date(2025, 6, 10),
		StartSlot: intPtr(450),
		EndSlot:   intPtr(450),
	}
	assert.True(t, o.AppliesAt(date(2025, 6, 10), 450))
	assert.False(t, o.AppliesAt(date(2025, 6, 11), 450))
	assert.False(t, o.AppliesAt(date(2025, 6, 10), 540))
}
