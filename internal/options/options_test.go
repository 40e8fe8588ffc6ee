package options_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/options"
)

func ptr(s string) *string { return &s }

func TestListGroups(t *testing.T) {
	g := options.NewCatalog().List()

	require.Len(t, g.FloorOptions, 5)
	assert.Equal(t, int64(0), g.FloorOptions[0].Cost())
	assert.Equal(t, int64(20000), g.FloorOptions[1].Cost())
	assert.Equal(t, int64(50000), g.FloorOptions[4].Cost())
	assert.Len(t, g.LadderOptions, 2)
	assert.Len(t, g.SpecialVehicleOptions, 2)
	assert.Nil(t, g.SpecialVehicleOptions[0].Fee)
}

func TestCalculate(t *testing.T) {
	c := options.NewCatalog()

	total, err := c.Calculate(options.Selection{
		FloorOptionID:    ptr("floor-3"),
		LadderOptionID:   ptr("ladder-normal"),
		SpecialVehicleID: ptr("special-crane"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), total)

	total, err = c.Calculate(options.Selection{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCalculateRejectsUnknownOrMisplaced(t *testing.T) {
	c := options.NewCatalog()

	_, err := c.Calculate(options.Selection{FloorOptionID: ptr("floor-9")})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = c.Calculate(options.Selection{FloorOptionID: ptr("ladder-normal")})
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	applied, err := options.NewCatalog().Apply(options.Selection{
		FloorOptionID:  ptr("floor-2"),
		LadderOptionID: ptr("ladder-high"),
	})
	require.NoError(t, err)

	require.NotNil(t, applied.FloorOptionName)
	assert.Equal(t, "2층", *applied.FloorOptionName)
	assert.Equal(t, int64(20000), applied.FloorOptionFee)
	assert.Equal(t, int64(0), applied.LadderOptionFee)
	assert.Nil(t, applied.SpecialVehicleID)
	assert.Equal(t, int64(20000), applied.TotalOptionFee)
}
