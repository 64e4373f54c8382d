package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FormatLatDegMin(t *testing.T) {
	assert.Equal(t, "4016.00N", FormatLatDegMin(40.2667))
	assert.Equal(t, "4016.00S", FormatLatDegMin(-40.2667))
}

func Test_FormatLonDegMin(t *testing.T) {
	assert.Equal(t, "07400.00E", FormatLonDegMin(74.0))
	assert.Equal(t, "07400.00W", FormatLonDegMin(-74.0))
}

func Test_BearingDeg_Range(t *testing.T) {
	b := BearingDeg(40, -74, 41, -73)
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
}

func Test_DistanceKM_SamePointIsZero(t *testing.T) {
	assert.InDelta(t, 0, DistanceKM(40, -74, 40, -74), 1e-9)
}
