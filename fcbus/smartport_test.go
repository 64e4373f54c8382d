package fcbus

import (
	"testing"
	"time"

	"github.com/ravenlrs/raven/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SmartPortFrame_RoundTrip(t *testing.T) {
	payload := SmartPortPayload{FrameID: SmartPortDataFrameID, ValueID: fsspDataIDVFAS, Data: 1260}
	frame := encodeSmartPortFrame(payload)

	var got []SmartPortPayload
	port := &SmartPortPort{}
	port.Feed(frame, func(p SmartPortPayload) { got = append(got, p) })

	if assert.Len(t, got, 1) {
		assert.Equal(t, payload, got[0])
	}
}

func Test_SmartPortFrame_WithStuffedBytes(t *testing.T) {
	payload := SmartPortPayload{FrameID: 0x7E, ValueID: 0x7D7D, Data: 0x7E7D7E7D}
	frame := encodeSmartPortFrame(payload)

	var got []SmartPortPayload
	port := &SmartPortPort{}
	port.Feed(frame, func(p SmartPortPayload) { got = append(got, p) })

	if assert.Len(t, got, 1) {
		assert.Equal(t, payload, got[0])
	}
}

func Test_SmartPortFrame_DropsBadChecksum(t *testing.T) {
	payload := SmartPortPayload{FrameID: SmartPortDataFrameID, ValueID: fsspDataIDVFAS, Data: 1260}
	frame := encodeSmartPortFrame(payload)
	frame[len(frame)-1] ^= 0xff

	var called bool
	port := &SmartPortPort{}
	port.Feed(frame, func(p SmartPortPayload) { called = true })
	assert.False(t, called)
}

func Test_DecodeDataPayload_VFAS(t *testing.T) {
	reg := telemetry.NewRegistry()
	now := time.Unix(1000, 0)
	ok := DecodeDataPayload(reg, SmartPortPayload{ValueID: fsspDataIDVFAS, Data: 126}, now)
	require.True(t, ok)
	v, _ := reg.Get(telemetry.IDBatVoltage)
	assert.Equal(t, uint16(1260), v.U16)
}

func Test_DecodeDataPayload_Unknown(t *testing.T) {
	reg := telemetry.NewRegistry()
	ok := DecodeDataPayload(reg, SmartPortPayload{ValueID: 0xffff, Data: 1}, time.Unix(1, 0))
	assert.False(t, ok)
}

func Test_PollPolicy_AlternatesFoundAndUnfound(t *testing.T) {
	pp := &PollPolicy{}
	pp.MarkFound(3)
	pp.MarkFound(7)

	seen := map[int]bool{}
	for tick := 0; tick < 6; tick++ {
		seen[pp.Next(tick)] = true
	}
	assert.True(t, seen[3] || seen[7])
}
