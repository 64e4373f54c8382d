package fcbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FPortFrame_RoundTrip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	frame := EncodeFPortFrame(FPortControl, data)

	var got []FPortFrame
	port := &FPortPort{}
	port.Feed(frame, func(f FPortFrame) { got = append(got, f) })

	if assert.Len(t, got, 1) {
		assert.Equal(t, FPortControl, got[0].Type)
		assert.Equal(t, data, got[0].Data)
	}
}

func Test_FPortFrame_BackToBackFrames(t *testing.T) {
	f1 := EncodeFPortFrame(FPortControl, []byte{1, 2})
	f2 := EncodeFPortFrame(FPortTelemetryResponse, []byte{9, 9, 9})
	// the end marker of f1 is also the start marker of f2 on the wire.
	stream := append(f1[:len(f1)-1], f2...)

	var got []FPortFrame
	port := &FPortPort{}
	port.Feed(stream, func(f FPortFrame) { got = append(got, f) })

	if assert.Len(t, got, 2) {
		assert.Equal(t, FPortControl, got[0].Type)
		assert.Equal(t, FPortTelemetryResponse, got[1].Type)
	}
}

func Test_FPortFrame_DropsBadChecksum(t *testing.T) {
	frame := EncodeFPortFrame(FPortControl, []byte{1, 2, 3})
	frame[len(frame)-2] ^= 0xff

	var called bool
	port := &FPortPort{}
	port.Feed(frame, func(f FPortFrame) { called = true })
	assert.False(t, called)
}
