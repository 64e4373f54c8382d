package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_Uvarint16_RoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint16().Draw(t, "v")

		buf := make([]byte, 4)
		n := EncodeUvarint16(buf, v)
		assert.Greater(t, n, 0)

		got, used := DecodeUvarint16(buf[:n])
		assert.Equal(t, n, used)
		assert.Equal(t, v, got)
	})
}

func Test_Uvarint32_RoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint32().Draw(t, "v")

		buf := make([]byte, 6)
		n := EncodeUvarint32(buf, v)
		assert.Greater(t, n, 0)

		got, used := DecodeUvarint32(buf[:n])
		assert.Equal(t, n, used)
		assert.Equal(t, v, got)
	})
}

func Test_EncodeUvarint_TooSmallBuffer(t *testing.T) {
	assert.Equal(t, -1, EncodeUvarint16(nil, 1))
	assert.Equal(t, -1, EncodeUvarint32(make([]byte, 1), 1<<20))
}

func Test_DecodeUvarint_Truncated(t *testing.T) {
	// A continuation byte with nothing after it never terminates.
	_, n := DecodeUvarint16([]byte{0x80, 0x80, 0x80})
	assert.Equal(t, -1, n)
}

func Test_DecodeUvarint16_KnownVector(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low7=0101100|0x80, rest=10 -> 0xAC, 0x02
	v, n := DecodeUvarint16([]byte{0xAC, 0x02})
	assert.Equal(t, 2, n)
	assert.Equal(t, uint16(300), v)
}
