package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_CRC8DVBS2_KnownVector(t *testing.T) {
	// CRC8/DVB-S2 of an empty message is the seed itself.
	assert.Equal(t, byte(0x00), CRC8DVBS2Bytes(nil))
	assert.Equal(t, byte(0x00), CRC8DVBS2BytesFrom(0, nil))
	assert.Equal(t, byte(0x2a), CRC8DVBS2BytesFrom(0x2a, nil))
}

func Test_CRC8DVBS2_SeededEqualsFold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Byte().Draw(t, "seed")
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")

		got := CRC8DVBS2BytesFrom(seed, data)

		want := seed
		for _, b := range data {
			want = CRC8DVBS2(want, b)
		}
		assert.Equal(t, want, got)
	})
}

func Test_CRCXOR_IsCommutative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")

		forward := CRCXORBytes(data)

		reversed := make([]byte, len(data))
		for i, b := range data {
			reversed[len(data)-1-i] = b
		}
		backward := CRCXORBytes(reversed)

		assert.Equal(t, forward, backward)
	})
}

func Test_CRCXOR_SelfCancels(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")

		crc := CRCXORBytes(data)
		folded := CRCXOR(crc, crc)

		assert.Equal(t, byte(0), folded)
	})
}
