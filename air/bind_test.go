package air

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Addr_String(t *testing.T) {
	a := Addr{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	assert.Equal(t, "DE:AD:BE:EF:01:02", a.String())
}

func Test_GenerateKey_NeverZero(t *testing.T) {
	for i := 0; i < 50; i++ {
		k, err := GenerateKey()
		require.NoError(t, err)
		assert.NotZero(t, k)
	}
}

func Test_BindPacket_RoundTrip(t *testing.T) {
	p := &BindPacket{
		Version:      ProtocolVersion,
		Addr:         Addr{1, 2, 3, 4, 5, 6},
		Key:          0xdeadbeef,
		Capabilities: CapButton | CapScreen,
		Channels:     12,
		MaxTXPower:   20,
	}
	data := p.Marshal()

	got, ok := UnmarshalBindPacket(data)
	require.True(t, ok)
	assert.Equal(t, p.Addr, got.Addr)
	assert.Equal(t, p.Key, got.Key)
	assert.Equal(t, p.Capabilities, got.Capabilities)
	assert.Equal(t, p.Channels, got.Channels)
	assert.Equal(t, p.MaxTXPower, got.MaxTXPower)
}

func Test_BindPacket_RejectsCorruptCRC(t *testing.T) {
	p := &BindPacket{Addr: Addr{1, 2, 3, 4, 5, 6}, Key: 42}
	data := p.Marshal()
	data[len(data)-1] ^= 0xff

	_, ok := UnmarshalBindPacket(data)
	assert.False(t, ok)
}

func Test_SyncWord_DiffersAcrossKeys(t *testing.T) {
	assert.NotEqual(t, SyncWord(1), SyncWord(2))
}
