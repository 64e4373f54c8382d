package air

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_SwitchModeAck_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ack := SwitchModeAck{
			Mode:    Mode(rapid.IntRange(1, 5).Draw(t, "mode")),
			AtTxSeq: uint8(rapid.IntRange(0, SeqMask).Draw(t, "seq")),
		}
		got := UnmarshalSwitchModeAck(ack.Marshal())
		assert.Equal(t, ack, got)
	})
}

func Test_CmdSize_VariableCommands(t *testing.T) {
	assert.Equal(t, CmdVariableSize, CmdSize(CmdMSP))
	assert.Equal(t, CmdVariableSize, CmdSize(CmdRMP))
	assert.Equal(t, 0, CmdSize(CmdSwitchMode1))
	assert.Equal(t, 1, CmdSize(CmdSwitchModeAck))
}
