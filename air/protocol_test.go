package air

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_TXPacket_ValidateRejectsWrongKey(t *testing.T) {
	pkt := &TXPacket{Seq: 3, Stream: []byte{1, 2, 3}}
	pkt.Prepare(42)
	assert.True(t, pkt.Validate(42))
	assert.False(t, pkt.Validate(43))
}

func Test_RXPacket_ValidateRejectsTamperedBody(t *testing.T) {
	pkt := &RXPacket{Seq: 3, RSSI: -60, SNR: 10, LQ: 95, Stream: []byte{9, 9}}
	pkt.Prepare(1234)
	pkt.RSSI = -61
	assert.False(t, pkt.Validate(1234))
}

func Test_Link_HandleRXPacket_RejectsBadCRC(t *testing.T) {
	l := NewLink(Pairing{Key: 1}, Mode1, nil, NewStream(nil, nil, nil))
	pkt := &RXPacket{Seq: 1, Stream: []byte{1}}
	pkt.Prepare(2) // wrong key
	assert.False(t, l.HandleRXPacket(pkt, time.Unix(1, 0)))
}

func Test_Link_ModeSwitch_TakesEffectAtSeq(t *testing.T) {
	l := NewLink(Pairing{Key: 7}, Mode1, nil, NewStream(nil, nil, nil))
	l.txSeq = 9
	l.RequestModeSwitch(Mode3, 10)

	l.MaybeSwitchBeforeTx() // next seq would be 10: switch should apply
	assert.Equal(t, Mode3, l.Mode())
}

func Test_Link_PromotesAfterSustainedLinkQuality(t *testing.T) {
	l := NewLink(Pairing{Key: 3}, Mode3, nil, NewStream(nil, nil, nil))
	l.SetSwitchThresholds(SwitchThresholds{LinkQualityPromote: 80, PromoteSustainedCycles: 3, DownlinkLostLimit: 100})

	base := time.Unix(2000, 0)
	for i := 0; i < 3; i++ {
		pkt := &RXPacket{Seq: uint8(i), LQ: 95}
		pkt.Prepare(3)
		assert.True(t, l.HandleRXPacket(pkt, base.Add(time.Duration(i)*time.Millisecond)))
	}

	assert.True(t, l.switchOut.pending)
	assert.Equal(t, Mode2, l.switchOut.ack.Mode)
}

func Test_Link_DoesNotPromoteBelowQualityThreshold(t *testing.T) {
	l := NewLink(Pairing{Key: 3}, Mode3, nil, NewStream(nil, nil, nil))
	l.SetSwitchThresholds(SwitchThresholds{LinkQualityPromote: 80, PromoteSustainedCycles: 3, DownlinkLostLimit: 100})

	base := time.Unix(2000, 0)
	for i := 0; i < 3; i++ {
		pkt := &RXPacket{Seq: uint8(i), LQ: 40}
		pkt.Prepare(3)
		l.HandleRXPacket(pkt, base.Add(time.Duration(i)*time.Millisecond))
	}

	assert.False(t, l.switchOut.pending)
}

func Test_Link_DemotesAfterConsecutiveDownlinkLost(t *testing.T) {
	l := NewLink(Pairing{Key: 5}, Mode3, nil, NewStream(nil, nil, nil))
	l.SetSwitchThresholds(SwitchThresholds{LinkQualityPromote: 80, PromoteSustainedCycles: 50, DownlinkLostLimit: 2})

	l.RecordDownlinkLost()
	l.RecordDownlinkLost()
	assert.False(t, l.switchOut.pending)

	l.RecordDownlinkLost()
	assert.True(t, l.switchOut.pending)
	assert.Equal(t, Mode4, l.switchOut.ack.Mode)
}

func Test_Link_RXFailsafe_TrueAfterTimeout(t *testing.T) {
	l := NewLink(Pairing{Key: 1}, Mode5, nil, NewStream(nil, nil, nil))
	base := time.Unix(1000, 0)
	pkt := &RXPacket{Seq: 1}
	pkt.Prepare(1)
	l.HandleRXPacket(pkt, base)

	assert.False(t, l.RXFailsafe(base.Add(100*time.Millisecond)))
	assert.True(t, l.RXFailsafe(base.Add(10*time.Second)))
}
