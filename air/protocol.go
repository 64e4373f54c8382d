package air

/*-------------------------------------------------------------
 *
 * Purpose:	Active-phase air protocol: per-packet keyed CRC, the
 *		TX/RX packet shapes, and the Link state machine driving
 *		mode switching and failsafe detection.
 *
 * Grounded on original_source/main/air/air.c (air_packet_crc,
 * air_tx_packet_prepare/validate, air_rx_packet_prepare/validate) and
 * spec.md §4.9's bind/active-phase/mode-switching description.
 *
 *--------------------------------------------------------------*/

import (
	"time"

	"github.com/ravenlrs/raven/wire"
)

// packetCRC computes the keyed CRC over packet (minus its trailing CRC
// byte): seed with crc8_dvb_s2(key_bytes), then fold over the body.
func packetCRC(key Key, body []byte) byte {
	seed := wire.CRC8DVBS2Bytes(key.bytes())
	return wire.CRC8DVBS2BytesFrom(seed, body)
}

// TXPacket is sent TX -> RX every cycle.
type TXPacket struct {
	Seq    uint8
	Stream []byte
	CRC    byte
}

func (p *TXPacket) body() []byte {
	return append([]byte{p.Seq & SeqMask}, p.Stream...)
}

// Prepare computes and sets the packet's keyed CRC.
func (p *TXPacket) Prepare(key Key) {
	p.CRC = packetCRC(key, p.body())
}

// Validate reports whether the packet's CRC matches key.
func (p *TXPacket) Validate(key Key) bool {
	return p.CRC == packetCRC(key, p.body())
}

// RXPacket is sent RX -> TX every cycle, acknowledging the TX packet
// and carrying downlink stream bytes plus link-quality telemetry.
type RXPacket struct {
	Seq    uint8
	RSSI   int8
	SNR    int8
	LQ     int8
	Stream []byte
	CRC    byte
}

func (p *RXPacket) body() []byte {
	buf := []byte{p.Seq & SeqMask, byte(p.RSSI), byte(p.SNR), byte(p.LQ)}
	return append(buf, p.Stream...)
}

// Prepare computes and sets the packet's keyed CRC.
func (p *RXPacket) Prepare(key Key) {
	p.CRC = packetCRC(key, p.body())
}

// Validate reports whether the packet's CRC matches key.
func (p *RXPacket) Validate(key Key) bool {
	return p.CRC == packetCRC(key, p.body())
}

// Radio is the out-of-scope radio collaborator (spec.md §6): opaque
// send/receive of pre-framed packet bytes at a given air mode.
type Radio interface {
	SetFrequency(hz int)
	SetSyncWord(b byte)
	SetMode(mode Mode)
	Send(data []byte) error
	Receive() ([]byte, error)
	RSSI() int8
	SNR() int8
	LinkQuality() int8
}

// modeSwitchState tracks an in-flight mode-switch negotiation.
type modeSwitchState struct {
	pending bool
	ack     SwitchModeAck
}

// SwitchThresholds configures the automatic promote/demote decision a
// Link evaluates every cycle (spec.md §4.9).
type SwitchThresholds struct {
	// LinkQualityPromote is the RXPacket.LQ value (0-100) a cycle must
	// meet or exceed to count toward the promote streak.
	LinkQualityPromote int8

	// PromoteSustainedCycles is how many consecutive such cycles are
	// required before the link tries a faster mode.
	PromoteSustainedCycles int

	// DownlinkLostLimit is how many consecutive missed downlinks
	// trigger a demote to a longer-range mode.
	DownlinkLostLimit int
}

// DefaultSwitchThresholds is used by NewLink unless overridden with
// SetSwitchThresholds.
var DefaultSwitchThresholds = SwitchThresholds{
	LinkQualityPromote:     80,
	PromoteSustainedCycles: 50,
	DownlinkLostLimit:      100,
}

// Link drives one side (TX or RX) of the active phase: cycle-by-cycle
// packet exchange, mode negotiation, and failsafe detection.
type Link struct {
	pairing Pairing
	mode    Mode
	modes   map[Mode]ModeParams

	stream *Stream

	txSeq uint8
	rxSeq uint8

	lastRXAt time.Time
	lastTXAt time.Time

	consecutiveDownlinkLost int
	rxQualityStreak         int

	thresholds SwitchThresholds

	switchOut modeSwitchState
	switchIn  modeSwitchState

	rejected bool

	bindRequested bool
}

// NewLink builds a Link bound to pairing and stream, starting in mode.
func NewLink(pairing Pairing, mode Mode, modes map[Mode]ModeParams, stream *Stream) *Link {
	if modes == nil {
		modes = DefaultModeTable
	}
	return &Link{pairing: pairing, mode: mode, modes: modes, stream: stream, thresholds: DefaultSwitchThresholds}
}

// SetSwitchThresholds overrides the link's promote/demote thresholds.
func (l *Link) SetSwitchThresholds(t SwitchThresholds) {
	l.thresholds = t
}

// Mode returns the link's current air mode.
func (l *Link) Mode() Mode {
	return l.mode
}

// NextTXPacket builds the next outbound TX packet: increments the
// sequence number, drains as much stream output as the mode's packet
// size allows, and keys the CRC.
func (l *Link) NextTXPacket(now time.Time) *TXPacket {
	l.txSeq = (l.txSeq + 1) & SeqMask
	l.lastTXAt = now

	budget := l.modes[l.mode].PacketSize
	stream := make([]byte, 0, budget)
	for len(stream) < budget {
		b, ok := l.stream.PopOutput()
		if !ok {
			break
		}
		stream = append(stream, b)
	}

	pkt := &TXPacket{Seq: l.txSeq, Stream: stream}
	pkt.Prepare(l.pairing.Key)
	return pkt
}

// HandleRXPacket validates and feeds an inbound RX packet into the
// stream, updating failsafe bookkeeping. It reports whether the
// packet was accepted.
func (l *Link) HandleRXPacket(pkt *RXPacket, now time.Time) bool {
	if !pkt.Validate(l.pairing.Key) {
		return false
	}
	l.lastRXAt = now
	l.consecutiveDownlinkLost = 0
	l.stream.FeedInput(pkt.Seq, pkt.Stream, now)

	if pkt.LQ >= l.thresholds.LinkQualityPromote {
		l.rxQualityStreak++
	} else {
		l.rxQualityStreak = 0
	}
	l.evaluateModeSwitch()

	return true
}

// RecordDownlinkLost marks one cycle where no valid RX packet arrived,
// resetting the promote streak and demoting to a longer-range mode once
// the link's downlink-lost threshold is exceeded.
func (l *Link) RecordDownlinkLost() {
	l.consecutiveDownlinkLost++
	l.rxQualityStreak = 0
	l.evaluateModeSwitch()
}

// fasterMode returns the next faster mode present in the link's mode
// table, if any.
func (l *Link) fasterMode() (Mode, bool) {
	if l.mode <= Mode1 {
		return 0, false
	}
	for m := l.mode - 1; m >= Mode1; m-- {
		if _, ok := l.modes[m]; ok {
			return m, true
		}
	}
	return 0, false
}

// longerMode returns the next longer-range mode present in the link's
// mode table, if any.
func (l *Link) longerMode() (Mode, bool) {
	if l.mode >= Mode5 {
		return 0, false
	}
	for m := l.mode + 1; m <= Mode5; m++ {
		if _, ok := l.modes[m]; ok {
			return m, true
		}
	}
	return 0, false
}

// switchLeadCycles is how many TX cycles ahead of the current one a
// self-initiated mode switch is scheduled for, giving the SWITCH_MODE
// command time to reach the peer before the switch takes effect.
const switchLeadCycles = 2

// evaluateModeSwitch implements spec.md §4.9's adaptive mode-switch
// rule: demote to a longer-range mode once consecutive-downlink-lost
// exceeds the configured limit, or promote to a faster one once RX
// link quality has stayed at or above threshold for enough consecutive
// cycles. A demote always takes priority over a promote. Does nothing
// if a switch is already pending or no such mode exists in the link's
// table.
func (l *Link) evaluateModeSwitch() {
	if l.switchOut.pending {
		return
	}

	if l.consecutiveDownlinkLost > l.thresholds.DownlinkLostLimit {
		if mode, ok := l.longerMode(); ok {
			l.requestModeSwitch(mode)
		}
		return
	}

	if l.thresholds.PromoteSustainedCycles > 0 && l.rxQualityStreak >= l.thresholds.PromoteSustainedCycles {
		if mode, ok := l.fasterMode(); ok {
			l.requestModeSwitch(mode)
		}
	}
}

// requestModeSwitch arms a switch to mode a few cycles out and
// announces it to the peer over the air stream.
func (l *Link) requestModeSwitch(mode Mode) {
	atTxSeq := (l.txSeq + switchLeadCycles) & SeqMask
	l.RequestModeSwitch(mode, atTxSeq)
	l.stream.FeedOutputCmd(SwitchCmdFromMode(mode), nil)
}

// ConsecutiveDownlinkLost returns the current missed-downlink streak.
func (l *Link) ConsecutiveDownlinkLost() int {
	return l.consecutiveDownlinkLost
}

// RXFailsafe reports whether the link should be considered failed-safe
// on the RX side: no valid counterpart packet within the mode's
// rx_failsafe_interval.
func (l *Link) RXFailsafe(now time.Time) bool {
	if l.lastRXAt.IsZero() {
		return false
	}
	return now.Sub(l.lastRXAt) > l.modes[l.mode].RXFailsafe
}

// TXFailsafe reports the same, from the TX side's perspective.
func (l *Link) TXFailsafe(now time.Time) bool {
	if l.lastRXAt.IsZero() {
		return false
	}
	return now.Sub(l.lastRXAt) > l.modes[l.mode].TXFailsafe
}

// RequestModeSwitch arms a pending switch to mode, to take effect just
// before TX sequence atTxSeq.
func (l *Link) RequestModeSwitch(mode Mode, atTxSeq uint8) {
	l.switchOut = modeSwitchState{pending: true, ack: SwitchModeAck{Mode: mode, AtTxSeq: atTxSeq & SeqMask}}
}

// HandleSwitchModeAck processes an inbound ack, arming the switch on
// our side to happen at the same tx_seq.
func (l *Link) HandleSwitchModeAck(ack SwitchModeAck) {
	l.switchIn = modeSwitchState{pending: true, ack: ack}
}

// HandleRejectMode cancels any switch we proposed.
func (l *Link) HandleRejectMode() {
	l.switchOut = modeSwitchState{}
	l.rejected = true
}

// HandleButtonEdge is the GPIO ISR bridge's entry point (hal.GPIOButton):
// a falling edge on the bind button requests that the link re-enter
// pairing on its next convenient cycle. It must not block or allocate,
// since it may run from interrupt context on the target firmware.
func (l *Link) HandleButtonEdge() {
	l.bindRequested = true
}

// BindRequested reports whether HandleButtonEdge fired since the last
// ClearBindRequest.
func (l *Link) BindRequested() bool {
	return l.bindRequested
}

// ClearBindRequest acknowledges a pending bind request.
func (l *Link) ClearBindRequest() {
	l.bindRequested = false
}

// MaybeSwitchBeforeTx performs a pending mode switch if the upcoming
// TX sequence (l.txSeq+1) matches the armed at_tx_seq, for both a
// locally-requested switch and one acked from the peer.
func (l *Link) MaybeSwitchBeforeTx() {
	nextSeq := (l.txSeq + 1) & SeqMask
	if l.switchIn.pending && l.switchIn.ack.AtTxSeq == nextSeq {
		l.mode = l.switchIn.ack.Mode
		l.switchIn = modeSwitchState{}
	}
	if l.switchOut.pending && l.switchOut.ack.AtTxSeq == nextSeq {
		l.mode = l.switchOut.ack.Mode
		l.switchOut = modeSwitchState{}
	}
}
