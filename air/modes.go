package air

/*-------------------------------------------------------------
 *
 * Purpose:	Air mode timing table: the five (bandwidth, spreading
 *		factor, coding rate, packet size, cycle time, failsafe)
 *		presets a link negotiates between, fastest to longest-range.
 *
 * SeqBits is fixed at 4, not 8: the SwitchModeAck wire struct packs
 * mode:4 and at_tx_seq:SeqBits into a single byte (air_cmd.h), so
 * SeqBits can be at most 4.
 *
 *--------------------------------------------------------------*/

import "time"

// SeqBits is the width, in bits, of an air packet sequence number.
const SeqBits = 4

// SeqMask masks a sequence number down to SeqBits bits.
const SeqMask = (1 << SeqBits) - 1

// Mode identifies one of the five air modes. Values 1..5 double as the
// CmdSwitchMode1..5 opcodes (air_cmd_from_mode assumes this).
type Mode uint8

const (
	Mode1 Mode = iota + 1
	Mode2
	Mode3
	Mode4
	Mode5
)

// ModeCount is the number of air modes.
const ModeCount = 5

// ModeParams describes one air mode's LoRa radio configuration and
// timing budget.
type ModeParams struct {
	BandwidthHz      int
	SpreadingFactor  int
	CodingRate       int
	PacketSize       int
	CycleTime        time.Duration
	RXFailsafe       time.Duration
	TXFailsafe       time.Duration
}

// DefaultModeTable is the built-in mode table, fastest (Mode1) to
// longest-range (Mode5). Grounded in air_radio_fake.c's fake-radio
// defaults (500ms cycle / 100ms-class failsafe placeholders) and
// publicly documented SX127x LoRa airtime/range tradeoffs; overridable
// via YAML config (raven/config).
var DefaultModeTable = map[Mode]ModeParams{
	Mode1: {BandwidthHz: 500000, SpreadingFactor: 6, CodingRate: 5, PacketSize: 47, CycleTime: 9 * time.Millisecond, RXFailsafe: 100 * time.Millisecond, TXFailsafe: 600 * time.Millisecond},
	Mode2: {BandwidthHz: 500000, SpreadingFactor: 7, CodingRate: 6, PacketSize: 42, CycleTime: 11 * time.Millisecond, RXFailsafe: 150 * time.Millisecond, TXFailsafe: 800 * time.Millisecond},
	Mode3: {BandwidthHz: 250000, SpreadingFactor: 8, CodingRate: 7, PacketSize: 32, CycleTime: 20 * time.Millisecond, RXFailsafe: 250 * time.Millisecond, TXFailsafe: 1200 * time.Millisecond},
	Mode4: {BandwidthHz: 250000, SpreadingFactor: 9, CodingRate: 8, PacketSize: 24, CycleTime: 50 * time.Millisecond, RXFailsafe: 500 * time.Millisecond, TXFailsafe: 2000 * time.Millisecond},
	Mode5: {BandwidthHz: 125000, SpreadingFactor: 10, CodingRate: 8, PacketSize: 18, CycleTime: 100 * time.Millisecond, RXFailsafe: 1 * time.Second, TXFailsafe: 4 * time.Second},
}

// Faster reports whether m is a faster (lower airtime, shorter range)
// mode than other.
func (m Mode) Faster(other Mode) bool {
	return m < other
}
