package fcbus

/*-------------------------------------------------------------
 *
 * Purpose:	SmartPort/S.Port framing (C5): the FrSky sensor-polling
 *		telemetry bus used by many flight controllers, including
 *		its byte-stuffed wire format, sensor ID poll rotation, and
 *		the MSP-over-S.Port tunnel used to carry settings traffic
 *		over the same wire as telemetry.
 *
 *--------------------------------------------------------------*/

import (
	"encoding/binary"
	"time"

	"github.com/ravenlrs/raven/msp"
	"github.com/ravenlrs/raven/telemetry"
)

const (
	SmartPortPollInterval       = 11 * time.Millisecond
	SmartPortDataFrameID        = 0x10
	SmartPortMSPVersion         = 1
	SmartPortMSPSensorID        = 0x0D
	SmartPortMSPClientFrameID   = 0x30
	SmartPortMSPServerFrameID   = 0x32
	SmartPortMSPPayloadChunkSize = 6

	smartPortStart   = 0x7E
	smartPortStuff   = 0x7D
	smartPortStuffXOR = 0x20

	smartPortPayloadSize = 7 // frame_id(1) + value_id(2) + data(4)
)

// SmartPortSensorIDs is the 28-entry FrSky sensor ID rotation table that
// a SmartPort master polls in turn.
var SmartPortSensorIDs = [28]byte{
	0x00, 0xA1, 0x22, 0x83, 0xE4, 0x45, 0xC6, 0x67,
	0x48, 0xE9, 0x6A, 0xCB, 0xAC, 0x0D, 0x8E, 0x2F,
	0xD0, 0x71, 0xF2, 0x53, 0x34, 0x95, 0x16, 0xB7,
	0x98, 0x39, 0xBA, 0x1B,
}

// Value IDs understood by smartPortDecodeDataPayload, from FrSky's
// FSSP_DATAID_* constants.
const (
	fsspDataIDSpeed    = 0x0830
	fsspDataIDVFAS     = 0x0210
	fsspDataIDCurrent  = 0x0200
	fsspDataIDAltitude = 0x0100
	fsspDataIDFuel     = 0x0600
	fsspDataIDVario    = 0x0110
	fsspDataIDHeading  = 0x0840
	fsspDataIDAccX     = 0x0700
	fsspDataIDAccY     = 0x0710
	fsspDataIDAccZ     = 0x0720
	fsspDataIDA4       = 0x0910
)

// SmartPortPayload is the 7-byte payload carried inside a SmartPort frame.
type SmartPortPayload struct {
	FrameID byte
	ValueID uint16
	Data    uint32
}

func (p SmartPortPayload) marshal() []byte {
	buf := make([]byte, smartPortPayloadSize)
	buf[0] = p.FrameID
	binary.LittleEndian.PutUint16(buf[1:3], p.ValueID)
	binary.LittleEndian.PutUint32(buf[3:7], p.Data)
	return buf
}

func unmarshalSmartPortPayload(buf []byte) SmartPortPayload {
	return SmartPortPayload{
		FrameID: buf[0],
		ValueID: binary.LittleEndian.Uint16(buf[1:3]),
		Data:    binary.LittleEndian.Uint32(buf[3:7]),
	}
}

// smartPortChecksum sums every payload byte into a 16-bit accumulator and
// folds it the way the FrSky bus does: 0xff - ((sum&0xff) + (sum>>8)).
func smartPortChecksum(buf []byte) byte {
	var sum uint16
	for _, b := range buf {
		sum += uint16(b)
	}
	return byte(0xff - ((sum & 0xff) + (sum >> 8)))
}

// encodeSmartPortFrame byte-stuffs payload (with its trailing checksum)
// after a leading 0x7E marker.
func encodeSmartPortFrame(payload SmartPortPayload) []byte {
	raw := payload.marshal()
	cksum := smartPortChecksum(raw)

	out := make([]byte, 0, 2+2*(len(raw)+1))
	out = append(out, smartPortStart)
	for _, b := range raw {
		out = appendStuffed(out, b)
	}
	out = appendStuffed(out, cksum)
	return out
}

func appendStuffed(out []byte, b byte) []byte {
	if b == smartPortStart || b == smartPortStuff {
		return append(out, smartPortStuff, b^smartPortStuffXOR)
	}
	return append(out, b)
}

// SmartPortPort decodes a byte-stuffed SmartPort stream into 7-byte
// payloads plus trailing checksum, one frame at a time.
type SmartPortPort struct {
	buf      [smartPortPayloadSize + 1]byte
	pos      int
	stuffing bool
	started  bool
}

// Feed processes newly read bytes, calling onPayload for every frame
// whose checksum validates.
func (p *SmartPortPort) Feed(data []byte, onPayload func(SmartPortPayload)) {
	for _, b := range data {
		switch {
		case b == smartPortStart:
			p.pos = 0
			p.stuffing = false
			p.started = true
		case !p.started:
			// garbage before the first start byte; ignore.
		case b == smartPortStuff:
			p.stuffing = true
		default:
			if p.stuffing {
				b ^= smartPortStuffXOR
				p.stuffing = false
			}
			if p.pos < len(p.buf) {
				p.buf[p.pos] = b
				p.pos++
			}
			if p.pos == len(p.buf) {
				if smartPortChecksum(p.buf[:smartPortPayloadSize]) == p.buf[smartPortPayloadSize] {
					onPayload(unmarshalSmartPortPayload(p.buf[:smartPortPayloadSize]))
				}
				p.started = false
			}
		}
	}
}

// DecodeDataPayload translates a SmartPort sensor value into the
// matching telemetry registry slot. It reports whether value_id was
// recognised.
func DecodeDataPayload(reg *telemetry.Registry, p SmartPortPayload, now time.Time) bool {
	data := int32(p.Data)
	switch p.ValueID {
	case fsspDataIDSpeed:
		reg.SetU16(telemetry.IDGPSSpeed, uint16(int64(p.Data)*100/1944), now)
	case fsspDataIDVFAS:
		reg.SetU16(telemetry.IDBatVoltage, uint16(p.Data*10), now)
	case fsspDataIDCurrent:
		reg.SetI16(telemetry.IDCurrent, int16(data*10), now)
	case fsspDataIDAltitude:
		reg.SetI32(telemetry.IDAltitude, data, now)
	case fsspDataIDFuel:
		reg.SetI32(telemetry.IDCurrentDrawn, data, now)
	case fsspDataIDVario:
		reg.SetI16(telemetry.IDVerticalSpeed, int16(data), now)
	case fsspDataIDHeading:
		reg.SetU16(telemetry.IDHeading, uint16(data/10+180), now)
	case fsspDataIDAccX:
		reg.SetI32(telemetry.IDAccX, data, now)
	case fsspDataIDAccY:
		reg.SetI32(telemetry.IDAccY, data, now)
	case fsspDataIDAccZ:
		reg.SetI32(telemetry.IDAccZ, data, now)
	case fsspDataIDA4:
		reg.SetU16(telemetry.IDAvgCellVoltage, uint16(p.Data), now)
	default:
		return false
	}
	return true
}

// decodeMSPServerPayload feeds an MSP-over-S.Port response frame into a
// telemetry connection's inbound chunk queue.
func decodeMSPServerPayload(tr *msp.Telemetry, p SmartPortPayload) bool {
	if p.FrameID != SmartPortMSPServerFrameID {
		return false
	}
	chunk := p.marshal()[1:] // value_id+data carry the 6 MSP chunk bytes
	header := chunk[0]
	seq := header & 0x0f
	start := header&0x10 != 0
	return tr.PushResponseChunk(seq, start, false, chunk[1:])
}

// encodeMSPClientChunk pops one outbound MSP chunk and wraps it as an
// MSP-over-S.Port client poll response.
func encodeMSPClientChunk(tr *msp.Telemetry) ([]byte, bool) {
	chunkBuf := make([]byte, 1+SmartPortMSPPayloadChunkSize)
	n := tr.PopRequestChunk(chunkBuf)
	if n == 0 {
		return nil, false
	}
	payload := SmartPortPayload{FrameID: SmartPortMSPClientFrameID}
	raw := make([]byte, smartPortPayloadSize)
	raw[0] = payload.FrameID
	copy(raw[1:], chunkBuf[:n])
	return encodeSmartPortFrame(unmarshalSmartPortPayload(raw)), true
}

// PollPolicy alternates SmartPort polls between sensors already known
// to respond ("found") and the remaining candidates, the way a
// SmartPort master balances discovery against steady-state polling.
type PollPolicy struct {
	found        [28]bool
	foundCount   int
	fromFound    bool
}

// MarkFound records that a sensor answered its poll.
func (pp *PollPolicy) MarkFound(idx int) {
	if !pp.found[idx] {
		pp.found[idx] = true
		pp.foundCount++
	}
}

// Next returns the index into SmartPortSensorIDs to poll next.
func (pp *PollPolicy) Next(tick int) int {
	if pp.foundCount > 0 && pp.fromFound {
		pp.fromFound = false
		return pp.nextFound(tick)
	}
	pp.fromFound = true
	return tick % len(SmartPortSensorIDs)
}

func (pp *PollPolicy) nextFound(tick int) int {
	if pp.foundCount == 0 {
		return tick % len(SmartPortSensorIDs)
	}
	skip := tick % pp.foundCount
	for i := range pp.found {
		if pp.found[i] {
			if skip == 0 {
				return i
			}
			skip--
		}
	}
	return 0
}
