package air

/*-------------------------------------------------------------
 *
 * Purpose:	Air stream multiplexer (C8): a byte-stuffed pipe riding
 *		inside each air packet's data window, carrying channel
 *		updates, telemetry, and commands (including tunneled MSP).
 *
 * Grounded on original_source/main/air/air_stream.c/.h line-for-line:
 * the type-byte classification, escape/XOR stuffing rule, resync on a
 * sequence gap, and the four output encoders.
 *
 *--------------------------------------------------------------*/

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ravenlrs/raven/msp"
	"github.com/ravenlrs/raven/ring"
	"github.com/ravenlrs/raven/telemetry"
	"github.com/ravenlrs/raven/wire"
)

const (
	startStop = 0x7E
	byteStuff = 0x7D
	dataXOR   = 0x20

	telemetryMask    = 0x80
	cmdMask          = 0x40
	fullChannelMask  = 0x00
	twoBitChanMask   = telemetryMask | cmdMask
	dataTypeMask     = twoBitChanMask

	// AirChannelBits is the bit width of a full-precision channel value
	// carried over the air.
	AirChannelBits = 11

	// RCChannelsNum is the number of RC channels the stream supports.
	RCChannelsNum = 20

	RCChannelMinValue    = 988
	RCChannelCenterValue = 1500
	RCChannelMaxValue    = 2012

	// BufferCapacity mirrors AIR_STREAM_BUFFER_CAPACITY: the largest
	// logical record is an MSP payload plus its direction byte and
	// uvarint-encoded command-size overhead.
	BufferCapacity       = msp.MaxPayloadSize + 1 + 3 + 3
	InputBufferCapacity  = BufferCapacity * 2
	OutputBufferCapacity = BufferCapacity*2 + 1 + 1
	MaxPayloadSize       = BufferCapacity
)

// ChannelFunc receives a decoded channel update, value already in
// rc-data units ([RCChannelMinValue, RCChannelMaxValue]).
type ChannelFunc func(chn int, value uint16, now time.Time)

// TelemetryFunc receives a decoded telemetry record.
type TelemetryFunc func(id telemetry.ID, data []byte, now time.Time)

// CmdFunc receives a decoded command.
type CmdFunc func(cmd Cmd, data []byte, now time.Time)

// Stream is the air-stream codec: decodes inbound packet payloads into
// channel/telemetry/cmd callbacks, and encodes outbound records into a
// byte-stuffed output ring the packet scheduler drains.
type Stream struct {
	channel   ChannelFunc
	telemetry TelemetryFunc
	cmd       CmdFunc

	inputInSync bool
	inputSeq    uint8
	inputBuf    *ring.Buffer[byte]
	outputBuf   *ring.Buffer[byte]

	log *log.Logger
}

// NewStream builds a stream. channel may be nil for a stream that only
// ever sends (e.g. the TX side, which has no channel source to decode).
func NewStream(channel ChannelFunc, telemetry TelemetryFunc, cmd CmdFunc) *Stream {
	return &Stream{
		channel:   channel,
		telemetry: telemetry,
		cmd:       cmd,
		inputBuf:  ring.New[byte](InputBufferCapacity),
		outputBuf: ring.New[byte](OutputBufferCapacity),
		log:       log.NewWithOptions(io.Discard, log.Options{Prefix: "Air.Stream"}),
	}
}

// SetLogger overrides the stream's logger.
func (s *Stream) SetLogger(l *log.Logger) {
	s.log = l
}

func (s *Stream) sendsUplink() bool {
	return s.channel == nil
}

func (s *Stream) sendsDownlink() bool {
	return !s.sendsUplink()
}

func cmdDecode(cmd Cmd, data []byte) (cmdData []byte, ok bool) {
	dataSize := CmdSize(cmd)
	rem := data
	if dataSize == CmdVariableSize {
		explicitSize, used := wire.DecodeUvarint32(data)
		if used <= 0 {
			return nil, false
		}
		dataSize = int(explicitSize)
		rem = data[used:]
	}
	if dataSize != len(rem) {
		return nil, false
	}
	if dataSize == 0 {
		return nil, true
	}
	return rem, true
}

// FeedInput hands the stream newly-received air-packet payload bytes,
// tagged with the packet's sequence number. A sequence gap resets the
// byte-stuffed decoder and discards any partially-buffered record.
func (s *Stream) FeedInput(seq uint8, data []byte, now time.Time) {
	expected := (s.inputSeq + 1) & SeqMask
	if expected != seq&SeqMask {
		s.log.Debug("resetting air stream sequence", "seq", seq)
		s.inputInSync = false
		s.inputBuf.Empty()
	}
	s.inputSeq = seq & SeqMask

	for _, c := range data {
		if !s.inputInSync {
			s.inputInSync = c == startStop
			continue
		}
		if c == startStop {
			if s.inputBuf.Count() > 0 {
				s.decode(now)
			}
			continue
		}
		s.inputBuf.Push(c)
	}
}

func (s *Stream) decode(now time.Time) {
	var buf [MaxPayloadSize]byte
	p := 0
	for {
		c, ok := s.inputBuf.Pop()
		if !ok {
			break
		}
		if c == byteStuff {
			c, ok = s.inputBuf.Pop()
			if !ok {
				s.inputBuf.Empty()
				return
			}
			c ^= dataXOR
		}
		if p >= len(buf) {
			s.inputBuf.Empty()
			return
		}
		buf[p] = c
		p++
	}
	if p == 0 {
		return
	}

	switch buf[0] & dataTypeMask {
	case twoBitChanMask:
		chn := int((buf[0]&^byte(twoBitChanMask))>>2) + 4
		if chn < RCChannelsNum {
			var value uint16
			switch buf[0] & 3 {
			case 0:
				value = RCChannelMinValue
			case 1:
				value = RCChannelCenterValue
			case 2:
				value = RCChannelMaxValue
			default:
				return
			}
			if s.channel != nil {
				s.channel(chn, value, now)
			}
		}
	case telemetryMask:
		id := telemetry.ID(buf[0])
		if s.sendsUplink() {
			id &= ^telemetry.ID(telemetryMask)
		}
		size := telemetry.DataSize(id)
		var payload []byte
		if size == 0 {
			if buf[p-1] != 0 {
				s.log.Warn("discarding variable sized telemetry data, not NUL terminated")
				return
			}
			payload = buf[1 : p-1]
		} else if size != p-1 {
			s.log.Warn("discarding fixed sized telemetry data", "id", id, "expected", size, "actual", p-1)
			return
		} else {
			payload = buf[1:p]
		}
		if s.telemetry != nil {
			s.telemetry(id, payload, now)
		}
	case cmdMask:
		cmd := Cmd(buf[0] &^ byte(cmdMask))
		cmdData, ok := cmdDecode(cmd, buf[1:p])
		if !ok {
			s.log.Warn("discarding cmd", "cmd", cmd)
			return
		}
		if s.cmd != nil {
			s.cmd(cmd, cmdData, now)
		}
	case fullChannelMask:
		if p >= 2 {
			chn := int(buf[0]>>(AirChannelBits-8)) + 4
			if chn < RCChannelsNum {
				airValue := (uint32(buf[0])<<8 | uint32(buf[1])) & (1<<AirChannelBits - 1)
				value := decodeChannelFromBits(airValue, AirChannelBits)
				if s.channel != nil {
					s.channel(chn, value, now)
				}
			}
		}
	}
}

func encodeChannelToBits(value uint16, bits int) uint32 {
	span := RCChannelMaxValue - RCChannelMinValue
	max := uint32(1)<<bits - 1
	return uint32(int(value)-RCChannelMinValue) * max / uint32(span)
}

func decodeChannelFromBits(v uint32, bits int) uint16 {
	span := RCChannelMaxValue - RCChannelMinValue
	max := uint32(1)<<bits - 1
	return uint16(int(v*uint32(span)/max) + RCChannelMinValue)
}

func (s *Stream) feedOutput(data []byte) int {
	n := 0
	for _, c := range data {
		if c == startStop || c == byteStuff {
			n++
			c ^= dataXOR
			s.outputBuf.Push(byteStuff)
		}
		s.outputBuf.Push(c)
		n++
	}
	return n
}

// FeedOutputChannel encodes chn's value, using the compact 2-bit
// encoding for exactly min/center/max and the full-precision 11-bit
// encoding otherwise. chn must be in [4, RCChannelsNum).
func (s *Stream) FeedOutputChannel(chn int, value uint16) int {
	s.outputBuf.Push(startStop)
	n := chn - 4
	var buf []byte
	switch value {
	case RCChannelMinValue:
		buf = []byte{twoBitChanMask | byte(n<<2)}
	case RCChannelCenterValue:
		buf = []byte{twoBitChanMask | byte(n<<2) | 1}
	case RCChannelMaxValue:
		buf = []byte{twoBitChanMask | byte(n<<2) | 2}
	default:
		airValue := encodeChannelToBits(value, AirChannelBits)
		buf = []byte{
			byte(n<<(AirChannelBits-8)) | byte(airValue>>8),
			byte(airValue & 0xff),
		}
	}
	return 1 + s.feedOutput(buf)
}

func (s *Stream) feedOutputTelemetry(reg *telemetry.Registry, id telemetry.ID, tid byte) int {
	v, _ := reg.Get(id)
	data := telemetry.MarshalValue(id, v)
	if telemetry.Type(id) == telemetry.TypeString {
		data = append(append([]byte(nil), data...), 0)
	}
	s.outputBuf.Push(startStop)
	n := s.feedOutput([]byte{tid})
	return 1 + n + s.feedOutput(data)
}

// FeedOutputUplinkTelemetry enqueues an uplink telemetry record. Valid
// only on a stream that sends uplink (channel == nil, i.e. a TX).
func (s *Stream) FeedOutputUplinkTelemetry(reg *telemetry.Registry, id telemetry.ID) int {
	if !s.sendsUplink() {
		panic("air: FeedOutputUplinkTelemetry on a stream that sends downlink")
	}
	return s.feedOutputTelemetry(reg, id, byte(id))
}

// FeedOutputDownlinkTelemetry enqueues a downlink telemetry record.
// Valid only on a stream that sends downlink (an RX).
func (s *Stream) FeedOutputDownlinkTelemetry(reg *telemetry.Registry, id telemetry.ID) int {
	if !s.sendsDownlink() {
		panic("air: FeedOutputDownlinkTelemetry on a stream that sends uplink")
	}
	return s.feedOutputTelemetry(reg, id, byte(id)|telemetryMask)
}

// FeedOutputCmd enqueues a command, with a uvarint length prefix if
// cmd's payload is variable-sized.
func (s *Stream) FeedOutputCmd(cmd Cmd, data []byte) int {
	s.outputBuf.Push(startStop)
	n := s.feedOutput([]byte{byte(cmd) | cmdMask})
	if CmdSize(cmd) == CmdVariableSize {
		sizeBuf := make([]byte, 9)
		used := wire.EncodeUvarint32(sizeBuf, uint32(len(data)))
		n += s.feedOutput(sizeBuf[:used])
	}
	return 1 + n + s.feedOutput(data)
}

// OutputCount returns the number of bytes ready for output.
func (s *Stream) OutputCount() int {
	return s.outputBuf.Count()
}

// ResetOutput discards all buffered output, used to make room for
// urgent data.
func (s *Stream) ResetOutput() {
	s.outputBuf.Empty()
}

// PopOutput removes and returns one output byte.
func (s *Stream) PopOutput() (byte, bool) {
	return s.outputBuf.Pop()
}
