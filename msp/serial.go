package msp

/*-------------------------------------------------------------
 *
 * Purpose:	MSP v1 framing over a plain serial transport:
 *		"$M<"/"$M>" + size + cmd + payload + XOR CRC.
 *
 *--------------------------------------------------------------*/

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/ravenlrs/raven/wire"
)

// v1ProtocolBytes is the non-payload overhead of an MSP v1 frame:
// '$', 'M', direction, size, cmd, crc.
const v1ProtocolBytes = 6

// SerialTransport frames MSP v1 over an io.ReadWriter, typically a
// hal.SerialPort. Read accumulates bytes across calls, resyncing on the
// "$M" preamble whenever leading garbage is seen.
type SerialTransport struct {
	port   io.Reader
	writer io.Writer
	buf    [MaxPayloadSize]byte
	bufPos int
	log    *log.Logger
}

// NewSerialTransport wraps rw as an MSP v1 serial transport.
func NewSerialTransport(rw io.ReadWriter) *SerialTransport {
	return &SerialTransport{
		port:   rw,
		writer: rw,
		log:    log.NewWithOptions(io.Discard, log.Options{Prefix: "MSP.Transport.Serial"}),
	}
}

// SetLogger overrides the transport's logger.
func (s *SerialTransport) SetLogger(l *log.Logger) {
	s.log = l
}

func packV1(direction Direction, cmd uint16, payload []byte) []byte {
	buf := make([]byte, 0, v1ProtocolBytes+len(payload))
	buf = append(buf, '$', 'M')
	switch direction {
	case ToFC:
		buf = append(buf, '<')
	case FromFC:
		buf = append(buf, '>')
	case DirectionError:
		buf = append(buf, '!')
	default:
		panic("msp: unreachable direction")
	}
	buf = append(buf, byte(len(payload)), byte(cmd))
	buf = append(buf, payload...)
	crc := wire.CRCXORBytes(buf[3:])
	buf = append(buf, crc)
	return buf
}

// Read implements Transport.
func (s *SerialTransport) Read(payload []byte) (Direction, uint16, int, error) {
	rem := len(s.buf) - s.bufPos
	n := 0
	if rem > 0 {
		var err error
		n, err = s.port.Read(s.buf[s.bufPos : s.bufPos+rem])
		if n <= 0 && s.bufPos == 0 {
			if err != nil && err != io.EOF {
				return 0, 0, 0, err
			}
			return 0, 0, 0, ErrEOF
		}
	}
	s.bufPos += n

	start := 0
	end := s.bufPos
	for end-start >= 2 {
		if s.buf[start] == '$' && s.buf[start+1] == 'M' {
			break
		}
		start++
	}

	if end-start < v1ProtocolBytes {
		return 0, 0, 0, ErrEOF
	}

	payloadSize := int(s.buf[start+3])
	packetSize := v1ProtocolBytes + payloadSize
	if end-start < packetSize {
		return 0, 0, 0, ErrEOF
	}

	var direction Direction
	switch s.buf[start+2] {
	case '<':
		direction = ToFC
	case '>':
		direction = FromFC
	case '!':
		direction = DirectionError
	}

	cmd := uint16(s.buf[start+4])
	crc := s.buf[start+packetSize-1]
	ccrc := wire.CRCXORBytes(s.buf[start+3 : start+packetSize-1])

	var packetData []byte
	if payloadSize > 0 {
		packetData = s.buf[start+5 : start+5+payloadSize]
	}
	copy(payload, packetData)

	invalidCRC := crc != ccrc
	if invalidCRC {
		s.log.Warnf("invalid CRC 0x%02x, expecting 0x%02x", crc, ccrc)
	}

	consumed := start + packetSize
	if consumed > 0 {
		copy(s.buf[:], s.buf[consumed:end])
		s.bufPos -= consumed
	}

	if invalidCRC {
		return direction, cmd, 0, ErrInvalidChecksum
	}
	if len(payload) < payloadSize {
		return direction, cmd, 0, ErrBufTooSmall
	}
	return direction, cmd, payloadSize, nil
}

// Write implements Transport.
func (s *SerialTransport) Write(direction Direction, cmd uint16, payload []byte) (int, error) {
	buf := packV1(direction, cmd, payload)
	if _, err := s.writer.Write(buf); err != nil {
		return 0, err
	}
	return len(payload), nil
}
