package msp

/*-------------------------------------------------------------
 *
 * Purpose:	MSP-over-telemetry transport: fragments MSP requests and
 *		responses into fixed-size chunks carried over an FC-bus
 *		telemetry carrier (such as MSP-over-S.Port frames), and
 *		reassembles them back into whole MSP messages on the
 *		other side.
 *
 * A request/response in flight is tracked by sequence number and an
 * "in use since" timestamp so a stalled peer can be abandoned after
 * telemetryTimeout, exactly as msp_telemetry_in_use does.
 *
 *--------------------------------------------------------------*/

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ravenlrs/raven/ring"
	"github.com/ravenlrs/raven/wire"
)

// TelemetryMSPVersion is the version field carried in every request
// chunk header.
const TelemetryMSPVersion = 1

const telemetryTimeout = 1 * time.Second

// pendingChunk is the intermediate representation pushed into the byte
// ring buffers for both outgoing requests and responses.
type pendingChunk struct {
	start bool
	size  byte
}

type blob struct {
	payloadSize byte
	cmd         byte
}

// Telemetry fragments/reassembles MSP messages over a size-limited,
// chunked channel. One Telemetry handles a single direction pair: the
// FC side is built with NewTelemetryInput, the radio side with
// NewTelemetryOutput.
type Telemetry struct {
	req  *ring.Buffer[byte]
	resp *ring.Buffer[byte]

	maxSize int

	reqSeq  byte
	respSeq byte

	size int
	recv int
	cmd  byte

	count      int
	inUseSince time.Time

	readSide  *ring.Buffer[byte]
	direction Direction

	log *log.Logger
}

const telemetryQueueSize = 2048

func newTelemetry(maxChunkDataSize int) *Telemetry {
	return &Telemetry{
		req:     ring.New[byte](telemetryQueueSize),
		resp:    ring.New[byte](telemetryQueueSize),
		maxSize: maxChunkDataSize,
		log:     log.NewWithOptions(io.Discard, log.Options{Prefix: "MSP.Transport.Telemetry"}),
	}
}

// NewTelemetryInput builds the FC-facing side: Read yields decoded
// requests (direction ToFC), Write accepts responses to fragment back
// out as response chunks.
func NewTelemetryInput(maxRespChunkSize int) *Telemetry {
	t := newTelemetry(maxRespChunkSize)
	t.readSide = t.req
	t.direction = ToFC
	return t
}

// NewTelemetryOutput builds the radio-facing side: Read yields decoded
// responses (direction FromFC), Write accepts requests to fragment out
// as request chunks.
func NewTelemetryOutput(maxReqChunkSize int) *Telemetry {
	t := newTelemetry(maxReqChunkSize)
	t.readSide = t.resp
	t.direction = FromFC
	return t
}

// SetLogger overrides the transport's logger.
func (t *Telemetry) SetLogger(l *log.Logger) {
	t.log = l
}

func (t *Telemetry) maxChunkDataSize() int {
	return t.maxSize - 1
}

func (t *Telemetry) inUse() bool {
	return !t.inUseSince.IsZero() && time.Since(t.inUseSince) <= telemetryTimeout
}

// Read implements Transport, decoding one reassembled message from the
// side (request or response) this Telemetry was built to read.
func (t *Telemetry) Read(payload []byte) (Direction, uint16, int, error) {
	if t.count <= 0 {
		return 0, 0, 0, ErrEOF
	}
	t.count--

	b, ok := popBlob(t.readSide)
	if !ok {
		t.log.Errorf("could not pop blob")
		return 0, 0, 0, ErrEOF
	}

	var ccrc byte
	ccrc = wire.CRCXOR(ccrc, b.payloadSize)
	ccrc = wire.CRCXOR(ccrc, b.cmd)

	n := 0
	for i := 0; i < int(b.payloadSize); i++ {
		v, ok := t.readSide.Pop()
		if !ok {
			t.log.Errorf("error popping byte %d with payload_size = %d", i, b.payloadSize)
			return 0, 0, 0, ErrEOF
		}
		ccrc = wire.CRCXOR(ccrc, v)
		if n < len(payload) {
			payload[n] = v
		}
		n++
	}

	crc, ok := t.readSide.Pop()
	if !ok {
		t.log.Errorf("error popping CRC")
		return 0, 0, 0, ErrEOF
	}
	if crc != ccrc {
		t.log.Warnf("invalid CRC %d, expecting %d", crc, ccrc)
	}

	if int(b.payloadSize) >= len(payload) {
		return t.direction, uint16(b.cmd), 0, ErrBufTooSmall
	}
	return t.direction, uint16(b.cmd), int(b.payloadSize), nil
}

// Write implements Transport, fragmenting payload into chunks pushed
// onto the opposite ring buffer from Read's.
func (t *Telemetry) Write(direction Direction, cmd uint16, payload []byte) (int, error) {
	rb := t.resp
	if t.direction == FromFC {
		rb = t.req
	}

	totalSize := len(payload) + 2
	if direction == ToFC {
		totalSize++
	}
	remaining := totalSize
	maxData := t.maxChunkDataSize()
	chunkSize := min(remaining, maxData)

	if !pushChunk(rb, pendingChunk{start: true, size: byte(chunkSize)}) {
		return 0, ErrBusy
	}

	var crc byte
	size8 := byte(len(payload))
	crc = wire.CRCXOR(crc, size8)
	if !rb.Push(size8) {
		return 0, ErrBusy
	}

	cmd8 := byte(cmd)
	crc = wire.CRCXOR(crc, cmd8)
	remaining--
	chunkSize--
	if direction == ToFC {
		if !rb.Push(cmd8) {
			return 0, ErrBusy
		}
		remaining--
		chunkSize--
	}

	for i := 0; remaining > 1; i++ {
		b := payload[i]
		if !rb.Push(b) {
			return 0, ErrBusy
		}
		crc = wire.CRCXOR(crc, b)
		remaining--
		chunkSize--
		if chunkSize == 0 && remaining > 0 {
			chunkSize = min(remaining, maxData)
			if !pushChunk(rb, pendingChunk{start: false, size: byte(chunkSize)}) {
				return 0, ErrBusy
			}
		}
	}

	if !rb.Push(crc) {
		return 0, ErrBusy
	}
	return len(payload), nil
}

func pushChunk(rb *ring.Buffer[byte], c pendingChunk) bool {
	if !rb.Push(boolByte(c.start)) {
		return false
	}
	return rb.Push(c.size)
}

func popChunk(rb *ring.Buffer[byte]) (pendingChunk, bool) {
	startB, ok := rb.Pop()
	if !ok {
		return pendingChunk{}, false
	}
	size, ok := rb.Pop()
	if !ok {
		return pendingChunk{}, false
	}
	return pendingChunk{start: startB != 0, size: size}, true
}

func nextChunkStarts(rb *ring.Buffer[byte]) bool {
	v, ok := rb.Peek()
	return ok && v != 0
}

func pushBlob(rb *ring.Buffer[byte], b blob) bool {
	if !rb.Push(b.payloadSize) {
		return false
	}
	return rb.Push(b.cmd)
}

func popBlob(rb *ring.Buffer[byte]) (blob, bool) {
	size, ok := rb.Pop()
	if !ok {
		return blob{}, false
	}
	cmd, ok := rb.Pop()
	if !ok {
		return blob{}, false
	}
	return blob{payloadSize: size, cmd: cmd}, true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PushRequestChunk feeds one request chunk received over the air into
// the reassembly buffer. It returns false on a version mismatch, a
// sequence error (which flushes the in-flight request), or a busy
// in-flight request clashing with a new start chunk.
func (t *Telemetry) PushRequestChunk(seq byte, start bool, version byte, data []byte) bool {
	if version != TelemetryMSPVersion {
		return false
	}
	ptr := 0
	if start {
		if t.inUse() {
			t.log.Warnf("request chunk with request in flight")
			return false
		}
		if len(data) < 2 {
			return false
		}
		b := blob{payloadSize: data[0], cmd: data[1]}
		if !pushBlob(t.req, b) {
			return false
		}
		t.reqSeq = seq
		t.size = int(b.payloadSize) + 3
		t.recv = 2
		ptr = 2
		t.inUseSince = time.Now()
	} else {
		t.reqSeq = (t.reqSeq + 1) & 0x0f
		if t.reqSeq != seq {
			t.log.Warnf("MSP request with invalid seq, expected %d but got %d", t.reqSeq, seq)
			t.req.Empty()
			return false
		}
	}

	dataSize := min(len(data)-ptr, t.size-t.recv)
	for i := 0; i < dataSize; i++ {
		t.req.Push(data[ptr+i])
	}
	t.recv += dataSize
	if t.size == t.recv {
		t.inUseSince = time.Time{}
		t.count++
		t.log.Debugf("MSP req complete")
	}
	return true
}

// PopResponseChunk pops the next pending response chunk into buf,
// which must have room for at least maxChunkDataSize()+1 bytes, and
// returns the number of bytes written, or 0 if nothing is pending.
func (t *Telemetry) PopResponseChunk(buf []byte) int {
	chunk, ok := popChunk(t.resp)
	if !ok {
		return 0
	}
	if len(buf) < 1 {
		return 0
	}
	buf[0] = (t.respSeq & 0x0f) | boolBit(chunk.start, 4)
	t.respSeq++
	n := 1
	for i := 0; i < int(chunk.size); i++ {
		v, ok := t.resp.Pop()
		if !ok {
			return 0
		}
		if n < len(buf) {
			buf[n] = v
		}
		n++
	}
	return int(chunk.size) + 1
}

func boolBit(b bool, bit uint) byte {
	if b {
		return 1 << bit
	}
	return 0
}

// PushResponseChunk feeds one response chunk received from the FC side
// into the reassembly buffer. err reports the chunk's error flag.
func (t *Telemetry) PushResponseChunk(seq byte, start, errFlag bool, data []byte) bool {
	if errFlag {
		t.log.Warnf("MSP reply with error flag")
		t.inUseSince = time.Time{}
		return false
	}
	ptr := 0
	size := len(data)
	if start {
		if len(data) < 1 {
			return false
		}
		t.respSeq = seq
		b := blob{payloadSize: data[0], cmd: t.cmd}
		if !pushBlob(t.resp, b) {
			return false
		}
		t.size = int(b.payloadSize) + 1
		t.recv = 0
		ptr = 1
		size--
	} else {
		t.respSeq = (t.respSeq + 1) & 0x0f
		if t.respSeq != seq {
			t.log.Warnf("MSP response with invalid seq, expected %d but got %d", t.respSeq, seq)
			t.inUseSince = time.Time{}
			return false
		}
	}
	for i := 0; i < size && t.recv < t.size; i++ {
		t.resp.Push(data[ptr+i])
		t.recv++
	}
	if t.recv == t.size {
		t.inUseSince = time.Time{}
		t.count++
		t.log.Debugf("MSP resp complete")
	}
	return true
}

// PopRequestChunk pops the next pending request chunk into buf, which
// must have room for at least maxChunkDataSize()+1 bytes, and returns
// the number of bytes written, or 0 if nothing is pending or the
// in-flight request hasn't timed out yet.
func (t *Telemetry) PopRequestChunk(buf []byte) int {
	if nextChunkStarts(t.req) && t.inUse() {
		return 0
	}
	chunk, ok := popChunk(t.req)
	if !ok {
		return 0
	}
	if len(buf) < 1 {
		return 0
	}
	buf[0] = (t.reqSeq & 0x0f) | boolBit(chunk.start, 4) | (TelemetryMSPVersion << 5)
	t.reqSeq++
	n := 1
	for i := 0; i < int(chunk.size); i++ {
		v, ok := t.req.Pop()
		if !ok {
			return 0
		}
		if n < len(buf) {
			buf[n] = v
		}
		n++
	}
	if chunk.start && len(buf) > 2 {
		t.inUseSince = time.Now()
		t.cmd = buf[2]
	}
	return int(chunk.size) + 1
}
