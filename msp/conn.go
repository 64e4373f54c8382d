package msp

/*-------------------------------------------------------------
 *
 * Purpose:	MSP connection: polls a transport, dispatches decoded
 *		messages either to a per-command callback queue or to a
 *		single registered global callback.
 *
 * The callback queue is a fixed-size ring buffer; Send force-pushes,
 * evicting the oldest pending callback (invoked with size -1) if the
 * queue is full, since callback expiration isn't implemented.
 *
 *--------------------------------------------------------------*/

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/ravenlrs/raven/ring"
)

// QueueMaxSize is the capacity of the pending-callback ring buffer.
const QueueMaxSize = 10

// CommandCallback is invoked when a reply to a previously sent command
// arrives. size is -1 when the command slot was evicted from the queue
// before a reply arrived; payload is nil in that case. Replies the
// transport reports as errors are not delivered to queued callbacks.
type CommandCallback func(conn *Conn, cmd uint16, payload []byte, size int)

type callbackReq struct {
	code     uint16
	callback CommandCallback
}

// Conn dispatches decoded MSP messages from a Transport, either to a
// queue of per-send callbacks or to one global callback.
type Conn struct {
	rb             *ring.Buffer[callbackReq]
	transport      Transport
	globalCallback CommandCallback
	log            *log.Logger
}

// NewConn creates a connection polling the given transport.
func NewConn(transport Transport) *Conn {
	return &Conn{
		rb:        ring.New[callbackReq](QueueMaxSize),
		transport: transport,
		log:       log.NewWithOptions(io.Discard, log.Options{Prefix: "MSP"}),
	}
}

// SetLogger overrides the connection's logger.
func (c *Conn) SetLogger(l *log.Logger) {
	c.log = l
}

// Update drains every complete message currently buffered in the
// transport and dispatches it.
func (c *Conn) Update() {
	buf := make([]byte, MaxPayloadSize)
	for {
		direction, cmd, n, err := c.transport.Read(buf)
		if err == ErrEOF {
			return
		}
		size := n
		switch err {
		case nil:
		case ErrInvalidChecksum:
			size = -2
		case ErrBufTooSmall:
			size = -3
		case ErrBusy:
			size = -4
		default:
			return
		}
		c.log.Debugf("got MSP (%s FC) code %d, payload size %d", directionLabel(direction), cmd, size)
		var data []byte
		if size > 0 {
			data = buf[:size]
		}
		c.DispatchMessage(direction, cmd, data, size)
	}
}

func directionLabel(d Direction) string {
	if d == FromFC {
		return "from"
	}
	return "to"
}

// Write sends a packet without queuing a reply callback.
func (c *Conn) Write(direction Direction, cmd uint16, payload []byte) (int, error) {
	return c.transport.Write(direction, cmd, payload)
}

// Send writes a command to the FC and, unless a global callback is set,
// queues callback to run when the matching reply is dispatched.
func (c *Conn) Send(cmd uint16, payload []byte, callback CommandCallback) (int, error) {
	n, err := c.Write(ToFC, cmd, payload)
	if err != nil {
		return n, err
	}
	if c.globalCallback == nil {
		if c.rb.Count() == c.rb.Capacity() {
			if old, ok := c.rb.Pop(); ok && old.callback != nil {
				old.callback(c, old.code, nil, -1)
			}
		}
		if !c.rb.ForcePush(callbackReq{code: cmd, callback: callback}) {
			c.log.Infof("MSP callback buffer is full")
			if callback != nil {
				callback(c, cmd, nil, -1)
			}
			return n, ErrBusy
		}
	}
	return n, nil
}

// DispatchMessage routes one decoded message, either to the global
// callback or to the oldest matching queued callback. Non-matching
// queued callbacks ahead of the match are discarded and never invoked,
// matching msp_conn_dispatch_message's "no better strategy" comment.
func (c *Conn) DispatchMessage(direction Direction, cmd uint16, data []byte, size int) {
	if c.globalCallback != nil {
		if size < 0 {
			c.log.Warnf("got MSP error code %d, skipping global callback", size)
			return
		}
		c.globalCallback(c, cmd, data, size)
		return
	}

	for {
		req, ok := c.rb.Pop()
		if !ok {
			return
		}
		if req.code == cmd {
			if size < 0 {
				c.log.Warnf("got MSP error code %d, skipping callback", size)
				return
			}
			if req.callback != nil {
				req.callback(c, cmd, data, size)
			}
			return
		}
		c.log.Warnf("discarding callback for MSP code %d (%d in queue)", req.code, c.rb.Count())
	}
}

// SetGlobalCallback installs cb as the receiver for every decoded
// message, bypassing the per-send callback queue. Pass nil to clear it.
func (c *Conn) SetGlobalCallback(cb CommandCallback) {
	c.globalCallback = cb
}
