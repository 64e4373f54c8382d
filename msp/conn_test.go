package msp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	writes  []struct {
		dir     Direction
		cmd     uint16
		payload []byte
	}
	reads []struct {
		dir     Direction
		cmd     uint16
		payload []byte
		err     error
	}
}

func (f *fakeTransport) Write(direction Direction, cmd uint16, payload []byte) (int, error) {
	f.writes = append(f.writes, struct {
		dir     Direction
		cmd     uint16
		payload []byte
	}{direction, cmd, payload})
	return len(payload), nil
}

func (f *fakeTransport) Read(payload []byte) (Direction, uint16, int, error) {
	if len(f.reads) == 0 {
		return 0, 0, 0, ErrEOF
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	if r.err != nil {
		return r.dir, r.cmd, 0, r.err
	}
	n := copy(payload, r.payload)
	return r.dir, r.cmd, n, nil
}

func Test_Conn_Send_InvokesCallbackOnMatch(t *testing.T) {
	tr := &fakeTransport{}
	conn := NewConn(tr)

	var gotCmd uint16
	var gotPayload []byte
	_, err := conn.Send(108, nil, func(c *Conn, cmd uint16, payload []byte, size int) {
		gotCmd = cmd
		gotPayload = append([]byte(nil), payload...)
	})
	require.NoError(t, err)

	conn.DispatchMessage(FromFC, 108, []byte{1, 2, 3}, 3)
	assert.Equal(t, uint16(108), gotCmd)
	assert.Equal(t, []byte{1, 2, 3}, gotPayload)
}

func Test_Conn_DispatchMessage_DiscardsMismatch(t *testing.T) {
	tr := &fakeTransport{}
	conn := NewConn(tr)

	var calledA, calledB bool
	conn.Send(1, nil, func(c *Conn, cmd uint16, payload []byte, size int) { calledA = true })
	conn.Send(2, nil, func(c *Conn, cmd uint16, payload []byte, size int) { calledB = true })

	conn.DispatchMessage(FromFC, 2, nil, 0)
	assert.False(t, calledA, "callback for code 1 must be discarded, not invoked")
	assert.True(t, calledB)
}

func Test_Conn_GlobalCallback_OverridesQueue(t *testing.T) {
	tr := &fakeTransport{}
	conn := NewConn(tr)

	var queued bool
	conn.Send(5, nil, func(c *Conn, cmd uint16, payload []byte, size int) { queued = true })

	var global bool
	conn.SetGlobalCallback(func(c *Conn, cmd uint16, payload []byte, size int) { global = true })
	conn.DispatchMessage(FromFC, 5, nil, 0)

	assert.True(t, global)
	assert.False(t, queued)
}

func Test_Conn_Update_DrainsAndDispatches(t *testing.T) {
	tr := &fakeTransport{}
	tr.reads = append(tr.reads, struct {
		dir     Direction
		cmd     uint16
		payload []byte
		err     error
	}{FromFC, 42, []byte{7}, nil})

	conn := NewConn(tr)
	var got uint16
	conn.Send(42, nil, func(c *Conn, cmd uint16, payload []byte, size int) { got = cmd })
	conn.Update()
	assert.Equal(t, uint16(42), got)
}
