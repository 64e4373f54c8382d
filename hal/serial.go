// Package hal collects the hardware-facing collaborators a Raven link
// sits on top of: the FC/radio serial link, a GPIO button input, and
// serial device discovery for ravenctl. None of it is exercised by the
// protocol state machines directly; they're built against io.Reader/
// io.Writer and plain callbacks so tests never need real hardware.
package hal

/*-------------------------------------------------------------
 *
 * Purpose:	Serial port open/read/write/close, hiding OS differences.
 *
 * Grounded on src/serial_port.go (serial_port_open/write/get1/close),
 * generalized from the teacher's fixed AX.25 TNC baud rates to
 * whatever rate the FC/radio link needs.
 *
 *--------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

// SerialPort is a serial device opened in raw mode, read/written a
// byte stream at a time. It implements io.ReadWriteCloser.
type SerialPort struct {
	t *term.Term
}

// OpenSerialPort opens device at baud (0 leaves the current speed
// alone) in raw mode.
func OpenSerialPort(device string, baud int) (*SerialPort, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("hal: open serial port %s: %w", device, err)
	}

	if baud != 0 {
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, fmt.Errorf("hal: set speed %d on %s: %w", baud, device, err)
		}
	}

	return &SerialPort{t: t}, nil
}

// Read implements io.Reader.
func (s *SerialPort) Read(p []byte) (int, error) {
	return s.t.Read(p)
}

// Write implements io.Writer.
func (s *SerialPort) Write(p []byte) (int, error) {
	return s.t.Write(p)
}

// Close implements io.Closer.
func (s *SerialPort) Close() error {
	return s.t.Close()
}
