package main

import (
	"fmt"
	"time"

	"github.com/creack/pty"

	"github.com/ravenlrs/raven/msp"
)

// mspAPIVersionCmd mirrors MSP's well-known MSP_API_VERSION command,
// used here only as a stand-in payload to exercise framing end to end.
const mspAPIVersionCmd = 1

// runMSPDump opens a creack/pty pair, stands up an MSP connection on
// each end (grounded on src/kiss.go's pty.Open() pattern), and runs one
// request/response round trip: the "FC" end echoes the request cmd
// back with a fixed payload, the "client" end prints what it received.
func runMSPDump(args []string) error {
	fs := newFlagSet("mspdump")
	verbose := verboseFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ptmx, pts, err := pty.Open()
	if err != nil {
		return fmt.Errorf("open pty: %w", err)
	}
	defer ptmx.Close()
	defer pts.Close()

	fcTransport := msp.NewSerialTransport(pts)
	fcTransport.SetLogger(newLogger("MSP.Transport.Serial.FC", *verbose))
	fc := msp.NewConn(fcTransport)
	fc.SetLogger(newLogger("MSP.FC", *verbose))
	fc.SetGlobalCallback(func(conn *msp.Conn, cmd uint16, payload []byte, size int) {
		if size < 0 {
			return
		}
		fmt.Printf("FC received cmd=%d, %d byte payload\n", cmd, size)
		if _, err := conn.Write(msp.FromFC, cmd, []byte{1, 2, 3}); err != nil {
			fmt.Printf("FC write error: %v\n", err)
		}
	})

	clientTransport := msp.NewSerialTransport(ptmx)
	clientTransport.SetLogger(newLogger("MSP.Transport.Serial.Client", *verbose))
	client := msp.NewConn(clientTransport)
	client.SetLogger(newLogger("MSP.Client", *verbose))

	done := make(chan struct{})
	_, err = client.Send(mspAPIVersionCmd, nil, func(conn *msp.Conn, cmd uint16, payload []byte, size int) {
		if size < 0 {
			fmt.Println("client: request timed out or was evicted")
		} else {
			fmt.Printf("client received cmd=%d, payload=%v\n", cmd, payload[:size])
		}
		close(done)
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		fc.Update()
		client.Update()

		select {
		case <-done:
			return nil
		default:
		}
		time.Sleep(5 * time.Millisecond)
	}

	return fmt.Errorf("timed out waiting for MSP round trip")
}
