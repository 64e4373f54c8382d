package main

import (
	"fmt"

	"github.com/ravenlrs/raven/msp"
)

// runMSPChunk exercises C4, the MSP-over-telemetry transport: fragments
// one request into fixed-size chunks the way an FC-bus telemetry
// carrier such as S.Port would carry them, reassembles them on the other side, and
// prints the decoded result. No pty or air stream is involved; this is
// the chunk fragmentation/reassembly contract in isolation.
func runMSPChunk(args []string) error {
	fs := newFlagSet("mspchunk")
	chunkSize := fs.IntP("chunk-size", "c", 8, "Max bytes per telemetry chunk, including its 1-byte header.")
	verbose := verboseFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	out := msp.NewTelemetryOutput(*chunkSize)
	out.SetLogger(newLogger("MSP.Transport.Telemetry.Out", *verbose))
	in := msp.NewTelemetryInput(*chunkSize)
	in.SetLogger(newLogger("MSP.Transport.Telemetry.In", *verbose))

	payload := []byte{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if _, err := out.Write(msp.ToFC, mspAPIVersionCmd, payload); err != nil {
		return fmt.Errorf("fragment request: %w", err)
	}

	chunkBuf := make([]byte, *chunkSize+1)
	chunks := 0
	for {
		n := out.PopRequestChunk(chunkBuf)
		if n == 0 {
			break
		}
		chunks++
		header := chunkBuf[0]
		seq := header & 0x0f
		start := header&0x10 != 0
		version := (header >> 5) & 0x07
		if !in.PushRequestChunk(seq, start, version, chunkBuf[1:n]) {
			return fmt.Errorf("reassembly rejected chunk %d", chunks)
		}
	}
	fmt.Printf("fragmented %d byte payload into %d chunks\n", len(payload), chunks)

	got := make([]byte, msp.MaxPayloadSize)
	_, cmd, size, err := in.Read(got)
	if err != nil {
		return fmt.Errorf("reassemble: %w", err)
	}
	fmt.Printf("reassembled cmd=%d, payload=%v\n", cmd, got[:size])

	return nil
}
