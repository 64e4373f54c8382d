// Command ravenctl is a host-side harness for exercising the Raven
// protocol stack without real radio or flight-controller hardware, in
// the spirit of the teacher's cmd/atest and cmd/gen_tone test tools.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/ravenlrs/raven/logging"
)

type subcommand struct {
	name string
	help string
	run  func(args []string) error
}

var subcommands = []subcommand{
	{"bind", "Run the C9 bind-packet exchange between two in-memory peers.", runBind},
	{"airsim", "Feed synthetic channel/telemetry/command traffic through the C8 air stream.", runAirsim},
	{"mspdump", "Run an MSP v1 request/response over a creack/pty pair.", runMSPDump},
	{"mspchunk", "Fragment and reassemble an MSP request over the C4 telemetry chunk transport.", runMSPChunk},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: ravenctl <command> [options]\n\nCommands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", sc.name, sc.help)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "-h" || name == "--help" {
		usage()
		return
	}

	for _, sc := range subcommands {
		if sc.name != name {
			continue
		}
		if err := sc.run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "ravenctl %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "ravenctl: unknown command %q\n\n", name)
	usage()
	os.Exit(1)
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ExitOnError)
}

// verboseFlag adds the shared -v/--verbose flag every subcommand uses to
// switch its components from discard logging to stderr.
func verboseFlag(fs *pflag.FlagSet) *bool {
	return fs.BoolP("verbose", "v", false, "Log subsystem activity to stderr instead of discarding it.")
}

// newLogger builds prefix's logger: logging.Discard unless verbose is
// set, in which case it writes to stderr at debug level.
func newLogger(prefix string, verbose bool) *log.Logger {
	if !verbose {
		return logging.Discard(prefix)
	}
	return logging.New(os.Stderr, prefix, log.DebugLevel)
}
