// Command icint assembles one or more textual intermediate-code files into
// a 16-bit word image and executes the result.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"icint/asm"
	"icint/config"
	"icint/mem"
	"icint/stream"
	"icint/vm"
)

const usageLine = "USAGE: icint ICFILE [...] [-iINPUT] [-oOUTPUT]"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "icint: %v\n", err)
		cfg = config.DefaultConfig()
	}

	flags := pflag.NewFlagSet("icint", pflag.ContinueOnError)
	flags.SortFlags = false
	input := flags.StringP("input", "i", cfg.Streams.Input, "redirect the system input stream to `PATH`")
	output := flags.StringP("output", "o", cfg.Streams.Output, "redirect the system output stream to `PATH`")
	flags.Usage = func() { fmt.Fprintln(os.Stderr, usageLine) }

	streams := stream.NewTable(os.Stdin, os.Stdout)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usageLine)
			return 0
		}
		return fatal(streams, "INVALID OPTION")
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, usageLine)
		return 0
	}

	if *input != "" && !streams.PipeInput(*input) {
		return fatal(streams, "NO INPUT")
	}
	if *output != "" && !streams.PipeOutput(*output) {
		return fatal(streams, "NO OUTPUT")
	}

	img := mem.New()
	as := asm.New(img, streams)
	as.Bootstrap()

	for _, name := range flags.Args() {
		id := streams.OpenInput(name)
		if id == 0 {
			return fatal(streams, "NO ICFILE")
		}
		streams.CIS = id
		if err := as.Assemble(); err != nil {
			return fatal(streams, err.Error())
		}
		streams.EndRead()
	}

	machine := vm.New(img, streams, as.Lomem)
	machine.StepLimit = cfg.Execution.MaxSteps
	if _, err := machine.Run(); err != nil {
		return fatal(streams, err.Error())
	}
	streams.Flush()
	return 0
}

// fatal reports a one-line diagnostic on the system-print stream with a
// best-effort flush and selects exit code 1.
func fatal(streams *stream.Table, msg string) int {
	streams.COS = streams.SysPrint
	for i := 0; i < len(msg); i++ {
		streams.WrCh(int16(msg[i]))
	}
	streams.WrCh('\n')
	streams.Flush()
	return 1
}
