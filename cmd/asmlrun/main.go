// Command asmlrun reads an ASML source file, parses it, and interprets it,
// printing PRINT output to stdout and an optional final register dump to
// stderr.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"asml/pkg/asml"
	"asml/pkg/memory"
)

func main() {
	inPath := flag.String("in", "", "path to the ASML source file (required)")
	dump := flag.Bool("dump", false, "print a register/flag dump to stderr after execution")
	memSize := flag.Int("mem-size", 65536, "byte-addressable memory size")
	labelCapacity := flag.Int("label-capacity", 64, "label table bucket count")
	flag.Parse()

	if *inPath == "" {
		log.Fatalf("missing required -in flag")
	}

	src, err := os.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("failed to read source file: %v", err)
	}

	parser := asml.NewParser(src, *labelCapacity)
	program := parser.Parse()
	if parser.HadError() {
		fmt.Fprintln(os.Stderr, parser.Err())
		os.Exit(1)
	}

	mem := memory.New(*memSize)
	interp := asml.New(mem, parser.Labels)
	interp.Output = os.Stdout
	interp.Run(program)

	if *dump {
		interp.DumpState(os.Stderr)
	}

	if interp.HadError {
		fmt.Fprintln(os.Stderr, interp.Err())
		os.Exit(2)
	}
}
