// Command microdelay renders, measures and auditions the MicroDelay effect.
//
// Usage:
//
//	microdelay <command> [flags]
//
// Commands:
//
//	render    process a WAV file through the delay
//	ir        print the echo train of the impulse response
//	response  print the comb magnitude response
//	params    list parameters, ranges and defaults
//	play      play a WAV file through the delay
//
// Examples:
//
//	microdelay render -in dry.wav -out wet.wav -wet 0 -delay 1500
//	microdelay ir -delay 10000 -feedback -6
//	microdelay response -delay 1000 -wet -3 -invert-wet
//	microdelay play -in loop.wav -loop -watch preset.json
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type command struct {
	name    string
	summary string
	run     func(env *env, args []string) error
}

var commands = []command{
	{"render", "process a WAV file through the delay", runRender},
	{"ir", "print the echo train of the impulse response", runIR},
	{"response", "print the comb magnitude response", runResponse},
	{"params", "list parameters, ranges and defaults", runParams},
	{"play", "play a WAV file through the delay", runPlay},
}

// env carries the process-wide outputs so commands can be tested.
type env struct {
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger
}

var errUsage = errors.New("usage")

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	e := &env{stdout: os.Stdout, stderr: os.Stderr, log: log}
	if err := run(e, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(e *env, args []string) error {
	if len(args) == 0 {
		printUsage(e.stderr)
		return errUsage
	}
	name := args[0]
	if name == "-h" || name == "-help" || name == "help" {
		printUsage(e.stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(e, args[1:])
		}
	}
	fmt.Fprintf(e.stderr, "unknown command %q\n\n", name)
	printUsage(e.stderr)
	return errUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: microdelay <command> [flags]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'microdelay <command> -h' for command flags.\n")
}
