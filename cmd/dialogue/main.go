package main

import (
	"flag"
	"fmt"
	"os"
)

const usage = `Usage: dialogue <command> [flags]

Commands:
  list      List registered policies
  validate  Build every policy in a configuration file
  show      Print the resolved configuration of every policy
  diff      Show how every policy's configuration differs from the defaults
  persist   Write policy metadata to a directory

Run "dialogue <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	name, args := os.Args[1], os.Args[2:]

	cmd, ok := commands[name]
	if !ok {
		if name == "-h" || name == "--help" || name == "help" {
			fmt.Fprint(os.Stdout, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dialogue %s [flags]\n\n%s.\n\nFlags:\n", name, cmd.summary)
		fs.PrintDefaults()
	}

	opts := registerCommonFlags(fs)
	run := cmd.setup(fs)
	_ = fs.Parse(args)

	if err := loadDotEnv(opts.envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	e := newEnv(opts, os.Stdout, os.Stderr)

	if err := run(e); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
