package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Conversion commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Other commands:")
	fmt.Fprintln(w, "  doctor         Check backends and environment")
	fmt.Fprintln(w, "  config         Print the effective configuration")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w, "  help           Show help for a command")
	fmt.Fprintln(w, "  completion     Generate shell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'docconv help <command>' for details on a specific command.")
}

// printCommandUsage prints usage for one conversion command.
func printCommandUsage(w io.Writer, c command) {
	fmt.Fprintf(w, "Usage: docconv %s %s [flags]\n", c.name, c.args)
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.summary+".")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, newConvertFlagSet(c.name, &convertFlags{}).FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "While running, type p (pause), r (resume) or s (stop) then Enter.")
	fmt.Fprintln(w, "A stop keeps finished outputs and removes the interrupted one.")
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv doctor [--json] [-c config]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Probe every backend and report what this host can convert.")
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv config [-c config]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML.")
}

// runHelp prints help for the named command, or the main usage.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "doctor":
		printDoctorUsage(env.Stdout)
		return ExitSuccess
	case "config":
		printConfigUsage(env.Stdout)
		return ExitSuccess
	case "completion":
		printCompletionUsage(env.Stdout)
		return ExitSuccess
	case "version", "help":
		printUsage(env.Stdout)
		return ExitSuccess
	}

	c, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(env.Stderr, "docconv: %v: %s\n", ErrUnknownCommand, args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	printCommandUsage(env.Stdout, c)
	return ExitSuccess
}
