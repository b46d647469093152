package main

import (
	"context"
	"fmt"
)

// runMain dispatches args (without the program name) and returns the exit code.
func runMain(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	switch args[0] {
	case "help", "-h", "--help":
		return runHelp(args[1:], env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "docconv %s\n", Version)
		return ExitSuccess
	case "config":
		return runConfigCmd(args[1:], env)
	case "completion":
		return runCompletion(args[1:], env)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if args[0] == "doctor" {
		return runDoctorCmd(ctx, args[1:], env)
	}

	c, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(env.Stderr, "docconv: %v: %s\n", ErrUnknownCommand, args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return runConvert(ctx, c, args[1:], env)
}
