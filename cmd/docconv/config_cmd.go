package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docconv/internal/yamlutil"
)

const configHeader = `Effective docconv configuration.
Priority: CLI flags > DOCCONV_* env vars > config file > defaults.
Zero values use the built-in default of each operation.`

// newConfigFlagSet builds the flag set of the config command.
func newConfigFlagSet(cfgName *string) *flag.FlagSet {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(cfgName, "config", "c", "", "config file name or path")
	return fs
}

// runConfigCmd prints the effective configuration as YAML, ready to be saved
// as a config file.
func runConfigCmd(args []string, env *Environment) int {
	var cfgName string
	if err := newConfigFlagSet(&cfgName).Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "docconv config: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadConfig(cfgName, env)
	if err != nil {
		return fail(env, err)
	}

	out, err := yamlutil.Marshal(cfg, configHeader)
	if err != nil {
		return fail(env, err)
	}
	_, _ = env.Stdout.Write(out)
	return ExitSuccess
}
