package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

var supportedShells = []Shell{ShellBash, ShellZsh, ShellFish, ShellPowerShell}

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long   string   // --output
	Short  string   // -o (empty if none)
	Desc   string   // help text
	Bool   bool     // takes no value
	Values []string // enum values
	Globs  []string // file patterns, without the "*."
	Dir    bool     // directory value
	Files  bool     // any path
}

// commandDef describes a command for completion.
type commandDef struct {
	Name  string
	Desc  string
	Flags []flagDef
	Args  []string // positional values offered as words (help, completion)
	Globs []string // positional file patterns, without the "*."
	Dir   bool     // positional arguments are directories
}

// completionMeta holds the completion hints that a FlagSet cannot express.
// Names, shorthands and descriptions come from the flag sets themselves.
type completionMeta struct {
	Values []string
	Globs  []string
	Dir    bool
	Files  bool
}

var flagCompletionMeta = map[string]completionMeta{
	"quality":   {Values: []string{"high", "medium", "low"}},
	"format":    {Values: []string{"png", "jpg", "webp"}},
	"color":     {Values: []string{"auto", "always", "never"}},
	"config":    {Globs: []string{"yaml", "yml"}},
	"urls-file": {Globs: []string{"txt"}},
	"log-file":  {Globs: []string{"log"}},
	"output":    {Files: true},
}

// extractFlags converts fs into flag definitions, enriched with
// flagCompletionMeta.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage, Bool: f.Value.Type() == "bool"}
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			fd.Values, fd.Globs, fd.Dir, fd.Files = meta.Values, meta.Globs, meta.Dir, meta.Files
		}
		flags = append(flags, fd)
	})
	return flags
}

// completionCommands returns every command with its flags. Conversion
// commands come from the commands table, so a new command completes without
// further changes here.
func completionCommands() []commandDef {
	convert := extractFlags(newConvertFlagSet("convert", &convertFlags{}))

	var defs []commandDef
	var names []string
	for _, c := range commands {
		def := commandDef{Name: c.name, Desc: c.summary, Flags: convert}
		switch c.kind {
		case inputFolder:
			def.Dir = true
		case inputFiles:
			for _, ext := range c.exts {
				def.Globs = append(def.Globs, strings.TrimPrefix(ext, "."))
			}
			def.Dir = true
		}
		defs = append(defs, def)
		names = append(names, c.name)
	}

	var jsonOutput bool
	var cfgName string
	shells := make([]string, len(supportedShells))
	for i, s := range supportedShells {
		shells[i] = string(s)
	}
	names = append(names, "doctor", "config", "completion")

	return append(defs,
		commandDef{Name: "doctor", Desc: "Check backends and environment", Flags: extractFlags(newDoctorFlagSet(&jsonOutput, &cfgName))},
		commandDef{Name: "config", Desc: "Print the effective configuration", Flags: extractFlags(newConfigFlagSet(&cfgName))},
		commandDef{Name: "version", Desc: "Show version information"},
		commandDef{Name: "help", Desc: "Show help for a command", Args: names},
		commandDef{Name: "completion", Desc: "Generate shell completion script", Args: shells},
	)
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	cmds := completionCommands()
	var script string
	switch shell {
	case ShellBash:
		script = bashScript(cmds)
	case ShellZsh:
		script = zshScript(cmds)
	case ShellFish:
		script = fishScript(cmds)
	case ShellPowerShell:
		script = powerShellScript(cmds)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) int {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return ExitSuccess
	}
	if err := GenerateCompletion(env.Stdout, Shell(args[0])); err != nil {
		fmt.Fprintf(env.Stderr, "docconv completion: %v\n", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells: bash, zsh, fish, powershell")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash        eval \"$(docconv completion bash)\" in ~/.bashrc")
	fmt.Fprintln(w, "  Zsh         eval \"$(docconv completion zsh)\" in ~/.zshrc, after compinit")
	fmt.Fprintln(w, "  Fish        docconv completion fish > ~/.config/fish/completions/docconv.fish")
	fmt.Fprintln(w, "  PowerShell  docconv completion powershell | Out-String | Invoke-Expression")
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

func bashScript(cmds []commandDef) string {
	var b strings.Builder
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}

	b.WriteString("# bash completion for docconv\n")
	b.WriteString("_docconv_completions() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(names, " "))
	b.WriteString("        return\n    fi\n\n")
	b.WriteString("    case \"${cmd}\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		var valued, words []string
		for _, f := range c.Flags {
			words = append(words, "--"+f.Long)
			if f.Short != "" {
				words = append(words, "-"+f.Short)
			}
			if f.Bool {
				continue
			}
			pattern := "--" + f.Long
			if f.Short != "" {
				pattern = "-" + f.Short + "|" + pattern
			}
			valued = append(valued, fmt.Sprintf("        %s) %s; return ;;\n", pattern, bashValue(f)))
		}
		if len(valued) > 0 {
			b.WriteString("        case \"${prev}\" in\n")
			for _, v := range valued {
				b.WriteString("    " + v)
			}
			b.WriteString("        esac\n")
		}
		if len(words) > 0 {
			b.WriteString("        if [[ \"${cur}\" == -* ]]; then\n")
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(words, " "))
			b.WriteString("            return\n        fi\n")
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(c.Args, " "))
		case len(c.Globs) > 0:
			fmt.Fprintf(&b, "        COMPREPLY=($(compgen -f -X '!*.@(%s)' -- \"${cur}\") $(compgen -d -- \"${cur}\"))\n", bashGlob(c.Globs))
		case c.Dir:
			b.WriteString("        COMPREPLY=($(compgen -d -- \"${cur}\"))\n")
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n}\n")
	b.WriteString("complete -F _docconv_completions docconv\n")
	return b.String()
}

func bashValue(f flagDef) string {
	switch {
	case len(f.Values) > 0:
		return fmt.Sprintf("COMPREPLY=($(compgen -W %q -- \"${cur}\"))", strings.Join(f.Values, " "))
	case len(f.Globs) > 0:
		return fmt.Sprintf("COMPREPLY=($(compgen -f -X '!*.@(%s)' -- \"${cur}\"))", bashGlob(f.Globs))
	case f.Dir:
		return "COMPREPLY=($(compgen -d -- \"${cur}\"))"
	case f.Files:
		return "COMPREPLY=($(compgen -f -- \"${cur}\"))"
	default:
		return "COMPREPLY=()"
	}
}

// bashGlob lists extensions in both cases for an extglob alternation.
func bashGlob(exts []string) string {
	var alts []string
	for _, e := range exts {
		alts = append(alts, e, strings.ToUpper(e))
	}
	return strings.Join(alts, "|")
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

func zshScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef docconv\n\n")
	b.WriteString("_docconv() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshQuote(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("        return\n    fi\n\n")
	b.WriteString("    local cmd=${words[2]}\n")
	b.WriteString("    shift words\n")
	b.WriteString("    (( CURRENT-- ))\n\n")
	b.WriteString("    case $cmd in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        _arguments -s")
		for _, f := range c.Flags {
			fmt.Fprintf(&b, " \\\n            %s", zshFlag(f))
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, " \\\n            '1:argument:(%s)'", strings.Join(c.Args, " "))
		case len(c.Globs) > 0:
			fmt.Fprintf(&b, " \\\n            '*:file:_files -g \"*.(%s)(-.)\"'", bashGlob(c.Globs))
		case c.Dir:
			b.WriteString(" \\\n            '*:folder:_files -/'")
		}
		b.WriteString("\n        ;;\n")
	}

	b.WriteString("    esac\n}\n\n")
	b.WriteString("compdef _docconv docconv\n")
	return b.String()
}

func zshFlag(f flagDef) string {
	desc := "[" + zshQuote(f.Desc) + "]"
	var action string
	switch {
	case f.Bool:
	case len(f.Values) > 0:
		action = ":" + f.Long + ":(" + strings.Join(f.Values, " ") + ")"
	case len(f.Globs) > 0:
		action = ":" + f.Long + ":_files -g \"*.(" + strings.Join(f.Globs, "|") + ")\""
	case f.Dir:
		action = ":" + f.Long + ":_files -/"
	case f.Files:
		action = ":" + f.Long + ":_files"
	default:
		action = ":" + f.Long + ": "
	}
	if f.Short == "" {
		return "'--" + f.Long + desc + action + "'"
	}
	return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'%s%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
}

// zshQuote escapes text for a single-quoted zsh word inside an _arguments
// description.
func zshQuote(s string) string {
	s = strings.ReplaceAll(s, "'", `'\''`)
	s = strings.ReplaceAll(s, "[", `\[`)
	return strings.ReplaceAll(s, "]", `\]`)
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

func fishScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for docconv\n")
	b.WriteString("function __fish_docconv_needs_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -eq 1\n")
	b.WriteString("end\n\n")
	b.WriteString("function __fish_docconv_using_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -gt 1; and test \"$cmd[2]\" = \"$argv[1]\"\n")
	b.WriteString("end\n\n")
	b.WriteString("complete -c docconv -f\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c docconv -n __fish_docconv_needs_command -a %s -d '%s'\n", c.Name, fishQuote(c.Desc))
	}

	for _, c := range cmds {
		cond := fmt.Sprintf("-n '__fish_docconv_using_command %s'", c.Name)
		b.WriteString("\n")
		for _, f := range c.Flags {
			line := "complete -c docconv " + cond
			if f.Short != "" {
				line += " -s " + f.Short
			}
			line += " -l " + f.Long
			switch {
			case f.Bool:
			case len(f.Values) > 0:
				line += " -x -a '" + strings.Join(f.Values, " ") + "'"
			case f.Dir:
				line += " -x -a '(__fish_complete_directories)'"
			case f.Files, len(f.Globs) > 0:
				line += " -r -F"
			default:
				line += " -x"
			}
			b.WriteString(line + " -d '" + fishQuote(f.Desc) + "'\n")
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, "complete -c docconv %s -a '%s'\n", cond, strings.Join(c.Args, " "))
		case len(c.Globs) > 0:
			for _, g := range c.Globs {
				fmt.Fprintf(&b, "complete -c docconv %s -a '(__fish_complete_suffix .%s)'\n", cond, g)
			}
		case c.Dir:
			fmt.Fprintf(&b, "complete -c docconv %s -a '(__fish_complete_directories)'\n", cond)
		}
	}
	return b.String()
}

func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

// ---------------------------------------------------------------------------
// PowerShell
// ---------------------------------------------------------------------------

func powerShellScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# PowerShell completion for docconv\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName docconv -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")

	b.WriteString("    $commands = @{\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s' = '%s'\n", c.Name, psQuote(c.Desc))
	}
	b.WriteString("    }\n")

	b.WriteString("    $flags = @{\n")
	for _, c := range cmds {
		var words []string
		for _, f := range c.Flags {
			words = append(words, "'--"+f.Long+"'")
			if f.Short != "" {
				words = append(words, "'-"+f.Short+"'")
			}
		}
		words = append(words, psWords(c.Args)...)
		fmt.Fprintf(&b, "        '%s' = @(%s)\n", c.Name, strings.Join(words, ", "))
	}
	b.WriteString("    }\n")

	b.WriteString("    $values = @{\n")
	var valued []string
	for _, c := range cmds {
		for _, f := range c.Flags {
			if len(f.Values) > 0 {
				valued = append(valued, fmt.Sprintf("        '--%s' = @(%s)\n", f.Long, strings.Join(psWords(f.Values), ", ")))
			}
		}
	}
	sort.Strings(valued)
	for i, v := range valued {
		if i == 0 || v != valued[i-1] {
			b.WriteString(v)
		}
	}
	b.WriteString("    }\n\n")

	b.WriteString("    $elements = @($commandAst.CommandElements | ForEach-Object { $_.ToString() })\n")
	b.WriteString("    if ($elements.Count -le 1 -or ($elements.Count -eq 2 -and $wordToComplete -ne '')) {\n")
	b.WriteString("        $commands.GetEnumerator() | Where-Object { $_.Key -like \"$wordToComplete*\" } | Sort-Object Key | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_.Key, $_.Key, 'ParameterValue', $_.Value)\n")
	b.WriteString("        }\n")
	b.WriteString("        return\n    }\n\n")
	b.WriteString("    $prev = if ($wordToComplete -ne '') { $elements[-2] } else { $elements[-1] }\n")
	b.WriteString("    if ($values.ContainsKey($prev)) {\n")
	b.WriteString("        $values[$prev] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	b.WriteString("        }\n")
	b.WriteString("        return\n    }\n\n")
	b.WriteString("    $cmd = $elements[1]\n")
	b.WriteString("    if ($flags.ContainsKey($cmd)) {\n")
	b.WriteString("        $flags[$cmd] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterName', $_)\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

func psWords(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "'" + psQuote(v) + "'"
	}
	return out
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
