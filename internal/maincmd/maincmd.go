package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/ash-lang/ash/internal/telemetry"
)

const binName = "ash"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <group> <verb> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <group> <verb> [<path>...] [<output-name>]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and VM for the %[1]s language: a minimal recursive-descent front
end feeding a label-based IR codegen, a two-pass assembler, and a
stack/heap bytecode interpreter.

The <group> <verb> pairs are:
       file run                  Lex, parse, compile and execute a
                                  source file.
       file dbg                  Like 'file run', with phase-timing and
                                  state telemetry at debug level.
       file dis                  Compile a source file and print its
                                  label-based IR listing, without
                                  assembling to bytecode.
       file compile               Compile a source file to a bytecode
                                  file (<output-name> defaults to
                                  <filepath>.ashbin).
       file time                 Compile a source file, reporting each
                                  phase's duration.
       bin run                   Execute a previously compiled bytecode
                                  file.
       bin dbg                   Like 'bin run', with telemetry at
                                  debug level.
       asm run                   Assemble a human-readable IR listing
                                  and execute it.
       asm compile               Assemble a human-readable IR listing
                                  to a bytecode file.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --verbose                 Raise logging to debug level for every
                                  command, not just dbg/time verbs.

More information on the %[1]s repository:
       https://github.com/ash-lang/ash
`, binName)
)

// Cmd holds the parsed CLI invocation, mirroring the teacher's own
// flag-struct-with-tags Cmd (internal/maincmd.Cmd in the original):
// mainer.Parser fills exported fields by their `flag` tag, SetArgs/SetFlags
// capture the rest, and Validate resolves which verb method will run.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Verbose bool `flag:"verbose"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) < 2 {
		return errors.New("a <group> and <verb> must be specified (e.g. 'file run')")
	}

	group, verb := c.args[0], c.args[1]
	key := strings.ToLower(group + verb)

	commands := buildCmds(c)
	c.cmdFn = commands[key]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s %s", group, verb)
	}

	if len(c.args[2:]) == 0 {
		return fmt.Errorf("%s %s: at least one file must be provided", group, verb)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	telemetry.SetVerbose(c.Verbose)

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[2:]); err != nil {
		// each verb prints its own diagnostics via printDiag; just signal failure
		return mainer.Failure
	}
	return mainer.Success
}

// buildCmds reflects over v's methods, picking out every verb method
// (func(context.Context, mainer.Stdio, []string) error) and keying it by
// its lowercased name — FileRun becomes "filerun", matching the
// lower-cased, concatenated <group><verb> Validate builds from the command
// line. This mirrors the teacher's own buildCmds exactly, generalised from
// a flat verb name to a two-word one.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
