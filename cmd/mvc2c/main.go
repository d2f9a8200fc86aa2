package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"mvc2c/internal/assign"
	"mvc2c/internal/jss"
	"mvc2c/internal/logging"
	"mvc2c/internal/prompt"
	"mvc2c/internal/report"
	"mvc2c/internal/settings"
	"mvc2c/internal/workflow"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

// commands is filled in init because the run functions print help from it.
var commands []command

func init() {
	commands = []command{
		{
			name:  "assign",
			short: "Assign a computer to static groups",
			usage: "mvc2c assign [-c computer] [-s software | -i id] [--all]",
			long: `Assign one computer to one or more static computer groups.

Groups are picked by a case-insensitive name match (-s) or by group id (-i).
With -s, or when neither flag is given, the matching groups are listed and
ids are asked for until an empty line is entered. With -s, --all uses
every match instead. Missing values are asked for interactively.
`,
			run: runAssign,
		},
		{
			name:  "bulk",
			short: "Assign computers to static groups from a csv file",
			usage: "mvc2c bulk <file>",
			long: `Read "computer,group id" rows (';' works as well) and assign each
computer to its static group. Rows with an unknown computer or group, or
whose update is refused, are reported and skipped.
`,
			run: runBulk,
		},
		{
			name:  "copy",
			short: "Copy static group memberships to another computer",
			usage: "mvc2c copy [-s source] [-d destination]",
			long: `Add the destination computer to every static group the source
computer belongs to. Smart group memberships are ignored.
`,
			run: runCopy,
		},
	}
}

// stdout receives every user-facing message.
var stdout io.Writer = os.Stdout

// newInput supplies interactive answers.
var newInput = prompt.ForStdin

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "mvc2c — static computer group assignment for the JSS\n\n")
	fmt.Fprintf(w, "Usage:\n  mvc2c <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nCommon flags:\n")
	fmt.Fprint(w, commonFlagSet().FlagUsages())
	fmt.Fprintf(w, "\nRun 'mvc2c help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "mvc2c: unknown command %q\n\nRun 'mvc2c help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'mvc2c help' for usage.", args[0])
}

// ---------------------------------------------------------------------------
// common flags
// ---------------------------------------------------------------------------

type commonFlags struct {
	config string
	debug  bool
	dryRun bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "preferences file (default ~/Library/Preferences/"+settings.FileName+")")
	fs.BoolVar(&c.debug, "debug", false, "log intermediate results")
	fs.BoolVar(&c.dryRun, "dry-run", false, "print group updates instead of sending them")
}

func commonFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("common", pflag.ContinueOnError)
	new(commonFlags).register(fs)
	return fs
}

// parse parses args into fs. It returns done=true when help was requested.
func parse(name string, fs *pflag.FlagSet, args []string) (done bool, err error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printCommandHelp(stdout, name)
			fmt.Fprint(stdout, "\nFlags:\n"+fs.FlagUsages())
			return true, nil
		}
		return false, fmt.Errorf("%s: %w\n\nRun 'mvc2c help %s' for usage.", name, err, name)
	}
	return false, nil
}

// deps builds the collaborators shared by every workflow.
func (c *commonFlags) deps() (workflow.Deps, error) {
	path := c.config
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return workflow.Deps{}, err
		}
		path = p
	}
	s, err := settings.Load(path)
	if err != nil {
		return workflow.Deps{}, err
	}
	if err := s.Validate(); err != nil {
		return workflow.Deps{}, fmt.Errorf("%s: %w", path, err)
	}

	log, err := logging.New(logging.Options{Level: s.LogLevel, Debug: c.debug, File: s.LogFile})
	if err != nil {
		return workflow.Deps{}, err
	}
	log.WithField("config", path).Debug("preferences loaded")

	client := jss.New(s.Connection(), log)
	return workflow.Deps{
		Directory: client,
		Executor:  assign.New(client, log, c.dryRun, stdout),
		Input:     newInput(),
		Out:       stdout,
		Log:       log,
	}, nil
}

// ---------------------------------------------------------------------------
// assign
// ---------------------------------------------------------------------------

func runAssign(args []string) error {
	var (
		common       commonFlags
		opts         workflow.SingleOptions
		software, id string
	)
	fs := pflag.NewFlagSet("assign", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&opts.Computer, "computer", "c", "", "name of the computer to add")
	fs.StringVarP(&software, "software", "s", "", "assign groups whose name contains this text")
	fs.StringVarP(&id, "id", "i", "", "assign the static group with this id (ignored with -s)")
	fs.BoolVar(&opts.All, "all", false, "with -s, use every match without asking for ids")
	if done, err := parse("assign", fs, args); done || err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("usage: %s", commands[0].usage)
	}
	if fs.Changed("software") {
		opts.Software = &software
	}
	if fs.Changed("id") {
		opts.GroupID = &id
	}
	if opts.All && opts.Software == nil {
		return fmt.Errorf("assign: --all needs -s\n\nRun 'mvc2c help assign' for usage.")
	}

	deps, err := common.deps()
	if err != nil {
		return err
	}
	return (&workflow.Single{Deps: deps}).Run(context.Background(), opts)
}

// ---------------------------------------------------------------------------
// bulk
// ---------------------------------------------------------------------------

func runBulk(args []string) error {
	var common commonFlags
	fs := pflag.NewFlagSet("bulk", pflag.ContinueOnError)
	common.register(fs)
	if done, err := parse("bulk", fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mvc2c bulk <file>")
	}
	filename := fs.Arg(0)

	f, err := os.Open(filename)
	if err != nil {
		return &workflow.ExitError{Code: 1, Msg: "No such file or directory: " + filename, Err: err}
	}
	defer f.Close()
	rows, err := workflow.ParseBulk(f)
	if err != nil {
		return err
	}

	deps, err := common.deps()
	if err != nil {
		return err
	}
	sum, err := (&workflow.Bulk{Deps: deps}).Run(context.Background(), rows)
	if err != nil {
		return err
	}
	report.Info(stdout, "%d rows: %d added, %d skipped", sum.Rows, sum.Added, sum.Skipped)
	return nil
}

// ---------------------------------------------------------------------------
// copy
// ---------------------------------------------------------------------------

func runCopy(args []string) error {
	var (
		common commonFlags
		opts   workflow.CopyOptions
	)
	fs := pflag.NewFlagSet("copy", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&opts.Source, "source", "s", "", "computer whose static group memberships are read")
	fs.StringVarP(&opts.Destination, "destination", "d", "", "computer added to the matching static groups")
	if done, err := parse("copy", fs, args); done || err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("usage: %s", commands[2].usage)
	}

	deps, err := common.deps()
	if err != nil {
		return err
	}
	return (&workflow.Copy{Deps: deps}).Run(context.Background(), opts)
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		report.Fail(os.Stderr, "%s", err)
		os.Exit(workflow.ExitCode(err))
	}
}
