// Package workflow sequences the membership commands: assign one computer,
// assign from a file, and copy memberships between computers.
//
// Drivers never exit the process. Fatal conditions are returned as
// *ExitError carrying the message and the exit status the command line
// tools have always used: 1 for nothing selected, not found or connection
// problems, and the HTTP status itself when the server refuses a lookup or
// an update.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"mvc2c/internal/assign"
	"mvc2c/internal/catalog"
	"mvc2c/internal/jss"
	"mvc2c/internal/prompt"
	"mvc2c/internal/report"
)

// ExitError ends a command with Msg and exit status Code.
type ExitError struct {
	Code int
	Msg  string
	Err  error
}

func (e *ExitError) Error() string { return e.Msg }

func (e *ExitError) Unwrap() error { return e.Err }

func exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ExitCode returns the process status for err: 0 for nil, the carried code
// for *ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// Directory is the read side of the directory client.
type Directory interface {
	catalog.Lister
	GetComputer(ctx context.Context, name string) (*jss.Computer, error)
	BaseURL() string
}

// Deps are the collaborators every driver uses. They are built once at the
// entry point.
type Deps struct {
	Directory Directory
	Executor  *assign.Executor
	Input     prompt.Source
	Out       io.Writer
	Log       logrus.FieldLogger
}

// lookupComputer fetches a computer for the single-computer flows, where a
// failed lookup ends the run with the response status.
func (d Deps) lookupComputer(ctx context.Context, name string) (*jss.Computer, error) {
	comp, err := d.Directory.GetComputer(ctx, name)
	if err != nil {
		var se *jss.StatusError
		if errors.As(err, &se) {
			return nil, &ExitError{Code: se.Code, Msg: se.Error(), Err: err}
		}
		return nil, d.fatal(err)
	}
	return comp, nil
}

func (d Deps) loadCatalog(ctx context.Context) (catalog.Catalog, error) {
	c, err := catalog.LoadStaticGroups(ctx, d.Directory, d.Log, d.Out)
	if err != nil {
		return nil, d.fatal(err)
	}
	return c, nil
}

// fatal converts an unexpected error into an exit-1 ExitError.
func (d Deps) fatal(err error) error {
	var ee *ExitError
	switch {
	case errors.As(err, &ee):
		return ee
	case jss.IsTransport(err):
		return &ExitError{Code: 1, Msg: fmt.Sprintf("Cannot connect to %s .. exiting", d.Directory.BaseURL()), Err: err}
	case errors.Is(err, prompt.ErrCancelled):
		return &ExitError{Code: 1, Msg: "Cancelled .. exiting!", Err: err}
	}
	return &ExitError{Code: 1, Msg: err.Error(), Err: err}
}

// ask reads a required value unless one was given on the command line.
func (d Deps) ask(given, question string) (string, error) {
	if given != "" {
		return given, nil
	}
	v, err := prompt.Required(d.Input, question)
	if err != nil {
		return "", d.fatal(err)
	}
	if v == "" {
		return "", exitf(1, "Nothing entered .. exiting!")
	}
	return v, nil
}

// assignAll adds computer to every group, stopping at the first failure.
func (d Deps) assignAll(ctx context.Context, computer string, groups catalog.Catalog) error {
	for _, g := range groups {
		out, err := d.Executor.Assign(ctx, computer, g.IDString())
		if err != nil {
			return d.fatal(err)
		}
		switch out.Kind {
		case assign.Added:
			d.added(computer, g.IDString())
		case assign.DryRun:
		case assign.ServerError:
			return exitf(out.Code, "Update for group %s failed with return code: %d", g.IDString(), out.Code)
		default:
			return exitf(1, "Update for group %s not sent: %s", g.IDString(), out.Reason)
		}
	}
	return nil
}

func (d Deps) added(computer, groupID string) {
	report.Success(d.Out, "Added %s to group with id: %s", computer, groupID)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
