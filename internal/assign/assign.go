// Package assign adds one computer to one static group and classifies the
// server's answer.
package assign

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"mvc2c/internal/jss"
)

// Kind classifies an assignment.
type Kind int

const (
	// Added means the server answered 201.
	Added Kind = iota
	// DryRun means the request was printed instead of sent.
	DryRun
	// Rejected means the request was not sent because its input was unusable.
	Rejected
	// ServerError means the server answered anything other than 201.
	ServerError
	// TransportFailure means no response was received.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case DryRun:
		return "dry-run"
	case Rejected:
		return "rejected"
	case ServerError:
		return "server-error"
	case TransportFailure:
		return "transport-failure"
	}
	return "unknown"
}

// Outcome is the result of one assignment.
type Outcome struct {
	Kind    Kind
	GroupID string
	// Code is the HTTP status for Added and ServerError.
	Code int
	// Reason explains Rejected.
	Reason string
}

// OK reports whether the caller may carry on as if the computer was added.
func (o Outcome) OK() bool { return o.Kind == Added || o.Kind == DryRun }

// Updater is the part of the directory client the executor needs.
type Updater interface {
	AddComputerToGroup(ctx context.Context, groupID, computer string) (int, error)
	GroupURL(groupID string) string
}

// Executor issues group additions.
type Executor struct {
	client Updater
	log    logrus.FieldLogger
	dryRun bool
	out    io.Writer
}

// New returns an executor. With dryRun set, every request is written to out
// instead of being sent.
func New(client Updater, log logrus.FieldLogger, dryRun bool, out io.Writer) *Executor {
	return &Executor{client: client, log: log, dryRun: dryRun, out: out}
}

// Assign adds computer to the group. The error is non-nil only for
// TransportFailure.
func (e *Executor) Assign(ctx context.Context, computer, groupID string) (Outcome, error) {
	out := Outcome{GroupID: groupID}
	switch {
	case strings.TrimSpace(computer) == "":
		out.Kind, out.Reason = Rejected, "empty computer name"
		return out, nil
	case strings.TrimSpace(groupID) == "":
		out.Kind, out.Reason = Rejected, "empty group id"
		return out, nil
	}

	log := e.log.WithFields(logrus.Fields{"computer": computer, "group": groupID})
	if e.dryRun {
		payload, err := jss.AdditionPayload(computer)
		if err != nil {
			out.Kind, out.Reason = Rejected, err.Error()
			return out, nil
		}
		fmt.Fprintln(e.out, e.client.GroupURL(groupID))
		fmt.Fprintln(e.out, string(payload))
		log.Debug("dry run, update not sent")
		out.Kind = DryRun
		return out, nil
	}

	code, err := e.client.AddComputerToGroup(ctx, groupID, computer)
	if err != nil {
		out.Kind = TransportFailure
		return out, err
	}
	out.Code = code
	if code == jss.StatusCreated {
		out.Kind = Added
	} else {
		out.Kind = ServerError
		log.WithField("status", code).Warn("group update refused")
	}
	return out, nil
}
