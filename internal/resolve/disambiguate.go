package resolve

// disambiguate.go — operator narrowing of a candidate list.
//
// The operator is asked for group ids one at a time until they submit an
// empty line. Each id is checked against the presented candidates with the
// same containment rule as ByID; a miss prints a spelling warning and asks
// again. There is no retry limit.
//
//	AwaitingInput --id matches--> Matched --+
//	      ^   |                             |
//	      |   +----no match----> Invalid ---+--> AwaitingInput
//	      |
//	    (any) --empty--> Done

import (
	"errors"
	"io"
	"strings"

	"mvc2c/internal/catalog"
	"mvc2c/internal/report"
)

// IDPrompt is shown for every disambiguation read.
const IDPrompt = "Please enter the ID of a software you want to assign, hit <Enter> when finished: "

// State is a disambiguation state.
type State int

const (
	AwaitingInput State = iota
	Matched
	Invalid
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case Matched:
		return "matched"
	case Invalid:
		return "invalid"
	case Done:
		return "done"
	}
	return "unknown"
}

// InputSource supplies one line of operator input per call.
// io.EOF is treated as an empty submission.
type InputSource interface {
	ReadLine(prompt string) (string, error)
}

// Session holds the state of one disambiguation loop.
type Session struct {
	candidates catalog.Catalog
	state      State
	rejected   string
	selected   catalog.Catalog
}

// NewSession starts a session over the presented candidates.
func NewSession(candidates catalog.Catalog) *Session {
	return &Session{candidates: candidates, state: AwaitingInput, selected: catalog.Catalog{}}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Rejected returns the last input that matched no candidate.
func (s *Session) Rejected() string { return s.rejected }

// Selected returns the groups accepted so far, in submission order.
// Submitting the same id twice selects the group twice.
func (s *Session) Selected() catalog.Catalog { return s.selected }

// Submit feeds one line of input and returns the new state. Input after
// Done is ignored.
func (s *Session) Submit(input string) State {
	if s.state == Done {
		return Done
	}
	input = strings.TrimSpace(input)
	if input == "" {
		s.state = Done
		return s.state
	}
	if g, ok := MatchID(s.candidates, input); ok {
		s.selected = append(s.selected, g)
		s.state = Matched
		return s.state
	}
	s.rejected = input
	s.state = Invalid
	return s.state
}

// Disambiguate runs a session to completion, reading from in and printing
// spelling warnings to w. It returns the selected groups, which may be
// empty when the operator submits nothing.
func Disambiguate(candidates catalog.Catalog, in InputSource, w io.Writer) (catalog.Catalog, error) {
	s := NewSession(candidates)
	for s.State() != Done {
		if s.State() == Invalid {
			report.Warn(w, "%s not found please check spelling and try again!", s.Rejected())
		}
		line, err := in.ReadLine(IDPrompt)
		if errors.Is(err, io.EOF) {
			line, err = "", nil
		}
		if err != nil {
			return nil, err
		}
		s.Submit(line)
	}
	return s.Selected(), nil
}
