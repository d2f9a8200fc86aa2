package workflow

// single.go — assign one computer to one or more static groups.

import (
	"context"
	"strings"

	"mvc2c/internal/catalog"
	"mvc2c/internal/report"
	"mvc2c/internal/resolve"
)

// Prompts used by the single-assign flow.
const (
	ComputerPrompt = "Enter a computer name: "
	SoftwarePrompt = "Please enter a software name or hit <Enter> for a complete list: "
)

// SingleOptions selects the computer and groups. Nil pointers mean the
// flag was not given.
type SingleOptions struct {
	Computer string
	// Software narrows the groups by name. It wins over GroupID.
	Software *string
	GroupID  *string
	// All uses every Software match without asking for ids. It is ignored
	// when Software is nil.
	All bool
}

// Single assigns one computer.
type Single struct {
	Deps
}

// Run executes the flow. The first refused update ends the run.
func (s *Single) Run(ctx context.Context, opts SingleOptions) error {
	computer, err := s.ask(opts.Computer, ComputerPrompt)
	if err != nil {
		return err
	}
	// Only existence matters here.
	if _, err := s.lookupComputer(ctx, computer); err != nil {
		return err
	}

	groups, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}

	var (
		candidates catalog.Catalog
		selected   catalog.Catalog
	)
	switch {
	case opts.Software != nil:
		software := strings.ToLower(*opts.Software)
		candidates = resolve.Resolve(groups, resolve.BySubstring(software))
		if len(candidates) == 0 {
			return exitf(1, "No software found that matches: %s", software)
		}
		report.Candidates(s.Out, candidates)
	case opts.GroupID != nil:
		if strings.TrimSpace(*opts.GroupID) == "" {
			return exitf(1, "No software with ID: %s found .. exiting!", *opts.GroupID)
		}
		selected = resolve.Resolve(groups, resolve.ByID(*opts.GroupID))
		if len(selected) == 0 {
			return exitf(1, "No software with ID: %s found .. exiting!", *opts.GroupID)
		}
	default:
		software, err := s.Input.ReadLine(SoftwarePrompt)
		if err != nil && !isEOF(err) {
			return s.fatal(err)
		}
		// An empty answer matches, and so lists, every static group.
		candidates = resolve.Resolve(groups, resolve.BySubstring(software))
		if len(candidates) == 0 {
			return exitf(1, "Nothing selected .. exiting!")
		}
		report.Candidates(s.Out, candidates)
	}

	if len(selected) == 0 {
		// All only applies to an explicit -s; an empty answer lists everything.
		if opts.All && opts.Software != nil {
			selected = candidates
		} else {
			selected, err = resolve.Disambiguate(candidates, s.Input, s.Out)
			if err != nil {
				return s.fatal(err)
			}
		}
	}
	if len(selected) == 0 {
		return exitf(1, "Nothing selected .. exiting!")
	}

	s.Log.WithField("groups", len(selected)).Debugf("assigning %s", computer)
	return s.assignAll(ctx, computer, selected)
}
