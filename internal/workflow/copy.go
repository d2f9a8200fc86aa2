package workflow

// copy.go — give a destination computer the static group memberships of a
// source computer.

import (
	"context"

	"mvc2c/internal/resolve"
)

// Prompts used by the copy flow.
const (
	SourcePrompt      = "Enter source computer: "
	DestinationPrompt = "Enter destination computer: "
)

// CopyOptions names both computers; empty values are asked for.
type CopyOptions struct {
	Source      string
	Destination string
}

// Copy copies memberships between computers.
type Copy struct {
	Deps
}

// Run executes the flow. Smart group memberships of the source are ignored;
// the first refused update ends the run.
func (c *Copy) Run(ctx context.Context, opts CopyOptions) error {
	source, err := c.ask(opts.Source, SourcePrompt)
	if err != nil {
		return err
	}
	dest, err := c.ask(opts.Destination, DestinationPrompt)
	if err != nil {
		return err
	}

	src, err := c.lookupComputer(ctx, source)
	if err != nil {
		return err
	}
	if _, err := c.lookupComputer(ctx, dest); err != nil {
		return err
	}
	c.Log.WithField("memberships", src.GroupMemberships).Debugf("%s group memberships", source)

	groups, err := c.loadCatalog(ctx)
	if err != nil {
		return err
	}

	overlap := resolve.Resolve(groups, resolve.ByMembershipNames(src.GroupMemberships))
	if len(overlap) == 0 {
		return exitf(1, "%s has no membership in static groups!", source)
	}
	for _, g := range overlap {
		c.Log.WithField("group", g.Name).Debug("static membership to copy")
	}
	return c.assignAll(ctx, dest, overlap)
}
