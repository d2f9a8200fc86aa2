// Package catalog loads the static computer groups once per run.
//
// Smart groups are computed by the server from a saved search and must never
// be changed by hand, so they are dropped here and never reach the resolver.
package catalog

import (
	"context"
	"errors"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"mvc2c/internal/jss"
)

// StaticGroup is a manually maintained computer group.
type StaticGroup struct {
	ID   int
	Name string
}

// IDString is the id as it appears in urls and user input.
func (g StaticGroup) IDString() string { return jss.FormatID(g.ID) }

// Lister is the part of the directory client the loader needs.
type Lister interface {
	ListComputerGroups(ctx context.Context) ([]jss.ComputerGroup, error)
}

// Catalog is the ordered list of static groups, in server order.
type Catalog []StaticGroup

// LoadStaticGroups fetches all groups and keeps the static ones.
//
// A transport failure is returned as an error. A non-success status yields
// an empty catalog, which the resolver then reports as "no match". The status
// is logged and, when out is not nil, printed there for the operator.
func LoadStaticGroups(ctx context.Context, l Lister, log logrus.FieldLogger, out io.Writer) (Catalog, error) {
	groups, err := l.ListComputerGroups(ctx)
	if err != nil {
		var se *jss.StatusError
		if errors.As(err, &se) {
			log.WithField("status", se.Code).Warn("computer groups unavailable")
			if out != nil {
				color.New(color.FgYellow).Fprintf(out, "Could not load computergroups, return code was: %d\n", se.Code)
			}
			return Catalog{}, nil
		}
		return nil, err
	}
	return FromGroups(groups, log), nil
}

// FromGroups filters a raw group list down to static groups.
func FromGroups(groups []jss.ComputerGroup, log logrus.FieldLogger) Catalog {
	out := make(Catalog, 0, len(groups))
	smart := 0
	for _, g := range groups {
		if g.IsSmart {
			smart++
			continue
		}
		out = append(out, StaticGroup{ID: g.ID, Name: g.Name})
	}
	log.WithFields(logrus.Fields{"static": len(out), "smart": smart}).Debug("static group catalog")
	return out
}

// Names returns every group name, in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, g := range c {
		names[i] = g.Name
	}
	return names
}
