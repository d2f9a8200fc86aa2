// Package report prints user-facing messages and candidate lists.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mvc2c/internal/catalog"
)

var (
	warn    = color.New(color.FgYellow)
	fail    = color.New(color.FgRed)
	success = color.New(color.FgGreen)
)

// Candidates prints groups as an ID / Name table in catalog order.
func Candidates(w io.Writer, groups catalog.Catalog) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"ID", "Name"})
	for _, g := range groups {
		table.Append([]string{strconv.Itoa(g.ID), g.Name})
	}
	table.Render()
}

// Warn prints a recoverable problem.
func Warn(w io.Writer, format string, args ...any) {
	warn.Fprintf(w, format+"\n", args...)
}

// Fail prints the message of a fatal error.
func Fail(w io.Writer, format string, args ...any) {
	fail.Fprintf(w, format+"\n", args...)
}

// Success prints a completed change.
func Success(w io.Writer, format string, args ...any) {
	success.Fprintf(w, format+"\n", args...)
}

// Info prints a plain line.
func Info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
