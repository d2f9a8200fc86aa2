package workflow

// bulk.go — assign computers to static groups from a delimited file.
//
// Example content:
//
//	mac00234,211
//	mac00333;211
//	mac01010,300
//
// Spreadsheet exports use ';', plain csv uses ','. Every row is handled on
// its own: a missing computer, an unknown group or a refused update skips
// that row and the run carries on.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"mvc2c/internal/assign"
	"mvc2c/internal/jss"
	"mvc2c/internal/report"
	"mvc2c/internal/resolve"
)

// Row is one line of a bulk file.
type Row struct {
	Line     int
	Raw      string
	Computer string
	GroupID  string
	// Err is set when the line does not hold exactly two fields.
	Err error
}

// ParseBulk reads rows from r. Blank lines are not rows.
func ParseBulk(r io.Reader) ([]Row, error) {
	var rows []Row
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		raw := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		rows = append(rows, parseRow(n, raw))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read bulk file: %w", err)
	}
	return rows, nil
}

func parseRow(n int, raw string) Row {
	row := Row{Line: n, Raw: raw}
	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	fields := strings.Split(raw, sep)
	if len(fields) != 2 {
		row.Err = fmt.Errorf("expected 2 fields separated by %q, got %d", sep, len(fields))
		return row
	}
	row.Computer = strings.TrimSpace(fields[0])
	row.GroupID = strings.TrimSpace(fields[1])
	if row.Computer == "" || row.GroupID == "" {
		row.Err = errors.New("empty computer or group id")
	}
	return row
}

// BulkSummary counts what a bulk run did.
type BulkSummary struct {
	Rows      int
	Attempted int
	Added     int
	Skipped   int
}

// Bulk assigns computers from parsed rows.
type Bulk struct {
	Deps
}

// Run processes every row. Only a connection failure while updating a
// group, or while loading the catalog, ends the run early.
func (b *Bulk) Run(ctx context.Context, rows []Row) (BulkSummary, error) {
	sum := BulkSummary{Rows: len(rows)}
	groups, err := b.loadCatalog(ctx)
	if err != nil {
		return sum, err
	}

	for _, row := range rows {
		log := b.Log.WithFields(logrus.Fields{"line": row.Line, "computer": row.Computer, "group": row.GroupID})
		skip := func(reason string) {
			sum.Skipped++
			log.WithField("reason", reason).Debug("row skipped")
			report.Warn(b.Out, "Skipping line: %s (%s)", row.Raw, reason)
		}

		if row.Err != nil {
			skip(row.Err.Error())
			continue
		}
		if _, err := b.Directory.GetComputer(ctx, row.Computer); err != nil {
			var se *jss.StatusError
			if errors.As(err, &se) {
				report.Info(b.Out, "Search for %s failed with return code: %d", row.Computer, se.Code)
				skip("computer not found")
			} else {
				skip(err.Error())
			}
			continue
		}
		group, ok := resolve.MatchID(groups, row.GroupID)
		if !ok {
			report.Info(b.Out, "No such static group: %s", row.GroupID)
			skip("unknown static group")
			continue
		}

		sum.Attempted++
		out, err := b.Executor.Assign(ctx, row.Computer, group.IDString())
		if err != nil {
			return sum, b.fatal(err)
		}
		switch out.Kind {
		case assign.Added:
			sum.Added++
			b.added(row.Computer, group.IDString())
		case assign.DryRun:
		case assign.ServerError:
			report.Info(b.Out, "Update for group %s failed with return code: %d", group.IDString(), out.Code)
			skip(fmt.Sprintf("update refused with %d", out.Code))
		default:
			skip(out.Reason)
		}
	}

	b.Log.WithFields(logrus.Fields{
		"rows": sum.Rows, "attempted": sum.Attempted, "added": sum.Added, "skipped": sum.Skipped,
	}).Info("bulk assignment finished")
	return sum, nil
}
