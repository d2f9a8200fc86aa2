package workflow

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/fatih/color"

	"mvc2c/internal/assign"
	"mvc2c/internal/jss"
	"mvc2c/internal/jss/jsstest"
	"mvc2c/internal/logging"
	"mvc2c/internal/prompt"
)

func init() {
	color.NoColor = true
}

type harness struct {
	srv   *jsstest.Server
	input *prompt.Scripted
	out   *bytes.Buffer
	deps  Deps
}

func newHarness(t *testing.T, answers ...string) *harness {
	t.Helper()
	srv := jsstest.NewServer(t)
	srv.AddGroup(1, "Adobe CC", false)
	srv.AddGroup(2, "Office365", false)
	srv.AddGroup(3, "Adobe Reader", false)
	srv.AddGroup(5, "All Managed Clients", true)
	srv.AddGroup(10, "Adobe Acrobat", false)
	srv.AddComputer("mac01", 101, "All Managed Clients")
	srv.AddComputer("mac02", 102)

	log := logging.Discard()
	client := jss.New(srv.Connection(), log)
	h := &harness{srv: srv, input: &prompt.Scripted{Answers: answers}, out: &bytes.Buffer{}}
	h.deps = Deps{
		Directory: client,
		Executor:  assign.New(client, log, false, h.out),
		Input:     h.input,
		Out:       h.out,
		Log:       log,
	}
	return h
}

func (h *harness) putGroups() string {
	var ids []string
	for _, p := range h.srv.PutsSnapshot() {
		ids = append(ids, p.GroupID)
	}
	return strings.Join(ids, ",")
}

func strPtr(s string) *string { return &s }

func wantExit(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if ee.Code != code {
		t.Errorf("exit code = %d, want %d (msg %q)", ee.Code, code, ee.Msg)
	}
	if !strings.Contains(ee.Msg, msg) {
		t.Errorf("message = %q, want containing %q", ee.Msg, msg)
	}
}

// ---------------------------------------------------------------------------
// ExitCode
// ---------------------------------------------------------------------------

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil should exit 0")
	}
	if ExitCode(errors.New("x")) != 1 {
		t.Error("plain errors should exit 1")
	}
	wrapped := errors.Join(errors.New("ctx"), &ExitError{Code: 409, Msg: "refused"})
	if ExitCode(wrapped) != 409 {
		t.Errorf("ExitCode(wrapped) = %d, want 409", ExitCode(wrapped))
	}
}

// ---------------------------------------------------------------------------
// Single
// ---------------------------------------------------------------------------

func TestSingle_ByID(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("10")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "10" {
		t.Errorf("puts = %q, want 10", h.putGroups())
	}
	if !strings.Contains(h.out.String(), "Added mac01 to group with id: 10") {
		t.Errorf("output = %q", h.out.String())
	}
	if len(h.input.Asked) != 0 {
		t.Errorf("id flag should skip prompts, asked %v", h.input.Asked)
	}
}

func TestSingle_ByIDNotFound(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("999")})
	wantExit(t, err, 1, "No software with ID: 999 found .. exiting!")
	if h.putGroups() != "" {
		t.Errorf("unexpected puts %q", h.putGroups())
	}
}

func TestSingle_ByIDSmartGroupIsInvisible(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("5")})
	wantExit(t, err, 1, "No software with ID: 5")
}

func TestSingle_SoftwareWithDisambiguation(t *testing.T) {
	h := newHarness(t, "2", "3", "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", Software: strPtr("Reader")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "3" {
		t.Errorf("puts = %q, want 3", h.putGroups())
	}
	out := h.out.String()
	if !strings.Contains(out, "Adobe Reader") {
		t.Errorf("candidate list missing: %s", out)
	}
	if !strings.Contains(out, "2 not found please check spelling and try again!") {
		t.Errorf("missing spelling warning: %s", out)
	}
}

func TestSingle_SoftwareAll(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", Software: strPtr("ADOBE"), All: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "1,3,10" {
		t.Errorf("puts = %q, want 1,3,10 in catalog order", h.putGroups())
	}
}

// An empty software answer lists every group; All must not take them all.
func TestSingle_AllIgnoredWithoutSoftware(t *testing.T) {
	h := newHarness(t, "", "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac02", All: true})
	wantExit(t, err, 1, "Nothing selected")
	if h.putGroups() != "" {
		t.Errorf("puts = %q, want none", h.putGroups())
	}
}

func TestSingle_EmptyGroupID(t *testing.T) {
	for _, id := range []string{"", "  "} {
		h := newHarness(t)
		err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac02", GroupID: strPtr(id)})
		wantExit(t, err, 1, "No software with ID:")
		if h.putGroups() != "" {
			t.Errorf("id %q: puts = %q, want none", id, h.putGroups())
		}
	}
}

func TestSingle_SoftwareNoMatch(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", Software: strPtr("PhotoShop")})
	wantExit(t, err, 1, "No software found that matches: photoshop")
}

func TestSingle_SoftwareWinsOverID(t *testing.T) {
	h := newHarness(t, "1", "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{
		Computer: "mac01", Software: strPtr("adobe cc"), GroupID: strPtr("2"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "1" {
		t.Errorf("puts = %q, want 1", h.putGroups())
	}
}

func TestSingle_Interactive(t *testing.T) {
	// Computer, blank software (full list), one id, then finish.
	h := newHarness(t, "mac02", "", "2", "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "2" {
		t.Errorf("puts = %q, want 2", h.putGroups())
	}
	if h.input.Asked[0] != ComputerPrompt || h.input.Asked[1] != SoftwarePrompt {
		t.Errorf("prompts = %v", h.input.Asked)
	}
	for _, name := range []string{"Adobe CC", "Office365", "Adobe Reader", "Adobe Acrobat"} {
		if !strings.Contains(h.out.String(), name) {
			t.Errorf("full list missing %q", name)
		}
	}
	if strings.Contains(h.out.String(), "All Managed Clients") {
		t.Error("smart group listed as candidate")
	}
}

func TestSingle_InteractiveNothingSelected(t *testing.T) {
	h := newHarness(t, "mac01", "adobe", "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{})
	wantExit(t, err, 1, "Nothing selected .. exiting!")
}

func TestSingle_InteractiveNoMatch(t *testing.T) {
	h := newHarness(t, "mac01", "zzz")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{})
	wantExit(t, err, 1, "Nothing selected .. exiting!")
}

func TestSingle_ComputerNotFound(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "ghost", GroupID: strPtr("1")})
	wantExit(t, err, http.StatusNotFound, "Request ghost by name failed with return code: 404")
	if h.putGroups() != "" {
		t.Errorf("unexpected puts %q", h.putGroups())
	}
}

func TestSingle_FailFast(t *testing.T) {
	h := newHarness(t)
	h.srv.PutStatus["1"] = http.StatusConflict
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", Software: strPtr("adobe"), All: true})
	wantExit(t, err, http.StatusConflict, "Update for group 1 failed with return code: 409")
	if h.putGroups() != "1" {
		t.Errorf("puts = %q, run must stop after the first refusal", h.putGroups())
	}
}

func TestSingle_Transport(t *testing.T) {
	h := newHarness(t)
	h.srv.Close()
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("1")})
	wantExit(t, err, 1, "Cannot connect to "+h.srv.URL)
}

func TestSingle_CancelledPrompt(t *testing.T) {
	h := newHarness(t)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{})
	wantExit(t, err, 1, "Cancelled")
}

func TestSingle_EmptyComputerName(t *testing.T) {
	h := newHarness(t, "")
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{})
	wantExit(t, err, 1, "Nothing entered")
}

func TestSingle_CatalogStatusLeavesNothing(t *testing.T) {
	h := newHarness(t)
	h.srv.GroupsStatus = http.StatusInternalServerError
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("1")})
	wantExit(t, err, 1, "No software with ID: 1")
	if !strings.Contains(h.out.String(), "Could not load computergroups, return code was: 500") {
		t.Errorf("catalog status not shown: %s", h.out.String())
	}
}

func TestSingle_DryRun(t *testing.T) {
	h := newHarness(t)
	h.deps.Executor = assign.New(h.deps.Directory.(*jss.Client), logging.Discard(), true, h.out)
	err := (&Single{h.deps}).Run(context.Background(), SingleOptions{Computer: "mac01", GroupID: strPtr("3")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "" {
		t.Errorf("dry run sent %q", h.putGroups())
	}
	if !strings.Contains(h.out.String(), "/JSSResource/computergroups/id/3") {
		t.Errorf("dry run output = %q", h.out.String())
	}
}

// ---------------------------------------------------------------------------
// Copy
// ---------------------------------------------------------------------------

func TestCopy(t *testing.T) {
	h := newHarness(t)
	h.srv.AddComputer("src", 7, "All Managed Clients", "Adobe Reader", "Office365", "Retired Group")
	err := (&Copy{h.deps}).Run(context.Background(), CopyOptions{Source: "src", Destination: "mac02"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.putGroups() != "2,3" {
		t.Errorf("puts = %q, want 2,3", h.putGroups())
	}
	for _, p := range h.srv.PutsSnapshot() {
		if len(p.Computers) != 1 || p.Computers[0] != "mac02" {
			t.Errorf("payload names %v, want only mac02", p.Computers)
		}
	}
	if !strings.Contains(h.out.String(), "Added mac02 to group with id: 3") {
		t.Errorf("output = %q", h.out.String())
	}
}

func TestCopy_Prompts(t *testing.T) {
	h := newHarness(t, "src", "mac02")
	h.srv.AddComputer("src", 7, "Adobe CC")
	if err := (&Copy{h.deps}).Run(context.Background(), CopyOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(h.input.Asked, "|") != SourcePrompt+"|"+DestinationPrompt {
		t.Errorf("prompts = %v", h.input.Asked)
	}
	if h.putGroups() != "1" {
		t.Errorf("puts = %q", h.putGroups())
	}
}

func TestCopy_OnlySmartMemberships(t *testing.T) {
	h := newHarness(t)
	err := (&Copy{h.deps}).Run(context.Background(), CopyOptions{Source: "mac01", Destination: "mac02"})
	wantExit(t, err, 1, "mac01 has no membership in static groups!")
}

func TestCopy_DestinationNotFound(t *testing.T) {
	h := newHarness(t)
	h.srv.AddComputer("src", 7, "Adobe CC")
	err := (&Copy{h.deps}).Run(context.Background(), CopyOptions{Source: "src", Destination: "ghost"})
	wantExit(t, err, http.StatusNotFound, "Request ghost by name")
	if h.putGroups() != "" {
		t.Errorf("unexpected puts %q", h.putGroups())
	}
}

func TestCopy_FailFast(t *testing.T) {
	h := newHarness(t)
	h.srv.AddComputer("src", 7, "Adobe CC", "Office365")
	h.srv.PutStatus["1"] = http.StatusUnauthorized
	err := (&Copy{h.deps}).Run(context.Background(), CopyOptions{Source: "src", Destination: "mac02"})
	wantExit(t, err, http.StatusUnauthorized, "Update for group 1")
	if h.putGroups() != "1" {
		t.Errorf("puts = %q", h.putGroups())
	}
}
