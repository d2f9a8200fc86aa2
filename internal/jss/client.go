// Package jss is a minimal client for the JSS classic API (/JSSResource).
//
// Only the three calls the membership tools need are implemented: computer
// lookup by name, the computer group list, and additive group updates.
// Reads are JSON; the server only accepts XML on PUT.
package jss

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"mvc2c/internal/settings"
)

// StatusCreated is the only status the server returns for a successful
// group update.
const StatusCreated = http.StatusCreated

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// Computer holds the fields of a computer record the tools use.
type Computer struct {
	ID   int
	Name string
	// GroupMemberships lists the names of every group (smart and static)
	// the computer belongs to.
	GroupMemberships []string
}

// ComputerGroup is one entry of GET /computergroups.
type ComputerGroup struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsSmart bool   `json:"is_smart"`
}

type computerResponse struct {
	Computer struct {
		General struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"general"`
		GroupsAccounts struct {
			ComputerGroupMemberships []string `json:"computer_group_memberships"`
		} `json:"groups_accounts"`
	} `json:"computer"`
}

type computerGroupsResponse struct {
	ComputerGroups []ComputerGroup `json:"computer_groups"`
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// TransportError reports a request that never produced a response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response with an unexpected status code.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with return code: %d", e.Op, e.Code)
}

// IsTransport reports whether err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client carries one authenticated session for the whole run. It is not
// safe for concurrent use; the tools issue one request at a time.
type Client struct {
	http     *http.Client
	baseURL  string
	user     string
	password string
	log      logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for cfg.
func New(cfg settings.ConnectionConfig, log logrus.FieldLogger, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed JSS certificates
		if !cfg.SuppressTLSWarnings {
			log.Warnf("TLS certificate verification is disabled for %s", cfg.ServerURL)
		}
	}
	c := &Client{
		http:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		baseURL:  cfg.ServerURL,
		user:     cfg.User,
		password: cfg.Password,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server url the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ComputerURL returns the lookup url for a computer name.
func (c *Client) ComputerURL(name string) string {
	return c.baseURL + "/JSSResource/computers/name/" + url.PathEscape(name)
}

// GroupsURL returns the computer group list url.
func (c *Client) GroupsURL() string {
	return c.baseURL + "/JSSResource/computergroups"
}

// GroupURL returns the update url for a computer group id.
func (c *Client) GroupURL(groupID string) string {
	return c.baseURL + "/JSSResource/computergroups/id/" + url.PathEscape(groupID)
}

// GetComputer fetches a computer record by name. A non-200 response is
// returned as a *StatusError.
func (c *Client) GetComputer(ctx context.Context, name string) (*Computer, error) {
	var resp computerResponse
	if err := c.getJSON(ctx, c.ComputerURL(name), "Request "+name+" by name", &resp); err != nil {
		return nil, err
	}
	comp := &Computer{
		ID:               resp.Computer.General.ID,
		Name:             resp.Computer.General.Name,
		GroupMemberships: resp.Computer.GroupsAccounts.ComputerGroupMemberships,
	}
	if comp.Name == "" {
		comp.Name = name
	}
	c.log.WithFields(logrus.Fields{"computer": name, "id": comp.ID}).Debug("computer found")
	return comp, nil
}

// ListComputerGroups fetches every computer group, smart ones included.
func (c *Client) ListComputerGroups(ctx context.Context) ([]ComputerGroup, error) {
	var resp computerGroupsResponse
	if err := c.getJSON(ctx, c.GroupsURL(), "Load computergroups", &resp); err != nil {
		return nil, err
	}
	c.log.WithField("groups", len(resp.ComputerGroups)).Debug("computer groups loaded")
	return resp.ComputerGroups, nil
}

// AddComputerToGroup issues an additive membership update for one group and
// returns the response status. The error is non-nil only when no response
// was received.
func (c *Client) AddComputerToGroup(ctx context.Context, groupID, computer string) (int, error) {
	payload, err := AdditionPayload(computer)
	if err != nil {
		return 0, err
	}
	target := c.GroupURL(groupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.WithFields(logrus.Fields{"url": target, "status": resp.StatusCode}).Debug("group update")
	return resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, target, op string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.baseURL, Err: err}
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Payload
// ---------------------------------------------------------------------------

type groupAdditions struct {
	XMLName   xml.Name        `xml:"computer_group"`
	Computers []namedComputer `xml:"computer_additions>computer"`
}

type namedComputer struct {
	Name string `xml:"name"`
}

// AdditionPayload builds the PUT body that adds exactly one computer to a
// group. It never carries a full member list, so existing members are kept.
func AdditionPayload(computer string) ([]byte, error) {
	data, err := xml.Marshal(groupAdditions{Computers: []namedComputer{{Name: computer}}})
	if err != nil {
		return nil, fmt.Errorf("marshal additions for %q: %w", computer, err)
	}
	return data, nil
}

// FormatID renders a numeric group id the way it appears in urls.
func FormatID(id int) string {
	return strconv.Itoa(id)
}
