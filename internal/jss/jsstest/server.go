// Package jsstest provides an in-memory JSS classic API for tests.
package jsstest

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"mvc2c/internal/jss"
	"mvc2c/internal/settings"
)

const (
	User     = "api-user"
	Password = "api-pass"
)

// Put records one group update received by the server.
type Put struct {
	GroupID     string
	Computers   []string
	ContentType string
	Body        string
}

// Server is a fake inventory server. Fields may be changed between
// requests; access is serialized.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Computers maps names to records; the record's name is filled in.
	Computers map[string]jss.Computer
	Groups    []jss.ComputerGroup
	// Members holds the current static membership per group id.
	Members map[int][]string
	// GroupsStatus, when non-zero, is returned by GET /computergroups.
	GroupsStatus int
	// PutStatus overrides the PUT response per group id.
	PutStatus map[string]int
	Puts      []Put
	Gets      []string
}

// NewServer starts a fake server that is closed with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Computers: map[string]jss.Computer{},
		Members:   map[int][]string{},
		PutStatus: map[string]int{},
	}
	r := chi.NewRouter()
	r.Use(s.auth)
	r.Route("/JSSResource", func(r chi.Router) {
		r.Get("/computers/name/{name}", s.getComputer)
		r.Get("/computergroups", s.listGroups)
		r.Put("/computergroups/id/{id}", s.putGroup)
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Connection returns settings that reach this server.
func (s *Server) Connection() settings.ConnectionConfig {
	return settings.ConnectionConfig{
		ServerURL: s.URL,
		User:      User,
		Password:  Password,
		VerifyTLS: true,
	}
}

// AddComputer registers a computer with the given group memberships.
func (s *Server) AddComputer(name string, id int, memberships ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Computers[name] = jss.Computer{ID: id, Name: name, GroupMemberships: memberships}
}

// AddGroup registers a computer group.
func (s *Server) AddGroup(id int, name string, smart bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Groups = append(s.Groups, jss.ComputerGroup{ID: id, Name: name, IsSmart: smart})
}

// SeedMembers sets the current members of a group.
func (s *Server) SeedMembers(id int, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Members[id] = append([]string(nil), names...)
}

// PutsSnapshot returns a copy of the recorded updates.
func (s *Server) PutsSnapshot() []Put {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Put(nil), s.Puts...)
}

// MembersOf returns a copy of a group's members.
func (s *Server) MembersOf(id int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Members[id]...)
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != User || pass != Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getComputer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	s.Gets = append(s.Gets, r.URL.Path)
	c, ok := s.Computers[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body := map[string]any{
		"computer": map[string]any{
			"general": map[string]any{"id": c.ID, "name": c.Name},
			"groups_accounts": map[string]any{
				"computer_group_memberships": nonNil(c.GroupMemberships),
			},
		},
	}
	writeJSON(w, body)
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets = append(s.Gets, r.URL.Path)
	if s.GroupsStatus != 0 && s.GroupsStatus != http.StatusOK {
		w.WriteHeader(s.GroupsStatus)
		// The real server sends a body with error statuses too.
		_, _ = io.WriteString(w, `{"computer_groups":[]}`)
		return
	}
	groups := s.Groups
	if groups == nil {
		groups = []jss.ComputerGroup{}
	}
	writeJSON(w, map[string]any{"computer_groups": groups})
}

type additions struct {
	XMLName   xml.Name `xml:"computer_group"`
	Computers []struct {
		Name string `xml:"name"`
	} `xml:"computer_additions>computer"`
}

func (s *Server) putGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idStr := chi.URLParam(r, "id")
	raw, _ := io.ReadAll(r.Body)

	var body additions
	_ = xml.Unmarshal(raw, &body)
	put := Put{GroupID: idStr, ContentType: r.Header.Get("Content-Type"), Body: string(raw)}
	for _, c := range body.Computers {
		put.Computers = append(put.Computers, c.Name)
	}
	s.Puts = append(s.Puts, put)

	if code, ok := s.PutStatus[idStr]; ok {
		w.WriteHeader(code)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || !s.hasGroup(id) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	for _, name := range put.Computers {
		if !contains(s.Members[id], name) {
			s.Members[id] = append(s.Members[id], name)
		}
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) hasGroup(id int) bool {
	for _, g := range s.Groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
