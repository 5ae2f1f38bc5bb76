package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRemote(t *testing.T) {
	cases := []struct {
		in   string
		want Slug
		ok   bool
	}{
		{"https://github.com/acme/world.git", Slug{"github.com", "acme", "world"}, true},
		{"https://GitHub.com/acme/world/", Slug{"github.com", "acme", "world"}, true},
		{"ssh://git@github.com:22/acme/world.git", Slug{"github.com", "acme", "world"}, true},
		{"git@github.com:acme/world.git", Slug{"github.com", "acme", "world"}, true},
		{"ghe.example.com:team/plugin", Slug{"ghe.example.com", "team", "plugin"}, true},
		{"/srv/git/world.git", Slug{}, false},
		{"file:///srv/git/world.git", Slug{}, false},
		{"https://github.com/acme", Slug{}, false},
		{"https://github.com/acme/world/tree/main", Slug{}, false},
		{"", Slug{}, false},
	}
	for _, tc := range cases {
		got, err := ParseRemote(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("ParseRemote(%q) = %+v, %v; want %+v", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnparsableRemote) {
			t.Errorf("ParseRemote(%q) err = %v, want ErrUnparsableRemote", tc.in, err)
		}
	}
}

type fakeAPI struct {
	repo       int
	branch     int
	protection int
	protBody   string
}

func (f fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/world", func(w http.ResponseWriter, r *http.Request) {
		if f.repo != http.StatusOK {
			w.WriteHeader(f.repo)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"full_name":"acme/world","default_branch":"main","archived":false,"private":true}`))
	})
	mux.HandleFunc("/api/v3/repos/acme/world/branches/main", func(w http.ResponseWriter, r *http.Request) {
		if f.branch != http.StatusOK {
			w.WriteHeader(f.branch)
			_, _ = w.Write([]byte(`{"message":"Branch not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"main","protected":true}`))
	})
	mux.HandleFunc("/api/v3/repos/acme/world/branches/main/protection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.protection)
		_, _ = w.Write([]byte(f.protBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "tok", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

var world = Slug{Host: "github.com", Owner: "acme", Name: "world"}

func TestInspect_ProtectedBranchBlocksForcePush(t *testing.T) {
	srv := fakeAPI{repo: 200, branch: 200, protection: 200,
		protBody: `{"allow_force_pushes":{"enabled":false},"required_pull_request_reviews":{"required_approving_review_count":1}}`}.server(t)

	info, err := newTestClient(t, srv).Inspect(context.Background(), world, "main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.FullName != "acme/world" || info.DefaultBranch != "main" || !info.Private {
		t.Fatalf("repo fields: %+v", info)
	}
	if !info.BranchExists || !info.Protected || !info.ProtectionKnown {
		t.Fatalf("branch fields: %+v", info)
	}
	if info.AllowsForcePush || !info.RequiresReviews {
		t.Fatalf("protection fields: %+v", info)
	}
}

func TestInspect_ProtectionForbidden(t *testing.T) {
	srv := fakeAPI{repo: 200, branch: 200, protection: 403, protBody: `{"message":"Resource not accessible"}`}.server(t)

	info, err := newTestClient(t, srv).Inspect(context.Background(), world, "main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.ProtectionKnown {
		t.Fatalf("expected unknown protection: %+v", info)
	}
	if !strings.Contains(info.ProtectionReason, "403") || strings.Contains(info.ProtectionReason, "http") {
		t.Fatalf("ProtectionReason = %q", info.ProtectionReason)
	}
}

func TestInspect_MissingBranch(t *testing.T) {
	srv := fakeAPI{repo: 200, branch: 404}.server(t)

	info, err := newTestClient(t, srv).Inspect(context.Background(), world, "main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.BranchExists {
		t.Fatalf("expected missing branch: %+v", info)
	}
}

func TestInspect_MissingRepo(t *testing.T) {
	srv := fakeAPI{repo: 404}.server(t)

	_, err := newTestClient(t, srv).Inspect(context.Background(), world, "main")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := PresentError(err); got != "GitHub API (404 Not Found): Not Found" {
		t.Fatalf("PresentError = %q", got)
	}
}

func TestPresentError_ScrubsRequestLine(t *testing.T) {
	err := fmt.Errorf("GET https://api.github.com/repos/acme/world: connection reset")
	if got := PresentError(err); got != "GitHub API: connection reset" {
		t.Fatalf("PresentError = %q", got)
	}
	if got := PresentError(errors.New("dial tcp: timeout")); got != "GitHub API: dial tcp: timeout" {
		t.Fatalf("PresentError = %q", got)
	}
	if PresentError(nil) != "" {
		t.Fatal("nil error should present as empty")
	}
}
