// Package github wraps go-github for the read-only remote probes run by
// doctor.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	log     *zerolog.Logger
	baseURL string
	timeout time.Duration
}

type Option func(*options)

// WithLogger logs one debug line per request and response.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimSpace(u) }
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

type loggingRoundTripper struct {
	base http.RoundTripper
	log  zerolog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("github api request")
	resp, err := t.base.RoundTrip(req)
	ev := t.log.Debug().Dur("elapsed", time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		ev.Err(err).Msg("github api error")
	} else {
		ev.Int("status", resp.StatusCode).Msg("github api response")
	}
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := http.DefaultTransport
	if o.log != nil {
		transport = &loggingRoundTripper{base: transport, log: *o.log}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport, Timeout: o.timeout}

	gc := github.NewClient(tc)
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		var err error
		gc, err = gc.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("github client: base url: %w", err)
		}
	}

	return &Client{Client: gc, HTTP: tc}, nil
}
