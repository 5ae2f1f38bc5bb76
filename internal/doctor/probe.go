package doctor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	gh "gitsync/internal/github"
)

// Prober reads remote repository facts. *github.Client implements it.
type Prober interface {
	Inspect(ctx context.Context, slug gh.Slug, branch string) (*gh.RepoInfo, error)
}

// ProberFactory returns the prober for a remote host.
type ProberFactory func(ctx context.Context, host string) (Prober, error)

// probeCache dedupes probes of remotes shared by several records and
// builds one prober per host.
type probeCache struct {
	factory ProberFactory

	mu      sync.Mutex
	probers map[string]Prober

	group   singleflight.Group
	results sync.Map
}

type probeResult struct {
	info *gh.RepoInfo
	err  error
}

func newProbeCache(f ProberFactory) *probeCache {
	return &probeCache{factory: f, probers: map[string]Prober{}}
}

func (c *probeCache) prober(ctx context.Context, host string) (Prober, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.probers[host]; ok {
		return p, nil
	}
	p, err := c.factory(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("github client for %s: %w", host, err)
	}
	c.probers[host] = p
	return p, nil
}

func (c *probeCache) inspect(ctx context.Context, slug gh.Slug, branch string) (*gh.RepoInfo, error) {
	key := strings.ToLower(slug.Host + "/" + slug.Owner + "/" + slug.Name + "@" + branch)
	if v, ok := c.results.Load(key); ok {
		r := v.(probeResult)
		return r.info, r.err
	}
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		p, err := c.prober(ctx, slug.Host)
		if err != nil {
			return probeResult{err: err}, nil
		}
		info, err := p.Inspect(ctx, slug, branch)
		r := probeResult{info: info, err: err}
		if ctx.Err() == nil {
			c.results.Store(key, r)
		}
		return r, nil
	})
	r := v.(probeResult)
	return r.info, r.err
}
