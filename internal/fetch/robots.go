package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// rawFetch performs a request without robots.txt checks.
type rawFetch func(ctx context.Context, rawURL string) (status int, body []byte, err error)

// RobotsPolicy caches parsed robots.txt per host for the life of a run. A
// missing or unreadable robots.txt allows everything.
type RobotsPolicy struct {
	fetch     rawFetch
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func newRobotsPolicy(fetch rawFetch, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{
		fetch:     fetch,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	host := strings.ToLower(u.Host)

	p.mu.Lock()
	data, cached := p.cache[host]
	p.mu.Unlock()

	if !cached {
		data = p.load(ctx, u.Scheme, host)
		p.mu.Lock()
		p.cache[host] = data
		p.mu.Unlock()
	}
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, p.userAgent)
}

func (p *RobotsPolicy) load(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	status, body, err := p.fetch(ctx, scheme+"://"+host+"/robots.txt")
	if err != nil && status == 0 {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil
	}
	return data
}
