// Package fetch retrieves upstream documents through a synchronous colly
// collector: browser headers, a public-suffix cookie jar, per-host pacing
// and no retries.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/gocolly/colly"
	"golang.org/x/net/publicsuffix"

	"tender_spider/internal/config"
	"tender_spider/internal/logger"
	"tender_spider/internal/models"
)

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8"
	acceptLanguageHeader = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"

	ctxResponse = "tender_spider.response"
)

type Options struct {
	UserAgent             string
	Timeout               time.Duration
	Delay                 time.Duration
	AllowInsecureFallback bool
	RespectRobots         bool
	// Transport replaces the default transport of the verifying collector.
	Transport http.RoundTripper
}

// OptionsFromConfig derives fetch options from the run configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:             cfg.Logic.UserAgent,
		Timeout:               cfg.RequestTimeout(),
		Delay:                 cfg.SleepBetween(),
		AllowInsecureFallback: cfg.Logic.AllowInsecureFallback,
		RespectRobots:         cfg.Logic.RespectRobots,
	}
}

type Collector struct {
	opts     Options
	secure   *colly.Collector
	insecure *colly.Collector
	robots   *RobotsPolicy
	log      logger.Logger
}

func New(opts Options, log logger.Logger) (*Collector, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}

	secure, err := newColly(opts, opts.Transport)
	if err != nil {
		return nil, err
	}
	c := &Collector{opts: opts, secure: secure, log: log}

	if opts.AllowInsecureFallback {
		insecureTransport := &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in fallback only
		}
		if c.insecure, err = newColly(opts, insecureTransport); err != nil {
			return nil, err
		}
	}
	if opts.RespectRobots {
		c.robots = newRobotsPolicy(c.raw, opts.UserAgent)
	}
	return c, nil
}

func newColly(opts Options, transport http.RoundTripper) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	if transport != nil {
		c.WithTransport(transport)
	}
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c.SetCookieJar(jar)

	if opts.Delay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: opts.Delay}); err != nil {
			return nil, fmt.Errorf("set limit rule: %w", err)
		}
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxResponse, r)
	})
	return c, nil
}

// Get fetches rawURL. Anything but HTTP 200 is returned as *Error. A
// certificate verification failure is retried once without verification
// when the insecure fallback is enabled.
func (c *Collector) Get(ctx context.Context, rawURL string) (*models.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		return nil, &Error{Type: ErrTypeRobots, URL: rawURL, Cause: fmt.Errorf("disallowed by robots.txt")}
	}

	doc, err := c.get(ctx, c.secure, rawURL)
	if err != nil && c.insecure != nil && TypeOf(err) == ErrTypeTLS {
		c.log.Warn("TLS verification failed, retrying without verification",
			logger.String("url", rawURL), logger.Error(err))
		doc, err = c.get(ctx, c.insecure, rawURL)
	}
	return doc, err
}

func (c *Collector) get(ctx context.Context, coll *colly.Collector, rawURL string) (*models.SourceDocument, error) {
	resp, err := c.do(ctx, coll, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPStatus(resp.StatusCode, rawURL)
	}

	contentType := ""
	if resp.Headers != nil {
		contentType = resp.Headers.Get("Content-Type")
	}
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &models.SourceDocument{
		URL:         finalURL,
		Kind:        DetectKind(contentType, resp.Body),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        resp.Body,
	}, nil
}

func (c *Collector) do(ctx context.Context, coll *colly.Collector, rawURL string) (*colly.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cctx := colly.NewContext()
	hdr := http.Header{}
	hdr.Set("User-Agent", c.opts.UserAgent)
	hdr.Set("Accept", acceptHeader)
	hdr.Set("Accept-Language", acceptLanguageHeader)

	if err := coll.Request(http.MethodGet, rawURL, nil, cctx, hdr); err != nil {
		return nil, ClassifyTransportError(err, rawURL)
	}
	resp, ok := cctx.GetAny(ctxResponse).(*colly.Response)
	if !ok || resp == nil {
		return nil, &Error{Type: ErrTypeNetwork, URL: rawURL, Cause: fmt.Errorf("no response")}
	}
	return resp, nil
}

// raw is used for robots.txt: any status is returned to the caller.
func (c *Collector) raw(ctx context.Context, rawURL string) (int, []byte, error) {
	resp, err := c.do(ctx, c.secure, rawURL)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, resp.Body, nil
}

// DetectKind classifies a body from its content type, falling back to
// sniffing the first bytes.
func DetectKind(contentType string, body []byte) models.DocumentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return models.KindJSON
	case strings.Contains(ct, "xml") && !strings.Contains(ct, "xhtml"):
		return models.KindXML
	case strings.Contains(ct, "html"):
		return models.KindHTML
	}
	head := bytes.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	switch {
	case bytes.HasPrefix(head, []byte("{")) || bytes.HasPrefix(head, []byte("[")):
		return models.KindJSON
	case bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<urlset")) ||
		bytes.HasPrefix(head, []byte("<sitemapindex")) || bytes.HasPrefix(head, []byte("<rss")) ||
		bytes.HasPrefix(head, []byte("<feed")):
		return models.KindXML
	default:
		return models.KindHTML
	}
}
