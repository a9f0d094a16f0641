// Package app runs one scraping pass: every enabled source is paged through,
// candidates are checked against their detail pages and the seen-store, and
// the new hits are delivered once the store has been saved.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"tender_spider/internal/config"
	"tender_spider/internal/db"
	"tender_spider/internal/extract"
	"tender_spider/internal/fetch"
	"tender_spider/internal/logger"
	"tender_spider/internal/metrics"
	"tender_spider/internal/models"
	"tender_spider/internal/notify"
	"tender_spider/internal/relevance"
	urlqueue "tender_spider/internal/url_queue"
)

const (
	debugDetailLines = 15
	debugTitleRunes  = 70
	dryRunDest       = "dry-run"
)

type Pipeline struct {
	cfg      *config.Config
	fetcher  extract.Fetcher
	store    *db.Store
	filter   *relevance.Filter
	notifier notify.Notifier
	log      logger.Logger
	recorder metrics.Recorder
	spiders  []*SourceSpider

	runID string
	now   func() time.Time
	out   io.Writer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option { return func(p *Pipeline) { p.runID = id } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// WithOutput redirects the JSON run summary, stdout by default.
func WithOutput(w io.Writer) Option { return func(p *Pipeline) { p.out = w } }

func New(
	cfg *config.Config,
	fetcher extract.Fetcher,
	store *db.Store,
	filter *relevance.Filter,
	notifier notify.Notifier,
	log logger.Logger,
	recorder metrics.Recorder,
	opts ...Option,
) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	p := &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		filter:   filter,
		notifier: notifier,
		recorder: recorder,
		runID:    uuid.NewString(),
		now:      time.Now,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = log.With(logger.String("run_id", p.runID))

	for _, src := range cfg.EnabledSources() {
		ss, err := newSourceSpider(src, cfg.Logic.MaxPages)
		if err != nil {
			return nil, err
		}
		p.spiders = append(p.spiders, ss)
	}
	return p, nil
}

func (p *Pipeline) RunID() string { return p.runID }

// runState is the mutable bookkeeping of one Run.
type runState struct {
	stats   models.RunStats
	hits    []models.Hit
	checked map[string]bool
	debug   []string
}

func (st *runState) note(line string) {
	st.debug = append(st.debug, line)
}

// Run performs one pass over all enabled sources. A cancelled context stops
// crawling; the store is then neither saved nor are hits delivered.
func (p *Pipeline) Run(ctx context.Context) (models.RunStats, error) {
	st := &runState{
		stats:   models.RunStats{RunID: p.runID, StartedAt: p.now()},
		checked: make(map[string]bool),
	}

	loaded := p.store.Load(ctx)
	p.log.Info("Run started",
		logger.Int("seen_records", loaded),
		logger.Int("sources", len(p.spiders)),
		logger.Bool("dry_run", p.cfg.Logic.DryRun))

	for _, ss := range p.spiders {
		if p.capReached(st) {
			break
		}
		p.crawlSource(ctx, ss, st)
		if err := ctx.Err(); err != nil {
			st.stats.Duration = p.now().Sub(st.stats.StartedAt)
			return st.stats, fmt.Errorf("run interrupted: %w", err)
		}
	}

	return p.finalize(ctx, st)
}

func (p *Pipeline) capReached(st *runState) bool {
	return len(st.hits) >= p.cfg.Logic.MaxSendPerRun
}

func (p *Pipeline) crawlSource(ctx context.Context, ss *SourceSpider, st *runState) {
	log := p.log.With(logger.String("source", ss.Name), logger.String("kind", ss.Kind()))
	log.Debug("Crawling source", logger.String("strategies", ss.Strategies()))

	for {
		if ctx.Err() != nil || p.capReached(st) {
			return
		}
		page, ok := ss.nextPage()
		if !ok {
			return
		}
		p.crawlPage(ctx, ss, page, st, log)
	}
}

func (p *Pipeline) crawlPage(ctx context.Context, ss *SourceSpider, page urlqueue.Page, st *runState, log logger.Logger) {
	log = log.With(logger.Int("page", page.Number))

	doc, err := p.fetcher.Get(ctx, page.URL)
	if err != nil {
		logFetchError(log, "List page fetch failed", page.URL, err)
		st.note(fmt.Sprintf("%s p%d fetch_error %s", ss.Name, page.Number, fetch.TypeOf(err)))
		return
	}

	cands, statuses := ss.chain.Extract(ctx, doc, ss.pageContext(page, p.fetcher))
	st.note(fmt.Sprintf("%s p%d %s", ss.Name, page.Number, statusLine(statuses)))
	if blocked(statuses) {
		log.Warn("List page blocked", logger.String("url", page.URL), logger.Error(fetch.ErrBlocked))
	}
	log.Debug("Extracted candidates",
		logger.Int("candidates", len(cands)),
		logger.String("statuses", statusLine(statuses)))

	st.stats.Listed += len(cands)
	if len(cands) == 0 {
		return
	}

	for _, c := range p.filter.Rank(cands) {
		if ctx.Err() != nil || p.capReached(st) {
			return
		}
		if c.URL == "" || c.Identity == "" {
			continue
		}
		key := ss.Bucket + "/" + c.Identity
		if st.checked[key] {
			continue
		}
		st.checked[key] = true
		if !p.store.IsNew(ss.Bucket, c.Identity) {
			continue
		}
		p.checkCandidate(ctx, ss, c, st, log)
	}
}

// checkCandidate fetches the detail page of c and records a hit when the
// page text passes the relevance filter.
func (p *Pipeline) checkCandidate(ctx context.Context, ss *SourceSpider, c models.Candidate, st *runState, log logger.Logger) {
	log = log.With(logger.String("identity", c.Identity))

	doc, err := p.fetcher.Get(ctx, c.URL)
	st.stats.DetailChecked++
	if err != nil {
		logFetchError(log, "Detail fetch failed", c.URL, err)
		p.noteDetail(st, c.Identity, string(fetch.TypeOf(err)), c.Title)
		return
	}

	article, status := extract.ParseDetail(doc, c.Title, p.cfg.Logic.DetailTextMode)
	p.noteDetail(st, c.Identity, string(status.Outcome), article.Title)
	if status.Outcome == extract.OutcomeBlocked {
		log.Warn("Detail page blocked", logger.String("url", c.URL), logger.Error(fetch.ErrBlocked))
		return
	}
	if article.Text == "" {
		log.Debug("Detail page has no text", logger.String("url", c.URL))
		return
	}

	verdict := p.filter.Evaluate(article.Title + " " + article.Text)
	if !verdict.Accepted {
		log.Debug("Candidate rejected",
			logger.Strings("reasons", verdict.Rejected),
			logger.Int("geo_score", verdict.GeoScore))
		return
	}

	st.stats.Filtered++
	p.store.MarkSeen(ss.Bucket, c.Identity, p.now())
	st.hits = append(st.hits, models.Hit{Candidate: c, Title: article.Title, Verdict: verdict})
	st.stats.New++
	log.Info("New hit", logger.String("title", article.Title), logger.String("url", c.URL))
}

func (p *Pipeline) noteDetail(st *runState, identity, outcome, title string) {
	if !p.cfg.Debug || st.stats.DetailChecked > debugDetailLines {
		return
	}
	if r := []rune(title); len(r) > debugTitleRunes {
		title = string(r[:debugTitleRunes])
	}
	st.note(fmt.Sprintf("%s %s title=%s", identity, outcome, title))
}

// finalize saves the store, delivers hits and reports the run.
func (p *Pipeline) finalize(ctx context.Context, st *runState) (models.RunStats, error) {
	if p.cfg.Logic.DryRun {
		p.log.Info("Dry run, seen store not saved")
	} else if err := p.store.Save(ctx); err != nil {
		st.stats.Duration = p.now().Sub(st.stats.StartedAt)
		return st.stats, err
	}

	dests := p.destinations()
	hits := st.hits
	if limit := p.cfg.Logic.MaxSendPerRun; len(hits) > limit {
		hits = hits[:limit]
	}
	for i, h := range hits {
		if i > 0 && !notify.Sleep(ctx, p.cfg.NotifyPause()) {
			break
		}
		if notify.Broadcast(ctx, p.notifier, dests, notify.FormatHit(h.Title, h.Candidate.URL), p.cfg.ChatPause(), p.log) > 0 {
			st.stats.Sent++
		}
	}

	st.stats.Duration = p.now().Sub(st.stats.StartedAt)
	p.report(ctx, st, dests)
	return st.stats, nil
}

func (p *Pipeline) destinations() []string {
	if len(p.cfg.Telegram.ChatIDs) > 0 {
		return p.cfg.Telegram.ChatIDs
	}
	if p.cfg.Logic.DryRun {
		return []string{dryRunDest}
	}
	return nil
}

type summary struct {
	Time string `json:"time"`
	models.RunStats
}

func (p *Pipeline) report(ctx context.Context, st *runState, dests []string) {
	s := st.stats
	p.log.Info("Run finished",
		logger.Int("list_candidates_total", s.Listed),
		logger.Int("detail_checked", s.DetailChecked),
		logger.Int("filtered", s.Filtered),
		logger.Int("new", s.New),
		logger.Int("sent", s.Sent),
		logger.Duration("duration", s.Duration))

	enc := json.NewEncoder(p.out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(summary{Time: p.now().UTC().Format(db.TimeLayout), RunStats: s}); err != nil {
		p.log.Warn("Failed to write run summary", logger.Error(err))
	}

	if err := p.recorder.Record(s); err != nil {
		p.log.Warn("Failed to record metrics", logger.Error(err))
	}

	if p.cfg.Debug {
		notify.Broadcast(ctx, p.notifier, dests, notify.FormatDebugSummary(s, p.cfg.Logic.MaxPages, st.debug), p.cfg.ChatPause(), p.log)
	}
}

func logFetchError(log logger.Logger, msg, rawURL string, err error) {
	fields := []logger.Field{
		logger.String("url", rawURL),
		logger.String("error_type", string(fetch.TypeOf(err))),
		logger.Error(err),
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug(msg, fields...)
	case fetch.TypeOf(err) == fetch.ErrTypeRobots:
		log.Info(msg+": disallowed by robots.txt", fields...)
	default:
		log.Warn(msg, fields...)
	}
}

func blocked(statuses []extract.Status) bool {
	for _, s := range statuses {
		if s.Outcome == extract.OutcomeBlocked {
			return true
		}
	}
	return false
}

func statusLine(statuses []extract.Status) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		part := fmt.Sprintf("%s=%s(%d)", s.Strategy, s.Outcome, s.Count)
		if s.Detail != "" && s.Outcome != extract.OutcomeOK {
			part += "[" + s.Detail + "]"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
