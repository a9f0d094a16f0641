package models

import "time"

type DocumentKind string

const (
	KindHTML DocumentKind = "html"
	KindJSON DocumentKind = "json"
	KindXML  DocumentKind = "xml"
)

// SourceDocument is a fetched payload. It is never persisted.
type SourceDocument struct {
	URL         string
	Kind        DocumentKind
	StatusCode  int
	ContentType string
	Body        []byte
}

// Candidate is one announcement found by an extraction strategy.
type Candidate struct {
	Identity  string
	Title     string
	URL       string
	Source    string
	RawFields map[string]string
}

// ExtractedArticle is the readable part of a detail page.
type ExtractedArticle struct {
	Title   string
	Text    string
	HTML    string
	Excerpt string
}

type Verdict struct {
	Accepted      bool
	GeoScore      int
	HasPrimary    bool
	CategoryMatch bool
	Rejected      []string
}

type Hit struct {
	Candidate Candidate
	Title     string
	Verdict   Verdict
}

// SeenState maps bucket -> identity -> first-seen timestamp (RFC 3339).
type SeenState map[string]map[string]string

// SeenRecord is the document shape used by the mongo backend.
type SeenRecord struct {
	ID        string `bson:"_id" json:"-"`
	Bucket    string `bson:"bucket" json:"bucket"`
	Identity  string `bson:"identity" json:"identity"`
	FirstSeen string `bson:"first_seen" json:"first_seen"`
}

type RunStats struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"-"`
	Duration      time.Duration `json:"-"`
	Listed        int           `json:"list_candidates_total"`
	DetailChecked int           `json:"detail_checked"`
	Filtered      int           `json:"filtered"`
	New           int           `json:"new"`
	Sent          int           `json:"sent"`
}
