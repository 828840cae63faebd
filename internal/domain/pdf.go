package domain

import (
	"fmt"
	"strings"
	"time"
)

// Metadata is a read-only snapshot of the document information dictionary.
type Metadata struct {
	Author   *string    `json:"author,omitempty"`
	Creator  *string    `json:"creator,omitempty"`
	Keywords *string    `json:"keywords,omitempty"`
	Producer *string    `json:"producer,omitempty"`
	Subject  *string    `json:"subject,omitempty"`
	Title    *string    `json:"title,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

// Report renders the metadata as one "Field: value" line per field.
func (m Metadata) Report() string {
	var sb strings.Builder
	line := func(label string, v *string) {
		val := ""
		if v != nil {
			val = *v
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, val)
	}
	date := func(label string, t *time.Time) {
		val := ""
		if t != nil {
			val = t.Format(time.RFC3339)
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, val)
	}
	line("Author", m.Author)
	line("Creator", m.Creator)
	line("Keywords", m.Keywords)
	line("Producer", m.Producer)
	line("Subject", m.Subject)
	line("Title", m.Title)
	date("Create Date", m.Created)
	date("Modified Date", m.Modified)
	return sb.String()
}

// SearchMatch is one occurrence of a search term.
type SearchMatch struct {
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
}

// SearchReport is the formatted result of one search invocation.
type SearchReport struct {
	Term    string        `json:"term"`
	Matches []SearchMatch `json:"matches"`
	Lines   []string      `json:"lines"`
}

// String joins the report lines, one per match.
func (r SearchReport) String() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.Join(r.Lines, "\n") + "\n"
}

// PageText is the text of a page captured together with its index.
type PageText struct {
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
}

// Caption describes the page for display.
func (p PageText) Caption() string {
	return fmt.Sprintf("Page %d contains %d character(s):", p.PageIndex+1, len([]rune(p.Text)))
}

// SweepResult describes a completed full-sweep render.
type SweepResult struct {
	Steps     int           `json:"steps"`
	PageStep  int           `json:"page_step"`
	LastPage  int           `json:"last_page"`
	PageCount int           `json:"page_count"`
	Duration  time.Duration `json:"duration"`
}

// SweepFault is the record kept for a sweep that failed.
type SweepFault struct {
	SessionID  string    `json:"session_id"`
	Step       int       `json:"step"`
	PageIndex  int       `json:"page_index"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
