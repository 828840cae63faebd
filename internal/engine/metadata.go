package engine

import (
	"strings"
	"time"

	"pdf-view-session/internal/domain"
)

// Information returns a fresh snapshot of the document information dictionary.
func (e *Engine) Information() (domain.Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return domain.Metadata{}, domain.ErrNoDocument
	}

	raw := e.doc.Metadata()
	return domain.Metadata{
		Author:   optional(raw["author"]),
		Creator:  optional(raw["creator"]),
		Keywords: optional(raw["keywords"]),
		Producer: optional(raw["producer"]),
		Subject:  optional(raw["subject"]),
		Title:    optional(raw["title"]),
		Created:  parsePDFDate(raw["creationDate"]),
		Modified: parsePDFDate(raw["modDate"]),
	}, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// parsePDFDate parses the D:YYYYMMDDHHmmSSOHH'mm' date format. Any prefix
// after the year may be omitted. Unparsable input yields nil.
func parsePDFDate(s string) *time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return nil
	}

	digits := s
	zone := ""
	if i := strings.IndexAny(s, "Zz+-"); i >= 0 {
		digits, zone = s[:i], s[i:]
	}
	if len(digits) < 4 || len(digits) > 14 || len(digits)%2 != 0 {
		return nil
	}
	// Pad the missing components with their defaults (month/day 01, time 00).
	const defaults = "00000101000000"
	digits += defaults[len(digits):]

	loc := time.UTC
	if zone != "" && zone[0] != 'Z' && zone[0] != 'z' {
		z := strings.ReplaceAll(zone[1:], "'", "")
		if len(z) != 2 && len(z) != 4 {
			return nil
		}
		if len(z) == 2 {
			z += "00"
		}
		offset, err := time.Parse("1504", z)
		if err != nil {
			return nil
		}
		secs := offset.Hour()*3600 + offset.Minute()*60
		if zone[0] == '-' {
			secs = -secs
		}
		loc = time.FixedZone("", secs)
	}

	t, err := time.ParseInLocation("20060102150405", digits, loc)
	if err != nil {
		return nil
	}
	return &t
}
