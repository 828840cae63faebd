package engine

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"pdf-view-session/internal/domain"

	"golang.org/x/text/unicode/norm"
)

// Search scans every page in order and returns each occurrence of term.
func (e *Engine) Search(term string, matchCase, wholeWord bool) ([]domain.SearchMatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, domain.ErrNoDocument
	}

	re := compileSearch(term, matchCase)
	if re == nil {
		return nil, nil
	}

	var matches []domain.SearchMatch
	for i := 0; i < e.pageCount; i++ {
		text, err := e.doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extract text of page %d: %w", i+1, err)
		}
		text = cleanText(text)
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if wholeWord && !atWordBoundary(text, loc[0], loc[1]) {
				continue
			}
			matches = append(matches, domain.SearchMatch{PageIndex: i, Text: text[loc[0]:loc[1]]})
		}
	}
	return matches, nil
}

// compileSearch builds the matcher for term; nil means nothing can match.
func compileSearch(term string, matchCase bool) *regexp.Regexp {
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(term)
	if !matchCase {
		pattern = `(?i)` + pattern
	}
	return regexp.MustCompile(pattern)
}

// atWordBoundary reports whether text[start:end] is not glued to a letter,
// digit or underscore on either side. Unlike \b this is Unicode aware.
func atWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
