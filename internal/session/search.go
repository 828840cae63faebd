package session

import (
	"context"
	"fmt"
	"strings"

	"pdf-view-session/internal/domain"
)

// RunSearch stores term as the current search term and searches the open
// document. An empty term clears the previous results and matches nothing.
func (c *Controller) RunSearch(term string, matchCase, wholeWord bool) (domain.SearchReport, error) {
	report := domain.SearchReport{Term: term}
	err := c.call(context.Background(), func() error {
		if strings.TrimSpace(term) == "" {
			c.store.Update(func(s *State) {
				s.SearchTerm = term
				s.SearchResults = nil
			})
			return nil
		}
		if !c.engine.IsOpen() {
			c.store.Update(func(s *State) { s.SearchTerm = term })
			return domain.ErrNoDocument
		}

		matches, err := c.engine.Search(term, matchCase, wholeWord)
		if err != nil {
			return err
		}
		report.Matches = matches
		report.Lines = make([]string, 0, len(matches))
		for _, m := range matches {
			report.Lines = append(report.Lines, fmt.Sprintf("Found \"%s\" in page: %d", m.Text, m.PageIndex+1))
		}
		c.store.Update(func(s *State) {
			s.SearchTerm = term
			s.SearchResults = append([]domain.SearchMatch(nil), matches...)
		})
		return nil
	})
	if err != nil {
		return domain.SearchReport{Term: term}, c.invalidState(err)
	}
	if c.logger != nil {
		c.logger.Debug("Search finished", "term", term, "matches", len(report.Matches))
	}
	return report, nil
}
