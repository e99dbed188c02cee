package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// DetectLinks extracts the titles written as [[Title]] in text, in order of
// appearance. Markers do not nest and cannot be escaped.
func DetectLinks(text string) []string {
	matches := wikiLinkPattern.FindAllStringSubmatch(text, -1)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m[1])
	}
	return titles
}

// AutoCreateLinks links noteID to every note whose title exactly matches a
// [[Title]] marker in content. Titles without a matching note are skipped.
// It returns the number of links actually created; links that already
// existed are not counted.
func AutoCreateLinks(ctx context.Context, s Store, noteID, content string) (int, error) {
	created := 0
	for _, title := range DetectLinks(content) {
		notes, err := s.FindNotesByTitle(ctx, title)
		if err != nil {
			return created, fmt.Errorf("resolve [[%s]]: %w", title, err)
		}
		target := firstOther(notes, noteID)
		if target == nil {
			continue
		}
		_, ok, err := s.CreateLink(ctx, noteID, target.ID, models.DefaultLinkType)
		if err != nil {
			return created, fmt.Errorf("link [[%s]]: %w", title, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func firstOther(notes []models.Note, self string) *models.Note {
	for i := range notes {
		if notes[i].ID != self {
			return &notes[i]
		}
	}
	return nil
}
