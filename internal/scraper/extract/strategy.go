package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one structural assumption about where data lives on a page.
type Strategy[T any] struct {
	Name    string
	Extract func(p *Page) []T
}

// FirstNonEmpty runs strategies in order and returns the result of the first one
// that finds anything, along with its name. Later strategies are not run.
func FirstNonEmpty[T any](p *Page, strategies []Strategy[T]) ([]T, string) {
	for _, s := range strategies {
		if s.Extract == nil {
			continue
		}
		if out := runStrategy(p, s); len(out) > 0 {
			return out, s.Name
		}
	}
	return nil, ""
}

func runStrategy[T any](p *Page, s Strategy[T]) (out []T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Extraction strategy panicked", "strategy", s.Name, "panic", r)
			out = nil
		}
	}()
	return s.Extract(p)
}

// eachCandidate calls fn for every element of sel. A panic inside fn drops only
// that candidate.
func eachCandidate(sel *goquery.Selection, fn func(i int, s *goquery.Selection)) {
	sel.Each(func(i int, s *goquery.Selection) {
		defer func() {
			if r := recover(); r != nil {
				slog.Debug("Skipped malformed candidate", "index", i, "panic", r)
			}
		}()
		fn(i, s)
	})
}
