// Package pager walks Spotify paging objects from an already fetched first page to the last one.
//
// Collection endpoints disagree about nesting: most return the paging object at the top level, while
// followed artists wrap it under "artists". [NormalizePage] resolves that once, so [CollectAll] and
// [Walker] only ever see a uniform [models.Page].
//
// Failures are fail-fast: if fetching any page fails, nothing collected so far is returned.
package pager

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// NextFunc fetches the page that follows page.
type NextFunc func(ctx context.Context, page models.Page) (models.Record, error)

// NormalizePage converts a raw collection response into a [models.Page].
//
// If the record has no "items" key it is unwrapped one level through "artists" first.
func NormalizePage(raw models.Record) (models.Page, error) {
	if raw == nil {
		return models.Page{}, fmt.Errorf("%w: nil page", shared.ErrDataShape)
	}

	body := raw
	if !raw.Has("items") {
		inner, err := raw.Record("artists")
		if err != nil {
			return models.Page{}, fmt.Errorf("page has neither items nor artists: %w", err)
		}
		body = inner
	}

	items, err := body.Records("items")
	if err != nil {
		return models.Page{}, err
	}

	page := models.Page{Items: items}

	switch next := body["next"].(type) {
	case nil:
	case string:
		page.Next = next
	default:
		return models.Page{}, fmt.Errorf("%w: next is %T, want string or null", shared.ErrDataShape, next)
	}

	if body.Has("total") {
		if total, err := body.Int("total"); err == nil {
			page.Total = total
		}
	}

	return page, nil
}

// Walker iterates pages one at a time.
type Walker struct {
	next    NextFunc
	page    models.Page
	seen    map[string]struct{}
	started bool
	fetches int
}

// NewWalker prepares a walk starting at first, which the caller has already fetched.
func NewWalker(first models.Record, next NextFunc) (*Walker, error) {
	page, err := NormalizePage(first)
	if err != nil {
		return nil, err
	}
	return &Walker{next: next, page: page, seen: map[string]struct{}{}}, nil
}

// Next returns the next page. ok is false once the final page has been returned.
func (w *Walker) Next(ctx context.Context) (page models.Page, ok bool, err error) {
	if !w.started {
		w.started = true
		return w.page, true, nil
	}

	if !w.page.HasNext() {
		return models.Page{}, false, nil
	}

	url := w.page.Next
	if _, dup := w.seen[url]; dup {
		return models.Page{}, false, fmt.Errorf("%w: %s", shared.ErrPageCycle, url)
	}
	w.seen[url] = struct{}{}

	raw, err := w.next(ctx, w.page)
	w.fetches++
	if err != nil {
		return models.Page{}, false, fmt.Errorf("failed to fetch page %d: %w", w.fetches+1, err)
	}

	page, err = NormalizePage(raw)
	if err != nil {
		return models.Page{}, false, fmt.Errorf("page %d: %w", w.fetches+1, err)
	}

	w.page = page
	return page, true, nil
}

// Fetches reports how many pages were requested through the [NextFunc].
func (w *Walker) Fetches() int {
	return w.fetches
}

// CollectAll returns every item of every page in server order.
func CollectAll(ctx context.Context, first models.Record, next NextFunc) ([]models.Record, error) {
	w, err := NewWalker(first, next)
	if err != nil {
		return nil, err
	}

	items := []models.Record{}
	for {
		page, ok, err := w.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, page.Items...)
	}
}
