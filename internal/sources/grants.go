package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amizuno/winscope/internal/fetch"
	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/types"
)

// GrantsAdapter scrapes SBIR/STTR-style grant topic listings. Grant pages
// list topics rather than solicitations, so rows rarely carry values or
// set-asides; keyword filtering happens here because grant portals have no
// server-side topical search worth trusting.
type GrantsAdapter struct {
	name string
	opts Options
}

// NewGrantsAdapter returns an adapter for grant topic listings.
func NewGrantsAdapter(name string, opts Options) *GrantsAdapter {
	return &GrantsAdapter{name: name, opts: opts}
}

// Name returns the source identity this adapter serves.
func (a *GrantsAdapter) Name() string { return a.name }

// Fetch retrieves the topic listing and keeps topics matching the source's
// keywords.
func (a *GrantsAdapter) Fetch(ctx context.Context, d *registry.SourceDescriptor) ([]types.RawCandidate, error) {
	rowsSelector := d.Selectors[selRows]
	if rowsSelector == "" {
		return nil, fmt.Errorf("source %s: no %q selector configured", d.Name, selRows)
	}

	result, err := fetch.URL(ctx, d.Endpoint, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse topic listing: %w", err)
	}

	var candidates []types.RawCandidate
	doc.Find(rowsSelector).Each(func(_ int, row *goquery.Selection) {
		title := selectText(row, d.Selectors[selTitle])
		if title == "" {
			return
		}

		text := strings.TrimSpace(row.Text())
		if !matchesKeywords(title+" "+text, d.Keywords) {
			return
		}

		candidates = append(candidates, types.RawCandidate{
			Source:      d.Name,
			Reference:   selectText(row, d.Selectors[selReference]),
			Title:       title,
			Agency:      selectText(row, d.Selectors[selAgency]),
			Description: text,
			Codes:       d.Codes,
			PostedDate:  time.Now().UTC().Truncate(24 * time.Hour),
		})
	})

	return candidates, nil
}

// matchesKeywords reports whether any keyword appears in the text.
// An empty keyword list matches everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
