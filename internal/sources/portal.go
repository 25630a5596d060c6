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

// Selector keys the generic portal adapter understands. Each portal's
// catalog entry maps these to its own markup.
const (
	selRows      = "rows"
	selTitle     = "title"
	selAgency    = "agency"
	selReference = "reference"
	selDueDate   = "due_date"
	selPosted    = "posted"
	selValue     = "value"
	selSetAside  = "set_aside"
	selLocation  = "location"
)

// browserRenderTimeout bounds headless rendering per portal page.
const browserRenderTimeout = 45 * time.Second

// PortalAdapter scrapes listing pages of state and local procurement portals.
// One implementation covers every portal; the differences live entirely in
// each source's selector map.
type PortalAdapter struct {
	name string
	opts Options
}

// NewPortalAdapter returns the generic HTML portal adapter.
func NewPortalAdapter(name string, opts Options) *PortalAdapter {
	return &PortalAdapter{name: name, opts: opts}
}

// Name returns the source identity this adapter serves.
func (a *PortalAdapter) Name() string { return a.name }

// Fetch retrieves the portal's listing page and extracts one candidate per
// configured row. A page with zero matching rows is an empty result, not an
// error.
func (a *PortalAdapter) Fetch(ctx context.Context, d *registry.SourceDescriptor) ([]types.RawCandidate, error) {
	rowsSelector := d.Selectors[selRows]
	if rowsSelector == "" {
		return nil, fmt.Errorf("source %s: no %q selector configured", d.Name, selRows)
	}

	html, err := a.pageHTML(ctx, d)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse portal HTML: %w", err)
	}

	var candidates []types.RawCandidate
	doc.Find(rowsSelector).Each(func(_ int, row *goquery.Selection) {
		candidate, ok := a.parseRow(d, row)
		if ok {
			candidates = append(candidates, candidate)
		}
	})

	return candidates, nil
}

// pageHTML fetches the listing page, falling back to a headless browser when
// the static HTML carries too little text to be a real listing.
func (a *PortalAdapter) pageHTML(ctx context.Context, d *registry.SourceDescriptor) (string, error) {
	result, err := fetch.URL(ctx, d.Endpoint, nil)
	if err != nil {
		if !a.browserAllowed(d) {
			return "", err
		}
		return fetch.WithBrowser(ctx, d.Endpoint, browserRenderTimeout, a.opts.Verbose)
	}

	if a.browserAllowed(d) {
		text, textErr := fetch.ExtractText(result.Body, nil)
		if textErr == nil && fetch.ShouldUseBrowser(text) {
			if html, bErr := fetch.WithBrowser(ctx, d.Endpoint, browserRenderTimeout, a.opts.Verbose); bErr == nil {
				return html, nil
			}
		}
	}

	return result.Body, nil
}

func (a *PortalAdapter) browserAllowed(d *registry.SourceDescriptor) bool {
	return a.opts.UseBrowser && d.UseBrowser
}

// parseRow extracts a candidate from one listing row. Rows without a title
// are navigation chrome and get skipped.
func (a *PortalAdapter) parseRow(d *registry.SourceDescriptor, row *goquery.Selection) (types.RawCandidate, bool) {
	title := selectText(row, d.Selectors[selTitle])
	if title == "" {
		return types.RawCandidate{}, false
	}

	candidate := types.RawCandidate{
		Source:      d.Name,
		Title:       title,
		Agency:      selectText(row, d.Selectors[selAgency]),
		Reference:   selectText(row, d.Selectors[selReference]),
		SetAside:    selectText(row, d.Selectors[selSetAside]),
		Location:    selectText(row, d.Selectors[selLocation]),
		Codes:       d.Codes,
		Description: strings.TrimSpace(row.Text()),
	}

	if posted := selectText(row, d.Selectors[selPosted]); posted != "" {
		candidate.PostedDate, _ = parsePortalDate(posted)
	}
	if candidate.PostedDate.IsZero() {
		// Listings without a posted date are treated as posted today so the
		// fallback identity key stays stable within a day.
		candidate.PostedDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if due := selectText(row, d.Selectors[selDueDate]); due != "" {
		candidate.DueDate, _ = parsePortalDate(due)
	}

	if value := selectText(row, d.Selectors[selValue]); value != "" {
		candidate.EstimatedValue = parseMoney(value)
	}

	return candidate, true
}

func selectText(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(row.Find(selector).First().Text())
}

// parsePortalDate tries the date formats seen across state portals.
func parsePortalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"01/02/2006", "1/2/2006", "2006-01-02", "January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// parseMoney extracts a dollar amount from display text like "$120,000.00".
// Returns 0 when no usable number is present.
func parseMoney(s string) float64 {
	var digits strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' && !seenDot && digits.Len() > 0:
			// A dot only counts as a decimal point after digits, so prose
			// like "Est. $1,500,000" parses correctly.
			seenDot = true
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	var value float64
	if _, err := fmt.Sscanf(digits.String(), "%f", &value); err != nil {
		return 0
	}
	return value
}
