package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/amizuno/winscope/internal/fetch"
	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/types"
)

// samPostedWindowDays bounds how far back the opportunity search reaches.
const samPostedWindowDays = 30

// samPageLimit is the maximum records requested per search call.
const samPageLimit = 100

// SAMGovAdapter fetches opportunities from SAM.gov-style REST search APIs.
type SAMGovAdapter struct {
	name string
	opts Options
}

// NewSAMGovAdapter returns an adapter for a REST API source.
func NewSAMGovAdapter(name string, opts Options) *SAMGovAdapter {
	return &SAMGovAdapter{name: name, opts: opts}
}

// Name returns the source identity this adapter serves.
func (a *SAMGovAdapter) Name() string { return a.name }

// samResponse mirrors the search API's response envelope.
type samResponse struct {
	OpportunitiesData []samOpportunity `json:"opportunitiesData"`
}

type samOpportunity struct {
	Title              string `json:"title"`
	FullParentPathName string `json:"fullParentPathName"`
	NaicsCode          string `json:"naicsCode"`
	Description        string `json:"description"`
	SolicitationNumber string `json:"solicitationNumber"`
	PostedDate         string `json:"postedDate"`
	ResponseDeadLine   string `json:"responseDeadLine"`
	TypeOfSetAside     string `json:"typeOfSetAside"`
	PlaceOfPerformance struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		State struct {
			Code string `json:"code"`
		} `json:"state"`
	} `json:"placeOfPerformance"`
	AdditionalInfoLink []struct {
		Link string `json:"link"`
	} `json:"additionalInfoLink"`
}

// Fetch queries the search endpoint for recent opportunities matching the
// source's topical codes.
func (a *SAMGovAdapter) Fetch(ctx context.Context, d *registry.SourceDescriptor) ([]types.RawCandidate, error) {
	apiKey := d.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("source %s: API key not configured (env %s)", d.Name, d.APIKeyEnv)
	}

	params := url.Values{}
	params.Set("api_key", apiKey)
	params.Set("naics", strings.Join(d.Codes, ","))
	params.Set("postedFrom", time.Now().AddDate(0, 0, -samPostedWindowDays).Format("01/02/2006"))
	params.Set("limit", fmt.Sprintf("%d", samPageLimit))
	params.Set("offset", "0")

	result, err := fetch.URL(ctx, d.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var payload samResponse
	if err := json.Unmarshal([]byte(result.Body), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	candidates := make([]types.RawCandidate, 0, len(payload.OpportunitiesData))
	for _, opp := range payload.OpportunitiesData {
		candidate, err := a.parseOpportunity(d, opp)
		if err != nil {
			// Skip malformed rows but keep the rest of the batch
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (a *SAMGovAdapter) parseOpportunity(d *registry.SourceDescriptor, opp samOpportunity) (types.RawCandidate, error) {
	posted, err := parseISODate(opp.PostedDate)
	if err != nil {
		return types.RawCandidate{}, fmt.Errorf("bad posted date %q: %w", opp.PostedDate, err)
	}

	due, _ := parseISODate(opp.ResponseDeadLine)

	var codes []string
	if opp.NaicsCode != "" {
		codes = []string{opp.NaicsCode}
	}

	location := opp.PlaceOfPerformance.City.Name
	if state := opp.PlaceOfPerformance.State.Code; state != "" {
		if location != "" {
			location += ", "
		}
		location += state
	}

	var attachments []string
	for _, link := range opp.AdditionalInfoLink {
		if link.Link != "" {
			attachments = append(attachments, link.Link)
		}
	}

	return types.RawCandidate{
		Source:      d.Name,
		Reference:   opp.SolicitationNumber,
		Title:       opp.Title,
		Agency:      opp.FullParentPathName,
		Description: opp.Description,
		Codes:       codes,
		PostedDate:  posted,
		DueDate:     due,
		SetAside:    opp.TypeOfSetAside,
		Location:    location,
		Attachments: attachments,
	}, nil
}

// parseISODate accepts the timestamp shapes the API mixes freely.
func parseISODate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}
