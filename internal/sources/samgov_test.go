package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amizuno/winscope/internal/registry"
)

const samFixture = `{
  "opportunitiesData": [
    {
      "title": "Conveyor Belt Replacement",
      "fullParentPathName": "DEPT OF DEFENSE.DLA",
      "naicsCode": "333922",
      "description": "Replace conveyor belts at distribution center",
      "solicitationNumber": "SPE4A6-26-Q-0123",
      "postedDate": "2026-03-10",
      "responseDeadLine": "2026-04-01T17:00:00",
      "typeOfSetAside": "SBA",
      "placeOfPerformance": {
        "city": {"name": "Tracy"},
        "state": {"code": "CA"}
      },
      "additionalInfoLink": [{"link": "https://sam.gov/opp/abc/view"}]
    },
    {
      "title": "Missing Posted Date",
      "solicitationNumber": "SPE4A6-26-Q-0999",
      "postedDate": "not-a-date"
    },
    {
      "title": "Minimal Row",
      "solicitationNumber": "SPE4A6-26-Q-0456",
      "postedDate": "2026-03-12T08:30:00"
    }
  ]
}`

func samDescriptor(t *testing.T, endpoint string) *registry.SourceDescriptor {
	t.Helper()
	t.Setenv("TEST_SAM_API_KEY", "key-123")
	return &registry.SourceDescriptor{
		Name:         "sam_gov",
		Endpoint:     endpoint,
		Strategy:     registry.StrategyRestAPI,
		BaseInterval: 4 * time.Hour,
		Codes:        []string{"333922", "541330"},
		APIKeyEnv:    "TEST_SAM_API_KEY",
	}
}

func TestSAMGovAdapter_Fetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"api_key": r.URL.Query().Get("api_key"),
			"naics":   r.URL.Query().Get("naics"),
			"limit":   r.URL.Query().Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samFixture))
	}))
	defer srv.Close()

	adapter := NewSAMGovAdapter("sam_gov", Options{})
	candidates, err := adapter.Fetch(context.Background(), samDescriptor(t, srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotQuery["api_key"])
	assert.Equal(t, "333922,541330", gotQuery["naics"])
	assert.Equal(t, "100", gotQuery["limit"])

	require.Len(t, candidates, 2, "row with an unparseable posted date is skipped")

	first := candidates[0]
	assert.Equal(t, "sam_gov", first.Source)
	assert.Equal(t, "SPE4A6-26-Q-0123", first.Reference)
	assert.Equal(t, "Conveyor Belt Replacement", first.Title)
	assert.Equal(t, "DEPT OF DEFENSE.DLA", first.Agency)
	assert.Equal(t, []string{"333922"}, first.Codes)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), first.PostedDate)
	assert.Equal(t, time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, "SBA", first.SetAside)
	assert.Equal(t, "Tracy, CA", first.Location)
	assert.Equal(t, []string{"https://sam.gov/opp/abc/view"}, first.Attachments)

	second := candidates[1]
	assert.Equal(t, "SPE4A6-26-Q-0456", second.Reference)
	assert.True(t, second.DueDate.IsZero(), "missing deadline stays zero")
	assert.Empty(t, second.Location)
}

func TestSAMGovAdapter_RequiresAPIKey(t *testing.T) {
	adapter := NewSAMGovAdapter("sam_gov", Options{})
	d := &registry.SourceDescriptor{
		Name:      "sam_gov",
		Endpoint:  "https://example.test",
		APIKeyEnv: "TEST_SAM_API_KEY_UNSET",
	}

	_, err := adapter.Fetch(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestSAMGovAdapter_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()

	adapter := NewSAMGovAdapter("sam_gov", Options{})
	_, err := adapter.Fetch(context.Background(), samDescriptor(t, srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse search response")
}

func TestSAMGovAdapter_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"opportunitiesData": []}`))
	}))
	defer srv.Close()

	adapter := NewSAMGovAdapter("sam_gov", Options{})
	candidates, err := adapter.Fetch(context.Background(), samDescriptor(t, srv.URL))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2026-03-10", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), true},
		{"2026-03-10T08:30:00", time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), true},
		{"2026-03-10T08:30:00Z", time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"03/10/2026", time.Time{}, false},
	}

	for _, tt := range tests {
		got, err := parseISODate(tt.input)
		if tt.ok {
			require.NoError(t, err, "input %q", tt.input)
			assert.True(t, got.Equal(tt.want), "input %q", tt.input)
		} else {
			assert.Error(t, err, "input %q", tt.input)
		}
	}
}
