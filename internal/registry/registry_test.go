package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidCatalog(t *testing.T) {
	path := writeCatalog(t, `{
		"sources": [
			{
				"name": "sam.gov",
				"endpoint": "https://api.sam.gov/opportunities/v2/search",
				"strategy": "rest_api",
				"base_interval_hours": 4,
				"codes": ["333922", "333923"],
				"api_key_env": "SAM_GOV_API_KEY"
			},
			{
				"name": "state-portal",
				"endpoint": "https://procurement.example.gov/bids",
				"strategy": "html",
				"base_interval_hours": 12.5,
				"selectors": {"rows": "table.bids tr", "title": "td.title"}
			}
		]
	}`)

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	sam, ok := reg.Get("sam.gov")
	require.True(t, ok)
	assert.Equal(t, StrategyRestAPI, sam.Strategy)
	assert.Equal(t, 4*time.Hour, sam.BaseInterval)
	assert.Equal(t, []string{"333922", "333923"}, sam.Codes)

	portal, ok := reg.Get("state-portal")
	require.True(t, ok)
	assert.Equal(t, StrategyHTML, portal.Strategy)
	assert.Equal(t, 12*time.Hour+30*time.Minute, portal.BaseInterval)
	assert.Equal(t, "table.bids tr", portal.Selectors["rows"])
}

func TestLoad_RejectsInvalidCatalog(t *testing.T) {
	path := writeCatalog(t, `{
		"sources": [
			{"name": "sam.gov", "endpoint": "https://api.sam.gov", "strategy": "telepathy", "base_interval_hours": 4}
		]
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFromDescriptors_DuplicateName(t *testing.T) {
	_, err := FromDescriptors([]*SourceDescriptor{
		{Name: "sam.gov", BaseInterval: time.Hour},
		{Name: "sam.gov", BaseInterval: time.Hour},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestFromDescriptors_NonPositiveInterval(t *testing.T) {
	_, err := FromDescriptors([]*SourceDescriptor{{Name: "sam.gov"}})
	assert.Error(t, err)
}

func TestAll_StableOrder(t *testing.T) {
	reg, err := FromDescriptors([]*SourceDescriptor{
		{Name: "zeta", BaseInterval: time.Hour},
		{Name: "alpha", BaseInterval: time.Hour},
		{Name: "mid", BaseInterval: time.Hour},
	})
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestAPIKey_FromEnv(t *testing.T) {
	t.Setenv("TEST_SOURCE_KEY", "secret")
	d := &SourceDescriptor{APIKeyEnv: "TEST_SOURCE_KEY"}
	assert.Equal(t, "secret", d.APIKey())

	none := &SourceDescriptor{}
	assert.Empty(t, none.APIKey())
}
