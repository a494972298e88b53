package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/testutil"
)

func layoutJSON(t *testing.T, pages int) []byte {
	t.Helper()
	data, err := json.Marshal(testutil.SampleScan(pages))
	require.NoError(t, err)
	return data
}

func TestCacheReusesEngines(t *testing.T) {
	c, err := NewCache(testConfig(), Options{}, 1)
	require.NoError(t, err)

	one := layoutJSON(t, 1)
	e1, err := c.Get(one, template.FormatJSON)
	require.NoError(t, err)
	e2, err := c.Get(one, template.FormatJSON)
	require.NoError(t, err)
	assert.Same(t, e1, e2)
	assert.Equal(t, 1, c.Len())

	e3, err := c.Get(layoutJSON(t, 2), template.FormatJSON)
	require.NoError(t, err)
	assert.NotSame(t, e1, e3)
	assert.Len(t, e3.Scan().Pages, 2)
	assert.Equal(t, 1, c.Len())
}

func TestCacheErrors(t *testing.T) {
	_, err := NewCache(testConfig(), Options{}, 0)
	assert.Error(t, err)

	bad := testConfig()
	bad.JPEGQuality = 0
	_, err = NewCache(bad, Options{}, 2)
	assert.Error(t, err)

	c, err := NewCache(testConfig(), Options{}, 2)
	require.NoError(t, err)
	_, err = c.Get([]byte("{"), template.FormatJSON)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
