package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string     `json:"name"`
	Count   int        `json:"count"`
	Expires *time.Time `json:"expires,omitempty"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := JSON[sample]()
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := c.Marshal(sample{Name: "a", Count: 2, Expires: &exp})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","count":2,"expires":"2026-01-02T03:04:05Z"}`, string(data))

	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
	require.NotNil(t, got.Expires)
	assert.True(t, exp.Equal(*got.Expires))
}

func TestJSONCodecOmitsAbsentOptional(t *testing.T) {
	data, err := JSON[sample]().Marshal(sample{Name: "b"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "expires")
}

func TestJSONCodecRejectsGarbage(t *testing.T) {
	_, err := JSON[sample]().Unmarshal([]byte("{not json"))
	assert.Error(t, err)
}
