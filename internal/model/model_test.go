package model_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/backyonatan-alt/partnersync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequest_Offset(t *testing.T) {
	t.Parallel()

	req := model.PageRequest{Country: "US", Page: 2, PageSize: 20}
	assert.Equal(t, 40, req.Offset())
}

func TestPartner_NaturalKey(t *testing.T) {
	t.Parallel()

	t.Run("uses string id", func(t *testing.T) {
		t.Parallel()

		p := model.Partner{Raw: json.RawMessage(`{"id":"4296ba9d-1a2b","name":"Contoso"}`)}
		assert.Equal(t, "4296ba9d-1a2b", p.NaturalKey())
	})

	t.Run("uses numeric id", func(t *testing.T) {
		t.Parallel()

		p := model.Partner{Raw: json.RawMessage(`{"id":12345,"name":"Contoso"}`)}
		assert.Equal(t, "12345", p.NaturalKey())
	})

	t.Run("falls back to content hash", func(t *testing.T) {
		t.Parallel()

		a := model.Partner{Raw: json.RawMessage(`{"name":"Contoso"}`)}
		b := model.Partner{Raw: json.RawMessage(`{ "name" : "Contoso" }`)}
		c := model.Partner{Raw: json.RawMessage(`{"name":"Fabrikam"}`)}

		assert.True(t, strings.HasPrefix(a.NaturalKey(), "xxh:"))
		assert.Equal(t, a.NaturalKey(), b.NaturalKey())
		assert.NotEqual(t, a.NaturalKey(), c.NaturalKey())
	})

	t.Run("empty string id falls back to hash", func(t *testing.T) {
		t.Parallel()

		p := model.Partner{Raw: json.RawMessage(`{"id":""}`)}
		assert.True(t, strings.HasPrefix(p.NaturalKey(), "xxh:"))
	})
}

func TestNewPartnerRow(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"id":"abc"}`)
	row := model.NewPartnerRow(model.PageRequest{Country: "DE", Page: 3, PageSize: 20}, model.Partner{Raw: raw})

	assert.Equal(t, model.PartnerRow{NaturalKey: "abc", Page: 3, Country: "DE", Raw: raw}, row)
}

func TestPage(t *testing.T) {
	t.Parallel()

	items := model.Items([]model.Partner{{Raw: json.RawMessage(`{}`)}})
	assert.Equal(t, model.PageItems, items.Kind)
	assert.False(t, items.Stop())

	empty := model.Items(nil)
	assert.Equal(t, model.PageEnd, empty.Kind)
	assert.True(t, empty.Stop())

	failed := model.FetchError(errors.New("boom"))
	assert.Equal(t, model.PageFailed, failed.Kind)
	assert.True(t, failed.Stop())
	require.EqualError(t, failed.Err, "boom")
}

func TestCountries(t *testing.T) {
	t.Parallel()

	assert.Len(t, model.Countries, 249)
	assert.True(t, model.IsCountry("US"))
	assert.True(t, model.IsCountry("DE"))
	assert.False(t, model.IsCountry("XX"))
	assert.False(t, model.IsCountry("us"))

	seen := make(map[string]bool)
	for _, c := range model.Countries {
		require.Len(t, c, 2)
		require.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
}
