package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/config"
	"github.com/backyonatan-alt/partnersync/internal/fetcher"
	"github.com/backyonatan-alt/partnersync/internal/model"
	"github.com/backyonatan-alt/partnersync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURI(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.EnvSourceFrom([]string{
		"LINK=https://example.com/api/partners?filter=sort={sort};pageSize={pageSize};pageOffset={offset};country={country};{additionalFilter};",
	}))
	require.NoError(t, err)

	uri := fetcher.BuildURI(cfg.Link(), model.PageRequest{Country: "US", Page: 2, Sort: 0, PageSize: 20})

	assert.Equal(t, "https://example.com/api/partners?filter=sort=0;pageSize=20;pageOffset=40;country=US;services=Integration;;", uri)
	assert.NotContains(t, uri, "{")
	assert.NotContains(t, uri, "}")
}

func TestPageFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns items", func(t *testing.T) {
		t.Parallel()

		up := testutil.NewUpstream()
		defer up.Close()
		up.SetPages("US", testutil.IDs("us", 20), testutil.IDs("us-b", 5))

		f := fetcher.New(up.Link(), time.Second)
		page := f.Fetch(context.Background(), model.PageRequest{Country: "US", Page: 1, PageSize: 20})

		require.Equal(t, model.PageItems, page.Kind)
		require.Len(t, page.Items, 5)
		assert.Equal(t, "us-b-0", page.Items[0].NaturalKey())
		assert.Equal(t, []string{"filter=sort=0;pageSize=20;pageOffset=20;country=US;onlyThisCountry=true;services=Integration;;"}, up.Requests())
	})

	t.Run("empty page ends results", func(t *testing.T) {
		t.Parallel()

		up := testutil.NewUpstream()
		defer up.Close()

		f := fetcher.New(up.Link(), time.Second)
		page := f.Fetch(context.Background(), model.PageRequest{Country: "FR", PageSize: 20})

		assert.Equal(t, model.PageEnd, page.Kind)
		assert.True(t, page.Stop())
		assert.NoError(t, page.Err)
	})

	t.Run("server error is a fetch error", func(t *testing.T) {
		t.Parallel()

		up := testutil.NewUpstream()
		defer up.Close()
		up.SetPages("US", testutil.IDs("us", 3))
		up.FailNext("US", 1)

		f := fetcher.New(up.Link(), time.Second)
		page := f.Fetch(context.Background(), model.PageRequest{Country: "US", PageSize: 20})

		assert.Equal(t, model.PageFailed, page.Kind)
		require.Error(t, page.Err)
		assert.Contains(t, page.Err.Error(), "HTTP 500")
	})

	t.Run("malformed body and missing envelope are fetch errors", func(t *testing.T) {
		t.Parallel()

		bodies := map[string]string{
			"garbage":     `not json`,
			"no envelope": `{"somethingElse":{}}`,
			"null":        `null`,
		}
		for name, body := range bodies {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))

			f := fetcher.New(srv.URL+testutil.Link, time.Second)
			page := f.Fetch(context.Background(), model.PageRequest{Country: "US", PageSize: 20})
			srv.Close()

			assert.Equal(t, model.PageFailed, page.Kind, name)
			assert.Error(t, page.Err, name)
		}
	})

	t.Run("timeout is a fetch error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		f := fetcher.New(srv.URL+testutil.Link, 50*time.Millisecond)
		page := f.Fetch(context.Background(), model.PageRequest{Country: "US", PageSize: 20})

		assert.Equal(t, model.PageFailed, page.Kind)
	})

	t.Run("unreachable host is a fetch error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		link := srv.URL + testutil.Link
		srv.Close()

		page := fetcher.New(link, time.Second).Fetch(context.Background(), model.PageRequest{Country: "US", PageSize: 20})
		assert.Equal(t, model.PageFailed, page.Kind)
		assert.Error(t, page.Err)
	})
}
