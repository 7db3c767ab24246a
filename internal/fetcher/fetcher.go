package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/config"
	"github.com/backyonatan-alt/partnersync/internal/model"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

var errNoEnvelope = errors.New("response has no matchingPartners envelope")

// envelope is the search response shape; only the item list is read.
type envelope struct {
	MatchingPartners *struct {
		Items []json.RawMessage `json:"items"`
	} `json:"matchingPartners"`
}

// PageFetcher retrieves one page of partners per call.
type PageFetcher struct {
	client *http.Client
	link   string
}

// New returns a fetcher for link, a template with the additional filter
// already folded in.
func New(link string, timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PageFetcher{
		client: &http.Client{Timeout: timeout},
		link:   link,
	}
}

// BuildURI substitutes the page parameters into link.
func BuildURI(link string, req model.PageRequest) string {
	return strings.NewReplacer(
		config.PlaceholderSort, strconv.Itoa(req.Sort),
		config.PlaceholderPageSize, strconv.Itoa(req.PageSize),
		config.PlaceholderOffset, strconv.Itoa(req.Offset()),
		config.PlaceholderCountry, req.Country,
	).Replace(link)
}

// Fetch performs one GET for req. Failures are reported inside the returned
// page, never as an error.
func (f *PageFetcher) Fetch(ctx context.Context, req model.PageRequest) model.Page {
	uri := BuildURI(f.link, req)
	start := time.Now()

	items, err := f.get(ctx, uri)
	if err != nil {
		slog.Error("page fetch failed", "country", req.Country, "page", req.Page, "uri", uri, "error", err)
		return model.FetchError(err)
	}

	slog.Debug("page fetched",
		"country", req.Country,
		"page", req.Page,
		"uri", uri,
		"items", len(items),
		"elapsed", time.Since(start),
	)
	return model.Items(items)
}

func (f *PageFetcher) get(ctx context.Context, uri string) ([]model.Partner, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.MatchingPartners == nil {
		return nil, errNoEnvelope
	}

	items := make([]model.Partner, 0, len(env.MatchingPartners.Items))
	for _, raw := range env.MatchingPartners.Items {
		items = append(items, model.Partner{Raw: raw})
	}
	return items, nil
}
