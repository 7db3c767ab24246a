// Package testutil provides a fake partner directory for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
)

// Link is a template pointing at an Upstream's /api/partners endpoint.
const Link = "/api/partners?filter=sort={sort};pageSize={pageSize};pageOffset={offset};country={country};onlyThisCountry=true;services=Integration;;"

var filterRe = regexp.MustCompile(`pageSize=(\d+);pageOffset=(\d+);country=([A-Z]{2});`)

// Upstream is a configurable fake partner directory. Each country maps to a
// list of pages; a request past the last page returns an empty item list.
type Upstream struct {
	server *httptest.Server

	mu       sync.Mutex
	pages    map[string][][]string
	failures map[string]int
	requests []string
}

// NewUpstream starts the fake server.
func NewUpstream() *Upstream {
	u := &Upstream{
		pages:    make(map[string][][]string),
		failures: make(map[string]int),
	}
	u.server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// URL returns the base URL of the server.
func (u *Upstream) URL() string {
	return u.server.URL
}

// Link returns the full request template for this server.
func (u *Upstream) Link() string {
	return u.server.URL + Link
}

// Close shuts down the server.
func (u *Upstream) Close() {
	u.server.Close()
}

// SetPages serves one page per element, each holding partners with the given ids.
func (u *Upstream) SetPages(country string, pages ...[]string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pages[country] = pages
}

// FailNext makes the next n requests for country answer 500.
func (u *Upstream) FailNext(country string, n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[country] = n
}

// Requests returns the raw query of every request received, in order.
func (u *Upstream) Requests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.requests...)
}

// IDs builds n partner ids prefixed with prefix.
func IDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return ids
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	// The filter carries ';' separators, which url.ParseQuery rejects.
	filter := r.URL.RawQuery

	u.mu.Lock()
	u.requests = append(u.requests, filter)
	m := filterRe.FindStringSubmatch(filter)
	if m == nil {
		u.mu.Unlock()
		http.Error(w, "bad filter", http.StatusBadRequest)
		return
	}
	pageSize, _ := strconv.Atoi(m[1])
	offset, _ := strconv.Atoi(m[2])
	country := m[3]

	if u.failures[country] > 0 {
		u.failures[country]--
		u.mu.Unlock()
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		return
	}

	var ids []string
	if pageSize > 0 {
		if page := offset / pageSize; page < len(u.pages[country]) {
			ids = u.pages[country][page]
		}
	}
	u.mu.Unlock()

	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{"id": id, "country": country})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"matchingPartners": map[string]any{"items": items},
	})
}
