package model

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// PageRequest addresses one page of the upstream result set for a country.
type PageRequest struct {
	Country  string
	Page     int
	Sort     int
	PageSize int
}

// Offset is the zero-based position of the first record on the page.
func (r PageRequest) Offset() int {
	return r.Page * r.PageSize
}

// Partner is a single partner-directory document as returned upstream.
type Partner struct {
	Raw json.RawMessage
}

// NaturalKey returns the identifier the store uses to reject duplicates.
// It is the document's top-level "id"; documents without one are keyed by
// a hash of their bytes.
func (p Partner) NaturalKey() string {
	var doc struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(p.Raw, &doc); err == nil && len(doc.ID) > 0 {
		var s string
		if err := json.Unmarshal(doc.ID, &s); err == nil {
			if s != "" {
				return s
			}
		} else if n, err := strconv.ParseFloat(string(doc.ID), 64); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return hashKey(p.Raw)
}

func hashKey(raw []byte) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		raw = compact.Bytes()
	}
	h := xxhash.Sum64(raw)
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(h)
		h >>= 8
	}
	return "xxh:" + hex.EncodeToString(b)
}

// PartnerRow is the persisted shape of a partner.
type PartnerRow struct {
	NaturalKey string
	Page       int
	Country    string
	Raw        json.RawMessage
}

// NewPartnerRow pairs a partner with the page it was found on.
func NewPartnerRow(req PageRequest, p Partner) PartnerRow {
	return PartnerRow{
		NaturalKey: p.NaturalKey(),
		Page:       req.Page,
		Country:    req.Country,
		Raw:        p.Raw,
	}
}

// PageKind classifies the outcome of a page fetch.
type PageKind int

const (
	// PageItems means the page carried at least one record.
	PageItems PageKind = iota
	// PageEnd means the upstream returned an empty page.
	PageEnd
	// PageFailed means the request or its decoding failed.
	PageFailed
)

func (k PageKind) String() string {
	switch k {
	case PageItems:
		return "items"
	case PageEnd:
		return "end"
	case PageFailed:
		return "failed"
	}
	return "unknown"
}

// Page is the tagged result of fetching one PageRequest.
type Page struct {
	Kind  PageKind
	Items []Partner
	Err   error
}

// Items wraps a non-empty record list.
func Items(items []Partner) Page {
	if len(items) == 0 {
		return EndOfResults()
	}
	return Page{Kind: PageItems, Items: items}
}

// EndOfResults marks a legitimately empty page.
func EndOfResults() Page {
	return Page{Kind: PageEnd}
}

// FetchError marks a page that could not be retrieved or decoded.
func FetchError(err error) Page {
	return Page{Kind: PageFailed, Err: err}
}

// Stop reports whether pagination for the country must end here.
func (p Page) Stop() bool {
	return p.Kind != PageItems
}
