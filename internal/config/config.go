package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/model"
)

// DefaultLink is the partner directory search endpoint.
const DefaultLink = "https://main.prod.marketplacepartnerdirectory.azure.com/api/partners?filter=" +
	"sort={sort};pageSize={pageSize};pageOffset={offset};country={country};onlyThisCountry=true;{additionalFilter};"

// Template placeholders.
const (
	PlaceholderSort             = "{sort}"
	PlaceholderPageSize         = "{pageSize}"
	PlaceholderOffset           = "{offset}"
	PlaceholderCountry          = "{country}"
	PlaceholderAdditionalFilter = "{additionalFilter}"
)

var placeholders = []string{
	PlaceholderSort, PlaceholderPageSize, PlaceholderOffset, PlaceholderCountry, PlaceholderAdditionalFilter,
}

// ErrInvalid is wrapped by every validation failure from Load.
var ErrInvalid = errors.New("invalid configuration")

// Setting names one configuration value in each source's vocabulary.
type Setting struct {
	Env      string
	Property string
}

var (
	SettingSort             = Setting{Env: "SORT", Property: "microsoft-api.sort"}
	SettingMaxResults       = Setting{Env: "MAX", Property: "microsoft-api.max-results"}
	SettingPageSize         = Setting{Env: "PAGESIZE", Property: "microsoft-api.page-size"}
	SettingAdditionalFilter = Setting{Env: "ADDITIONALFILTER", Property: "microsoft-api.additional-filter"}
	SettingLink             = Setting{Env: "LINK", Property: "microsoft-api.api-link"}
	SettingDatabaseURL      = Setting{Env: "DATABASE_URL", Property: "database.url"}
	SettingDBSchema         = Setting{Env: "DB_SCHEMA", Property: "database.schema"}
	SettingConcurrency      = Setting{Env: "CONCURRENCY", Property: "importer.concurrency"}
	SettingFetchTimeout     = Setting{Env: "FETCH_TIMEOUT", Property: "importer.fetch-timeout"}
	SettingFetchRetries     = Setting{Env: "FETCH_RETRIES", Property: "importer.fetch-retries"}
	SettingCountries        = Setting{Env: "COUNTRIES", Property: "importer.countries"}
	SettingPushgatewayURL   = Setting{Env: "PUSHGATEWAY_URL", Property: "metrics.pushgateway-url"}
)

// Source resolves settings from one place: the environment or a properties file.
type Source interface {
	Lookup(s Setting) (string, bool)
}

type Config struct {
	Sort             int
	MaxResults       int
	PageSize         int
	AdditionalFilter string
	APILink          string

	DatabaseURL string
	DBSchema    string

	Concurrency  int
	FetchTimeout time.Duration
	FetchRetries int
	Countries    []string

	PushgatewayURL string
}

// Load reads every setting from src, applies defaults and validates the result.
func Load(src Source) (*Config, error) {
	r := reader{src: src}

	cfg := &Config{
		Sort:             r.int(SettingSort, 0),
		MaxResults:       r.int(SettingMaxResults, 100),
		PageSize:         r.int(SettingPageSize, 20),
		AdditionalFilter: r.string(SettingAdditionalFilter, "services=Integration;"),
		APILink:          normalizeLink(r.string(SettingLink, DefaultLink)),
		DatabaseURL:      r.string(SettingDatabaseURL, ""),
		DBSchema:         r.string(SettingDBSchema, "microsoft"),
		Concurrency:      r.int(SettingConcurrency, 50),
		FetchTimeout:     r.duration(SettingFetchTimeout, 30*time.Second),
		FetchRetries:     r.int(SettingFetchRetries, 0),
		Countries:        r.list(SettingCountries),
		PushgatewayURL:   r.string(SettingPushgatewayURL, ""),
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the link template.
func (c *Config) Validate() error {
	switch {
	case c.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalid, c.PageSize)
	case c.MaxResults < 0:
		return fmt.Errorf("%w: max results must not be negative, got %d", ErrInvalid, c.MaxResults)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalid, c.Concurrency)
	case c.FetchRetries < 0:
		return fmt.Errorf("%w: fetch retries must not be negative, got %d", ErrInvalid, c.FetchRetries)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("%w: fetch timeout must be positive, got %s", ErrInvalid, c.FetchTimeout)
	}
	for _, p := range placeholders {
		if n := strings.Count(c.APILink, p); n != 1 {
			return fmt.Errorf("%w: link must contain %s exactly once, found %d", ErrInvalid, p, n)
		}
	}
	for _, code := range c.Countries {
		if !model.IsCountry(code) {
			return fmt.Errorf("%w: unknown country code %q", ErrInvalid, code)
		}
	}
	return nil
}

// Link returns the request template with the additional filter folded in.
func (c *Config) Link() string {
	return strings.Replace(c.APILink, PlaceholderAdditionalFilter, c.AdditionalFilter, 1)
}

// CountryCodes returns the configured subset, or every recognized code.
func (c *Config) CountryCodes() []string {
	if len(c.Countries) > 0 {
		return c.Countries
	}
	return model.Countries
}

// LastPage is the highest page index the budget allows.
func (c *Config) LastPage() int {
	return c.MaxResults / c.PageSize
}

// normalizeLink accepts the legacy @name@ placeholder spelling.
func normalizeLink(link string) string {
	return strings.NewReplacer(
		"@sort@", PlaceholderSort,
		"@pageSize@", PlaceholderPageSize,
		"@offset@", PlaceholderOffset,
		"@country@", PlaceholderCountry,
		"@additionalFilter@", PlaceholderAdditionalFilter,
	).Replace(link)
}

type reader struct {
	src Source
	err error
}

func (r *reader) string(s Setting, def string) string {
	if v, ok := r.src.Lookup(s); ok {
		return v
	}
	return def
}

func (r *reader) int(s Setting, def int) int {
	v, ok := r.src.Lookup(s)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail(fmt.Errorf("%w: %s: %v", ErrInvalid, s.Env, err))
		return def
	}
	return n
}

func (r *reader) duration(s Setting, def time.Duration) time.Duration {
	v, ok := r.src.Lookup(s)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.fail(fmt.Errorf("%w: %s: %v", ErrInvalid, s.Env, err))
		return def
	}
	return d
}

func (r *reader) list(s Setting) []string {
	v, ok := r.src.Lookup(s)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
