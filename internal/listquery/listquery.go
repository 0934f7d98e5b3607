// Package listquery turns list query parameters into bounded, filtered,
// newest-first GORM queries and the pagination envelope returned with them.
package listquery

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const dateOnly = "2006-01-02"

// Params are the normalized list parameters. From and To are inclusive.
type Params struct {
	Page   int
	Limit  int
	Search string
	From   *time.Time
	To     *time.Time
}

// Parse reads page, limit, search, dateFrom and dateTo. Page and limit never
// fail: bad values fall back to defaults and limit is clamped into
// [1, MaxLimit]. A malformed date or an inverted range is an invalid request.
func Parse(q map[string]string) (Params, error) {
	p := Params{
		Page:   intOr(q["page"], DefaultPage),
		Limit:  intOr(q["limit"], DefaultLimit),
		Search: strings.TrimSpace(q["search"]),
	}
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = ClampLimit(p.Limit, MaxLimit)

	var err error
	if p.From, err = ParseBound(q["dateFrom"], false); err != nil {
		return Params{}, apperr.Invalid("invalid dateFrom: %s", q["dateFrom"])
	}
	if p.To, err = ParseBound(q["dateTo"], true); err != nil {
		return Params{}, apperr.Invalid("invalid dateTo: %s", q["dateTo"])
	}
	if p.From != nil && p.To != nil && p.From.After(*p.To) {
		return Params{}, apperr.Invalid("dateFrom must not be after dateTo")
	}
	return p, nil
}

// ClampLimit bounds n into [1, max].
func ClampLimit(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// ParseBound parses a date filter. A calendar date (YYYY-MM-DD) covers the
// whole UTC day: as a lower bound it is the start of the day, as an upper
// bound it is 23:59:59.999. RFC 3339 timestamps are taken as given.
func ParseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := time.ParseInLocation(dateOnly, s, time.UTC); err == nil {
		if upper {
			d = d.Add(24*time.Hour - time.Millisecond)
		}
		return &d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	t = t.UTC()
	return &t, nil
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// DateScope filters column into the inclusive [From, To] range.
func (p Params) DateScope(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.From != nil {
			db = db.Where(column+" >= ?", *p.From)
		}
		if p.To != nil {
			db = db.Where(column+" <= ?", *p.To)
		}
		return db
	}
}

// Paginate orders newest first (ties broken by id) and applies the page
// window. table qualifies the columns for joined queries; pass "" otherwise.
func (p Params) Paginate(table string) func(*gorm.DB) *gorm.DB {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(prefix + "created_at DESC").Order(prefix + "id DESC").
			Limit(p.Limit).Offset(p.Offset())
	}
}

// SearchScope matches term as a case-insensitive substring of any column.
// An empty term matches everything.
func SearchScope(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		conds := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			conds[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// Contains reports whether term is a case-insensitive substring of any value.
// It is the in-memory counterpart of SearchScope.
func Contains(term string, values ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalItems:      total,
		ItemsPerPage:    limit,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Page is the list response envelope.
type Page[T any] struct {
	Data             []T        `json:"data"`
	Pagination       Pagination `json:"pagination"`
	FilteredInMemory bool       `json:"filteredInMemory,omitempty"`
}

// Find counts the rows matched by query, then loads the requested page. The
// count ignores the page window. query must already carry its filters.
func Find[T any](query *gorm.DB, p Params, table string) (Page[T], error) {
	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Page[T]{}, apperr.Store("failed to count records", err)
	}

	rows := make([]T, 0, p.Limit)
	if err := base.Scopes(p.Paginate(table)).Find(&rows).Error; err != nil {
		return Page[T]{}, apperr.Store("failed to load records", err)
	}

	return Page[T]{Data: rows, Pagination: NewPagination(p.Page, p.Limit, total)}, nil
}

func intOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
