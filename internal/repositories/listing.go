package repositories

import "fmt"

const (
	defaultPage  = 1
	defaultLimit = 5
)

// ListOptions control pagination and ordering of listing queries. SortBy is
// the caller-facing field name; each repository maps it onto a column through
// its own allowlist before any SQL is built.
type ListOptions struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// normalized carries validated pagination values. Offsets can never go
// negative because non-positive page and limit inputs fall back to the
// defaults.
type normalized struct {
	column  string
	desc    bool
	limit   int
	offset  int
	page    int
	perPage int
}

// normalizeListOptions clamps page and limit and resolves SortBy against the
// allowlist of sortable columns. Unknown or empty sort fields fall back to
// creation time. The zero options sort ascending so repositories called
// without handler mediation get the default direction.
func normalizeListOptions(opts ListOptions, sortable map[string]string) normalized {
	page := opts.Page
	if page <= 0 {
		page = defaultPage
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	column, ok := sortable[opts.SortBy]
	if !ok {
		column = "created_at"
	}

	return normalized{
		column:  column,
		desc:    opts.SortDesc,
		limit:   limit,
		offset:  (page - 1) * limit,
		page:    page,
		perPage: limit,
	}
}

// orderClause renders the ORDER BY fragment. The column always comes from an
// allowlist, never from request input.
func (n normalized) orderClause() string {
	direction := "ASC"
	if n.desc {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", n.column, direction)
}

// PageInfo echoes the pagination applied to a listing.
type PageInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (n normalized) pageInfo() PageInfo {
	return PageInfo{Page: n.page, Limit: n.perPage}
}
