package repositories

import "testing"

func TestNormalizeListOptionsDefaults(t *testing.T) {
	n := normalizeListOptions(ListOptions{}, videoSortFields)

	if n.page != 1 || n.limit != 5 || n.offset != 0 {
		t.Fatalf("expected page 1 limit 5 offset 0, got %+v", n)
	}
	if n.column != "created_at" {
		t.Fatalf("expected default sort column created_at, got %q", n.column)
	}
}

func TestNormalizeListOptionsClampsBadInput(t *testing.T) {
	cases := []struct {
		name       string
		opts       ListOptions
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"negative page", ListOptions{Page: -3, Limit: 10}, 1, 10, 0},
		{"zero limit", ListOptions{Page: 2, Limit: 0}, 2, 5, 5},
		{"both valid", ListOptions{Page: 3, Limit: 4}, 3, 4, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := normalizeListOptions(tc.opts, nil)
			if n.page != tc.wantPage || n.limit != tc.wantLimit || n.offset != tc.wantOffset {
				t.Fatalf("got page=%d limit=%d offset=%d, want page=%d limit=%d offset=%d",
					n.page, n.limit, n.offset, tc.wantPage, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}

func TestNormalizeListOptionsSortAllowlist(t *testing.T) {
	n := normalizeListOptions(ListOptions{SortBy: "views"}, videoSortFields)
	if n.column != "views" {
		t.Fatalf("expected views column, got %q", n.column)
	}

	// Field names outside the allowlist never reach SQL.
	n = normalizeListOptions(ListOptions{SortBy: "password_hash; DROP TABLE users"}, videoSortFields)
	if n.column != "created_at" {
		t.Fatalf("expected fallback column created_at, got %q", n.column)
	}
}

func TestOrderClauseDirection(t *testing.T) {
	desc := normalizeListOptions(ListOptions{SortBy: "title", SortDesc: true}, videoSortFields)
	if got := desc.orderClause(); got != "ORDER BY title DESC" {
		t.Fatalf("unexpected order clause %q", got)
	}

	asc := normalizeListOptions(ListOptions{SortBy: "title"}, videoSortFields)
	if got := asc.orderClause(); got != "ORDER BY title ASC" {
		t.Fatalf("unexpected order clause %q", got)
	}
}

func TestZeroOptionsSortAscending(t *testing.T) {
	n := normalizeListOptions(ListOptions{}, videoSortFields)
	if got := n.orderClause(); got != "ORDER BY created_at ASC" {
		t.Fatalf("expected ascending creation-time order for zero options, got %q", got)
	}
}
