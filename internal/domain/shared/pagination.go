package shared

// Page size bounds shared by every listing endpoint
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter carries listing parameters from the HTTP layer to repositories.
// OrderBy is checked against a per-table whitelist before it reaches SQL;
// Filters holds typed, repository-specific predicates such as "is_active".
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// DefaultFilter is page 1, newest first
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]any),
	}
}

// Clamped returns f with Page at least 1 and PageSize within bounds
func (f Filter) Clamped() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize <= 0:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the number of rows before the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of a listing plus the totals clients page with
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items; TotalPages is 0 for an empty listing
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	var pages int
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}
