package store

// PageParams is the paged-listing input shared by every admin list endpoint
// (spec.md §6's "GET /crons?page&size" / "GET /jobs?page&size"), recovered
// from original_source/admin/api/model/common.py.
type PageParams struct {
	Page int
	Size int
}

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// NewPageParams clamps page to >=1 and size to [1, 100], applying the
// documented defaults (page=1, size=20) for zero values.
func NewPageParams(page, size int) PageParams {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return PageParams{Page: page, Size: size}
}

// Offset returns the SQL OFFSET for this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Size
}

// Pages returns the total number of pages for a result set of total items.
func (p PageParams) Pages(total int) int {
	if p.Size <= 0 {
		return 0
	}
	pages := total / p.Size
	if total%p.Size != 0 {
		pages++
	}
	return pages
}
