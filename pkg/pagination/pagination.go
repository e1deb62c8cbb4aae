package pagination

import "math"

const (
	// DefaultPage is used when the requested page is below 1.
	DefaultPage = 1
	// DefaultPageSize replaces any page size outside [1, MaxPageSize].
	DefaultPageSize = 10
	// MaxPageSize caps how many rows one page may request.
	MaxPageSize = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// NormalizePage clamps page to at least 1. An out of range page size falls
// back to the default rather than to the nearest bound.
func NormalizePage(page, pageSize int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

// Normalize returns a clamped copy of p.
func (p Params) Normalize() Params {
	return NormalizePage(p.Page, p.PageSize)
}

// Offset is the number of rows skipped before the page starts. It
// saturates at math.MaxInt instead of wrapping for absurd page numbers.
func (p Params) Offset() int {
	n := p.Normalize()
	if n.Page-1 > math.MaxInt/n.PageSize {
		return math.MaxInt
	}
	return (n.Page - 1) * n.PageSize
}

// Limit is the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().PageSize
}
