// Package pagination parses page queries for list endpoints. Page sizes
// default to constants.ItemsPerPage so the backend and the web console
// agree on how many rows a page holds.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// ErrInvalidPage is returned for page parameters that are not integers.
var ErrInvalidPage = errors.New("invalid page parameter")

// Params is a parsed page request. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// FromRequest reads p and page_size from the query string.
func FromRequest(r *http.Request, maxPageSize int) (Params, error) {
	query := r.URL.Query()
	return Parse(query.Get(constants.QueryParamPage), query.Get(constants.QueryParamPageSize), maxPageSize)
}

// Parse validates raw page values. Empty values use page 1 and
// constants.ItemsPerPage, a page below 1 becomes 1, a size of zero or
// less becomes the default and sizes above maxPageSize are capped.
// Values that are not integers, and pages whose offset would overflow,
// return ErrInvalidPage.
func Parse(rawPage, rawPageSize string, maxPageSize int) (Params, error) {
	if maxPageSize <= 0 {
		maxPageSize = constants.MaxPageSize
	}

	p := Params{Page: 1, PageSize: constants.ItemsPerPage}

	if rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidPage, constants.QueryParamPage, rawPage)
		}
		if page > 1 {
			p.Page = page
		}
	}

	if rawPageSize != "" {
		size, err := strconv.Atoi(rawPageSize)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidPage, constants.QueryParamPageSize, rawPageSize)
		}
		if size > 0 {
			p.PageSize = min(size, maxPageSize)
		}
	}

	// Offset must stay representable for the database.
	if p.Page-1 > math.MaxInt/p.PageSize {
		return Params{}, fmt.Errorf("%w: %s=%q is out of range", ErrInvalidPage, constants.QueryParamPage, rawPage)
	}

	return p, nil
}

// PageInfo is the data payload of every paginated response.
type PageInfo struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Items    any `json:"items"`
}

// NewPageInfo wraps items for p. Pass an empty slice rather than nil so
// clients always see an array.
func NewPageInfo(p Params, total int, items any) PageInfo {
	return PageInfo{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		Items:    items,
	}
}
