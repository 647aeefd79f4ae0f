package domain

import (
	"net/url"
	"strconv"
)

const DefaultPerPage = 8

// ProductFilter holds the catalog search parameters. Zero values are omitted
// from the query string.
type ProductFilter struct {
	Query    string
	Brand    string
	Size     string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	PerPage  int
}

func (f ProductFilter) Values() url.Values {
	v := url.Values{}
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Brand != "" {
		v.Set("brand", f.Brand)
	}
	if f.Size != "" {
		v.Set("size", f.Size)
	}
	if f.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	return v
}

type ProductPage struct {
	Products    []Product `json:"shoes"`
	Total       int       `json:"total"`
	Pages       int       `json:"pages"`
	CurrentPage int       `json:"current_page"`
}
