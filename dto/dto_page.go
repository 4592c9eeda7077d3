package dto

import (
	"fmt"
	"net/url"
	"time"
)

// PageMeta reports the shape of the whole filtered set, not the page:
// total, last_page and the oldest/newest bounds always come from the
// unpaginated result.
type PageMeta struct {
	Total       int64  `json:"total"`
	PerPage     int64  `json:"per_page"`
	CurrentPage int64  `json:"current_page"`
	LastPage    int64  `json:"last_page"`
	Oldest      string `json:"oldest"`
	Newest      string `json:"newest"`
}

type PageLinks struct {
	Self  string  `json:"self"`
	First string  `json:"first"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
	Last  string  `json:"last"`
}

func NewPageMeta(total, perPage, page int64, oldest, newest time.Time) PageMeta {
	lastPage := int64(1)
	if total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	meta := PageMeta{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
	if !oldest.IsZero() {
		meta.Oldest = oldest.UTC().Format(time.RFC3339)
	}
	if !newest.IsZero() {
		meta.Newest = newest.UTC().Format(time.RFC3339)
	}
	return meta
}

// NewPageLinks rewrites the request query with the target page number for
// each navigation link.
func NewPageLinks(baseURL string, query url.Values, page, lastPage int64) PageLinks {
	link := func(p int64) string {
		q := url.Values{}
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		q.Set("page", fmt.Sprintf("%d", p))
		return baseURL + "?" + q.Encode()
	}

	links := PageLinks{
		Self:  link(page),
		First: link(1),
		Last:  link(lastPage),
	}
	if page > 1 {
		prev := link(page - 1)
		links.Prev = &prev
	}
	if page < lastPage {
		next := link(page + 1)
		links.Next = &next
	}
	return links
}
