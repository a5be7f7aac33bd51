// Package listing builds the routes and pagination cursor for a channel's
// question listing.
package listing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is how many threads the listing fetches per page.
const DefaultPageSize = 20

// Routes addresses a channel listing. Tenant sites serve a single server
// from their own domain, so the server segment is dropped.
type Routes struct {
	ServerID  string
	ChannelID string
	Tenant    bool
}

// Base is the unpaginated route of the channel.
func (r Routes) Base() string {
	if r.Tenant {
		return "/c/" + r.ChannelID
	}
	return fmt.Sprintf("/c/%s/%s", r.ServerID, r.ChannelID)
}

// Page is the route of page n; page 0 is the base route.
func (r Routes) Page(n int) string {
	if n <= 0 {
		return r.Base()
	}
	return fmt.Sprintf("%s?page=%d", r.Base(), n)
}

// Link is a pagination target. A disabled link has no Href.
type Link struct {
	Href    string `json:"href,omitempty"`
	Enabled bool   `json:"enabled"`
}

type Cursor struct {
	Page     int  `json:"page"`
	Previous Link `json:"previous"`
	Next     Link `json:"next"`
}

// NewCursor computes prev/next availability for a page that returned fetched
// items. A full page is taken to mean that another page exists; the listing
// never counts the total.
func NewCursor(routes Routes, page, fetched, pageSize int) Cursor {
	return newCursor(routes.Page, page, fetched, pageSize)
}

func newCursor(pageRoute func(int) string, page, fetched, pageSize int) Cursor {
	if page < 0 {
		page = 0
	}
	cursor := Cursor{Page: page}
	if page > 0 {
		cursor.Previous = Link{Href: pageRoute(page - 1), Enabled: true}
	}
	if pageSize > 0 && fetched == pageSize {
		cursor.Next = Link{Href: pageRoute(page + 1), Enabled: true}
	}
	return cursor
}

// SearchCursor paginates a search query the same way as a channel listing.
func SearchCursor(query, serverID string, page, fetched, pageSize int) Cursor {
	route := func(n int) string {
		href := "/search?q=" + url.QueryEscape(query)
		if serverID != "" {
			href += "&s=" + url.QueryEscape(serverID)
		}
		if n > 0 {
			href += "&page=" + strconv.Itoa(n)
		}
		return href
	}
	return newCursor(route, page, fetched, pageSize)
}

// Offset is the number of items before page.
func Offset(page, pageSize int) int {
	if page <= 0 || pageSize <= 0 {
		return 0
	}
	return page * pageSize
}

// ParsePage reads a page query value. Missing, malformed or negative values
// mean the first page.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
