package blog

import (
	"context"
	"net/url"
	"strconv"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/codec"
	"github.com/unkn0wn-root/netbound/transport"
)

// Post is one blog entry. msgpack tags keep cached records compact.
type Post struct {
	PK          int    `json:"pk" msgpack:"pk"`
	Title       string `json:"title" msgpack:"t"`
	Slug        string `json:"slug" msgpack:"s"`
	Body        string `json:"body" msgpack:"b"`
	Image       string `json:"image" msgpack:"i"`
	DateUpdated string `json:"date_updated" msgpack:"d"`
	Username    string `json:"username" msgpack:"u"`
}

// SearchResponse is the blog/list body. Detail carries the API's complaint
// when it answers 200 without results.
type SearchResponse struct {
	Results []Post  `json:"results"`
	Detail  string  `json:"detail"`
	Next    *string `json:"next"`
}

type Remote interface {
	Search(ctx context.Context, token, query string, page int) netbound.Outcome[SearchResponse]
}

type HTTPRemote struct {
	Client *transport.Client
}

var _ Remote = HTTPRemote{}

func (h HTTPRemote) Search(ctx context.Context, token, query string, page int) netbound.Outcome[SearchResponse] {
	return transport.Call(ctx, h.Client, transport.Request{
		Path:  "blog/list",
		Query: url.Values{"search": {query}, "page": {strconv.Itoa(page)}},
		Token: token,
	}, codec.JSON[SearchResponse]{})
}

func translate(query string, page int) netbound.Translator[SearchResponse, Page] {
	return func(b SearchResponse) netbound.Translation[Page] {
		if b.Results == nil && b.Detail != "" {
			return netbound.DomainFailure[Page](b.Detail)
		}
		return netbound.Translated(Page{
			Query:   query,
			Number:  page,
			Posts:   b.Results,
			HasNext: b.Next != nil && *b.Next != "",
		})
	}
}
