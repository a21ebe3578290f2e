package listings

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"landtrust/internal/verification/providers/adapters"
)

// Source is one listing provider.
type Source interface {
	ID() string
	Search(ctx context.Context, query string) ([]Listing, error)
}

// parser maps a source's 2xx body to listings. now stamps synthetic IDs.
type parser func(body []byte, now time.Time) ([]Listing, error)

// httpSource performs one GET per search through the shared provider client,
// so listing sources get the same auth handling and error classification as
// verification providers.
type httpSource struct {
	client     *adapters.Client
	path       string
	queryParam string
	parse      parser
	now        func() time.Time
}

func newHTTPSource(cfg adapters.ClientConfig, path, queryParam string, parse parser) *httpSource {
	return &httpSource{
		client:     adapters.NewClient(cfg),
		path:       path,
		queryParam: queryParam,
		parse:      parse,
		now:        time.Now,
	}
}

func (s *httpSource) ID() string {
	return s.client.ID()
}

func (s *httpSource) Search(ctx context.Context, query string) ([]Listing, error) {
	body, err := s.client.Get(ctx, s.path, url.Values{s.queryParam: {query}})
	if err != nil {
		return nil, err
	}
	out, err := s.parse(body, s.now())
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", s.ID(), err)
	}
	for i := range out {
		out[i].Source = s.ID()
	}
	return out, nil
}
