package whoop

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// MaxPageSize is the largest limit the collection endpoints accept.
const MaxPageSize = 25

// ListParams are the query parameters shared by every collection endpoint.
// A nil Start means unbounded history.
type ListParams struct {
	Limit     int
	Start     *time.Time
	End       *time.Time
	NextToken string
}

func (p *ListParams) values() url.Values {
	if p == nil {
		return nil
	}

	v := make(url.Values)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(min(p.Limit, MaxPageSize)))
	}
	if p.Start != nil {
		v.Set("start", p.Start.UTC().Format(time.RFC3339Nano))
	}
	if p.End != nil {
		v.Set("end", p.End.UTC().Format(time.RFC3339Nano))
	}
	if p.NextToken != "" {
		v.Set("nextToken", p.NextToken)
	}
	return v
}

type PaginatedResponse[T any] struct {
	Records   []T     `json:"records"`
	NextToken *string `json:"next_token,omitempty"`
}

func (p *PaginatedResponse[T]) Next() (string, bool) {
	if p.NextToken == nil || *p.NextToken == "" {
		return "", false
	}
	return *p.NextToken, true
}

// ListFunc fetches one page of a collection.
type ListFunc[T Record] func(ctx context.Context, params *ListParams) (*PaginatedResponse[T], error)
