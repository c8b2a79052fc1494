package api

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

type meta struct {
	TotalRecords uint64  `json:"totalRecords"`
	Offset       *uint64 `json:"offset,omitempty"`
	Limit        *uint64 `json:"limit,omitempty"`
	Count        uint64  `json:"count"`
}

type links struct {
	Self  *string `json:"self,omitempty"`
	First *string `json:"first,omitempty"`
	Prev  *string `json:"prev,omitempty"`
	Next  *string `json:"next,omitempty"`
	Last  *string `json:"last,omitempty"`
}

type ApiResponse struct {
	Meta  *meta  `json:"meta,omitempty"`
	Data  any    `json:"data"`
	Links *links `json:"links,omitempty"`
}

func (r ApiResponse) Byte() []byte {
	b, _ := json.Marshal(r)
	return b
}

func newApiResponse(data any) ApiResponse {
	return ApiResponse{Data: data}
}

func newCollectionResponse[T any](path string, query url.Values, c types.Collection[T]) ApiResponse {
	if c.Data == nil {
		c.Data = []T{}
	}

	response := ApiResponse{
		Data: c.Data,
		Meta: &meta{
			TotalRecords: c.TotalCount,
			Offset:       &c.Offset,
			Limit:        &c.Limit,
			Count:        c.Count,
		},
	}

	link := func(offset uint64) *string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("offset", fmt.Sprintf("%d", offset))
		q.Set("limit", fmt.Sprintf("%d", c.Limit))
		s := path + "?" + q.Encode()
		return &s
	}

	response.Links = &links{Self: link(c.Offset), First: link(0)}

	if c.Limit > 0 {
		if c.Offset >= c.Limit {
			response.Links.Prev = link(c.Offset - c.Limit)
		}
		if c.Offset+c.Limit < c.TotalCount {
			response.Links.Next = link(c.Offset + c.Limit)
		}
		if c.TotalCount > c.Limit {
			response.Links.Last = link(((c.TotalCount - 1) / c.Limit) * c.Limit)
		}
	}

	return response
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     types.Role `json:"role"`
}

type controlRequest struct {
	Verb            string   `json:"verb"`
	Value           *float64 `json:"value,omitempty"`
	DurationSeconds int      `json:"durationSeconds,omitzero"`
}

type topicDecisionRequest struct {
	Topic string `json:"topic"`
	As    string `json:"as,omitzero"`
}

type healthResponse struct {
	Status           string            `json:"status"`
	Services         map[string]string `json:"services"`
	LastEvaluationAt string            `json:"lastEvaluationAt,omitzero"`
}
