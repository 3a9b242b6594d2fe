package models

import (
	"fmt"
	"strings"
)

// AskRequest is the body of an ask request.
type AskRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects an empty one.
func (q *AskRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}

// ListParams holds pagination for list endpoints.
type ListParams struct {
	Offset int
	Limit  int
}

// Normalize clamps offset and limit, using def when limit is unset.
func (p *ListParams) Normalize(def, max int) {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
}
