package service

import (
	"fmt"
	"strings"
)

const (
	maxBodyLength   = 1048576
	maxRatingsCount = 1000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// DocumentRequest is the JSON body accepted by the document endpoints.
type DocumentRequest struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Status  string `json:"status"`
	Ratings []int  `json:"ratings"`
}

// ValidateDocumentRequest checks the shape of an incoming document before it
// reaches the index. Token-level validation stays with the engine.
func ValidateDocumentRequest(req *DocumentRequest) error {
	errs := make(map[string]string)
	if req.ID < 0 {
		errs["id"] = "id must be non-negative"
	}
	if len(req.Text) > maxBodyLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxBodyLength)
	}
	if len(req.Ratings) > maxRatingsCount {
		errs["ratings"] = fmt.Sprintf("at most %d ratings are accepted", maxRatingsCount)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
