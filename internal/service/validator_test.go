package service

import (
	"strings"
	"testing"
)

func TestValidateDocumentRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        DocumentRequest
		wantFields []string
	}{
		{
			name: "valid request",
			req:  DocumentRequest{ID: 1, Text: "curly cat", Status: "ACTUAL", Ratings: []int{5}},
		},
		{
			name: "zero id is valid",
			req:  DocumentRequest{ID: 0, Text: "cat"},
		},
		{
			name:       "negative id",
			req:        DocumentRequest{ID: -1, Text: "cat"},
			wantFields: []string{"id"},
		},
		{
			name:       "text too long",
			req:        DocumentRequest{ID: 1, Text: strings.Repeat("a", maxBodyLength+1)},
			wantFields: []string{"text"},
		},
		{
			name:       "too many ratings",
			req:        DocumentRequest{ID: 1, Text: "cat", Ratings: make([]int, maxRatingsCount+1)},
			wantFields: []string{"ratings"},
		},
		{
			name:       "multiple failures reported together",
			req:        DocumentRequest{ID: -1, Text: "cat", Ratings: make([]int, maxRatingsCount+1)},
			wantFields: []string{"id", "ratings"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentRequest(&tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ok bool
			if verr, ok = err.(*ValidationError); !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("got %d failing fields (%v), want %d", len(verr.Fields), verr.Fields, len(tt.wantFields))
			}
			for _, field := range tt.wantFields {
				if _, present := verr.Fields[field]; !present {
					t.Errorf("field %q missing from %v", field, verr.Fields)
				}
			}
		})
	}
}
