package infra

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantErr    bool
	}{
		{
			name:       "valid marker",
			query:      "\n--sql 0f2c7a59-4d0e-4b8f-9b51-2a1f6f3f3c11\nselect 1;\n",
			wantMarker: "0f2c7a59-4d0e-4b8f-9b51-2a1f6f3f3c11",
		},
		{
			name:    "missing marker",
			query:   "select 1;",
			wantErr: true,
		},
		{
			name:    "malformed uuid",
			query:   "--sql not-a-uuid\nselect 1;",
			wantErr: true,
		},
		{
			name:    "empty",
			query:   "   ",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := extractMarker(tc.query)
			if tc.wantErr {
				if !errors.Is(err, ErrMissingSQLMarker) {
					t.Fatalf("extractMarker() error = %v, want ErrMissingSQLMarker", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractMarker() unexpected error: %v", err)
			}
			if marker != tc.wantMarker {
				t.Fatalf("extractMarker() marker = %q, want %q", marker, tc.wantMarker)
			}
			if strings.Contains(body, "--sql") || !strings.Contains(body, "select 1") {
				t.Fatalf("extractMarker() body = %q", body)
			}
		})
	}
}
