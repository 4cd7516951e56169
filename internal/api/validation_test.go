package api

import (
	"testing"
	"time"
)

func TestSnapshotCreateRequest_Validate(t *testing.T) {
	valid := SnapshotCreateRequest{
		Subreddit: "golang",
		Sort:      "hot",
		Limit:     10,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *SnapshotCreateRequest)
		wantErr string
	}{
		{
			name:    "missing subreddit",
			mutate:  func(r *SnapshotCreateRequest) { r.Subreddit = "" },
			wantErr: "subreddit is required",
		},
		{
			name:    "whitespace subreddit",
			mutate:  func(r *SnapshotCreateRequest) { r.Subreddit = "   " },
			wantErr: "subreddit is required",
		},
		{
			name:    "subreddit with spaces",
			mutate:  func(r *SnapshotCreateRequest) { r.Subreddit = "go lang" },
			wantErr: `subreddit "go lang" is not a valid subreddit name`,
		},
		{
			name:    "subreddit too short",
			mutate:  func(r *SnapshotCreateRequest) { r.Subreddit = "a" },
			wantErr: `subreddit "a" is not a valid subreddit name`,
		},
		{
			name:    "invalid sort",
			mutate:  func(r *SnapshotCreateRequest) { r.Sort = "controversial" },
			wantErr: "sort must be one of hot, new, top, rising",
		},
		{
			name:    "negative limit",
			mutate:  func(r *SnapshotCreateRequest) { r.Limit = -1 },
			wantErr: "limit must be between 0 and 100",
		},
		{
			name:    "limit over cap",
			mutate:  func(r *SnapshotCreateRequest) { r.Limit = 500 },
			wantErr: "limit must be between 0 and 100",
		},
		{
			name:   "empty sort accepted",
			mutate: func(r *SnapshotCreateRequest) { r.Sort = "" },
		},
		{
			name:   "TOP uppercase accepted",
			mutate: func(r *SnapshotCreateRequest) { r.Sort = "TOP" },
		},
		{
			name:   "zero limit accepted",
			mutate: func(r *SnapshotCreateRequest) { r.Limit = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid // copy
			tt.mutate(&r)
			err := r.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestAnalysisCreateRequest_Validate(t *testing.T) {
	negative := -5
	zero := 0

	tests := []struct {
		name    string
		req     AnalysisCreateRequest
		wantErr string
	}{
		{
			name:    "valid request",
			req:     AnalysisCreateRequest{SnapshotID: "snap-1"},
			wantErr: "",
		},
		{
			name:    "valid with model and delay",
			req:     AnalysisCreateRequest{SnapshotID: "snap-1", Model: "llama3.2:3b", DelayMS: &zero},
			wantErr: "",
		},
		{
			name:    "missing snapshot_id",
			req:     AnalysisCreateRequest{SnapshotID: ""},
			wantErr: "snapshot_id is required",
		},
		{
			name:    "whitespace snapshot_id",
			req:     AnalysisCreateRequest{SnapshotID: "   "},
			wantErr: "snapshot_id is required",
		},
		{
			name:    "negative delay",
			req:     AnalysisCreateRequest{SnapshotID: "snap-1", DelayMS: &negative},
			wantErr: "delay_ms must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestAnalysisCreateRequest_Delay(t *testing.T) {
	var req AnalysisCreateRequest
	if d := req.Delay(); d != nil {
		t.Errorf("expected nil delay when unset, got %v", *d)
	}

	ms := 250
	req.DelayMS = &ms
	d := req.Delay()
	if d == nil || *d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", d)
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "spez", false},
		{"valid with underscore", "go_fan_42", false},
		{"valid with hyphen", "some-user", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too short", "a", true},
		{"too long", "this_username_is_way_too_long", true},
		{"contains slash", "u/spez", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %q, got nil", tt.username)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error for %q, got: %v", tt.username, err)
			}
		})
	}
}
