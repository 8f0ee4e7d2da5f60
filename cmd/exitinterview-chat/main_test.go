package main

import (
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	t.Setenv("EXIT_INTERVIEW_API_URL", "http://api.internal:9000")

	tests := []struct {
		name      string
		args      []string
		wantURL   string
		wantID    string
		wantError bool
	}{
		{name: "flag", args: []string{"-interview", "abc"}, wantURL: "http://api.internal:9000", wantID: "abc"},
		{name: "positional", args: []string{"abc"}, wantURL: "http://api.internal:9000", wantID: "abc"},
		{name: "explicit api", args: []string{"-api", "http://localhost:1", "-interview", "abc"}, wantURL: "http://localhost:1", wantID: "abc"},
		{name: "missing id", args: nil, wantError: true},
		{name: "unknown flag", args: []string{"-nope"}, wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stderr strings.Builder
			opts, err := parseArgs(tc.args, &stderr)
			if tc.wantError {
				if err == nil {
					t.Fatalf("expected error, got %+v", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs returned error: %v", err)
			}
			if opts.apiURL != tc.wantURL || opts.interviewID != tc.wantID {
				t.Fatalf("unexpected options: %+v", opts)
			}
		})
	}
}
