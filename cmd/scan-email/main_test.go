package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBareAddress(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Google Accounts <no-reply@accounts.google.com>", "no-reply@accounts.google.com"},
		{"no-reply@accounts.google.com", "no-reply@accounts.google.com"},
		{"\"Smith, Jane\" <jane@example.com>", "jane@example.com"},
		{"  plain@example.com  ", "plain@example.com"},
		{"not an address", "not an address"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bareAddress(tt.header), "header %q", tt.header)
	}
}
