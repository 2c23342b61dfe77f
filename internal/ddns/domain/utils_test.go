package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Host.Example.COM", "host.example.com"},
		{"strips trailing dot", "host.example.com.", "host.example.com"},
		{"strips multiple trailing dots", "host.example.com..", "host.example.com"},
		{"trims whitespace", "  host.example.com ", "host.example.com"},
		{"empty stays empty", "", ""},
		{"root stays root", ".", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalName(tt.input))
		})
	}
}

func TestInZone(t *testing.T) {
	tests := []struct {
		name     string
		qname    string
		zone     string
		expected bool
	}{
		{"apex is in zone", "example.com", "example.com", true},
		{"subdomain is in zone", "host.example.com", "example.com", true},
		{"deep subdomain is in zone", "a.b.example.com", "example.com", true},
		{"sibling is not", "example.org", "example.com", false},
		{"suffix without dot boundary is not", "badexample.com", "example.com", false},
		{"parent is not", "com", "example.com", false},
		{"empty zone matches nothing", "host.example.com", "", false},
		{"root is outside every zone", ".", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InZone(tt.qname, tt.zone))
		})
	}
}
