package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		expected string
	}{
		{"localhost", false, "localhost"},
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"::1", true, "host.docker.internal"},
		{"cms.example.com", true, "cms.example.com"},
		{"192.168.1.100", true, "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveHost(tt.host, tt.inDocker))
		})
	}
}

func TestResolveHostForDocker_RemoteHostUnchanged(t *testing.T) {
	assert.Equal(t, "cms.example.com", ResolveHostForDocker("cms.example.com"))
}
