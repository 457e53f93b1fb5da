package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	testCases := []struct {
		desc     string
		cfg      Config
		expected string
	}{
		{
			"defaults",
			Config{},
			"postgres://localhost:5432?sslmode=disable",
		},
		{
			"full",
			Config{Host: "db", Port: 5433, User: "sync", Password: "secret", Database: "events", SSLMode: "require"},
			"postgres://sync:secret@db:5433/events?sslmode=require",
		},
		{
			"user without password",
			Config{User: "sync", Database: "events"},
			"postgres://sync@localhost:5432/events?sslmode=disable",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.cfg.DSN())
		})
	}
}
