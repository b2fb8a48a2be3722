package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/identity"
)

func setEnv(t *testing.T, secret string) {
	t.Helper()
	for _, key := range []string{"PARKING_HTTP_PORT", "PARKING_STORAGE", "PARKING_SQLITE_DSN", "PARKING_TOKEN_TTL", "PARKING_CHECKIN_GRACE", "PARKING_CORS_ORIGINS", "PARKING_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("PARKING_TOKEN_SECRET", secret)
}

func TestIssueTokenCommand(t *testing.T) {
	setEnv(t, "cli-secret")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"issue-token", "-ttl", "10m", "alice"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stderr.String(), "expires at")

	verifier, err := identity.NewVerifier([]byte("cli-secret"), nil)
	require.NoError(t, err)
	principal, err := verifier.Verify(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	require.Equal(t, application.Principal("alice"), principal)
}

func TestRunRejectsBadInvocations(t *testing.T) {
	setEnv(t, "cli-secret")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown command", args: []string{"migrate"}, want: `unknown command "migrate"`},
		{name: "missing principal", args: []string{"issue-token"}, want: "exactly one principal"},
		{name: "bad ttl", args: []string{"issue-token", "-ttl", "soon", "alice"}, want: "invalid arguments"},
		{name: "negative ttl", args: []string{"issue-token", "-ttl", "-1m", "alice"}, want: "ttl must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, &stdout, &stderr)
			require.Equal(t, 1, code)
			require.Contains(t, stderr.String(), tc.want)
			require.Empty(t, stdout.String())
		})
	}
}

func TestRunRequiresConfiguration(t *testing.T) {
	setEnv(t, "")
	require.NoError(t, os.Unsetenv("PARKING_TOKEN_SECRET"))

	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(context.Background(), nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "PARKING_TOKEN_SECRET")
}

func TestServeStopsWithContext(t *testing.T) {
	setEnv(t, "cli-secret")
	t.Setenv("PARKING_STORAGE", "memory")
	t.Setenv("PARKING_HTTP_PORT", "0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(ctx, []string{"serve"}, &stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), "parking ledger API listening")
}
