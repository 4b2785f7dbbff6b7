package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/processmap/internal/auth"
	"example.com/processmap/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("JWT_SECRET", "mapctl-test-secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedLoadsSampleWorkflow(t *testing.T) {
	out, err := run(t, "seed", "--name", "Underwriting")
	require.NoError(t, err)
	require.Contains(t, out, "7 swimlanes, 26 activities inserted, 0 skipped")
}

func TestShiftUnknownWorkflowFails(t *testing.T) {
	_, err := run(t, "shift", "--workflow", "42", "--row", "C", "--from", "1")
	require.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestMigrateNeedsPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	require.ErrorContains(t, err, "POSTGRES_URL")
}

func TestTokenIssuesParseableJWT(t *testing.T) {
	out, err := run(t, "token", "--subject", "analyst")
	require.NoError(t, err)

	claims, err := auth.Parse(strings.TrimSpace(out), auth.Config{Secret: "mapctl-test-secret", Issuer: "processmap"})
	require.NoError(t, err)
	require.Equal(t, "analyst", claims.Subject)
}
