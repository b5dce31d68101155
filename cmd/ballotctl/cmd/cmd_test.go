package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "ballotledger/internal/jwt_token"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/audit"
	auditpublisher "ballotledger/pkg/platform/audit/publisher"
	auditmemory "ballotledger/pkg/platform/audit/store/memory"
)

const testAccount = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BALLOT_STORAGE_BACKEND", "memory")
	t.Setenv("BALLOT_SERVER_ENV", "development")
	t.Setenv("BALLOT_AUTH_JWT_SIGNING_KEY", "cli-test-key")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := runCLI(t, "token", testAccount)
	require.NoError(t, err)

	svc := jwttoken.NewJWTService("cli-test-key", "ballotledger", "ballotledger-api")
	account, err := svc.ValidateAccount(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, domain.MustParseAccount(testAccount), account)
}

func TestTokenCommandRejectsBadAccount(t *testing.T) {
	_, err := runCLI(t, "token", "not-an-account")
	assert.Error(t, err)
}

func TestInitCommandWithDefaultSeed(t *testing.T) {
	out, err := runCLI(t, "init", testAccount, "--default-seed")
	require.NoError(t, err)
	assert.Contains(t, out, "election initialized for "+testAccount)
	assert.Contains(t, out, "1\tDr. Sarah Johnson")
	assert.Contains(t, out, "4\tMr. David Anderson")
}

func TestStatusCommandOnEmptyStore(t *testing.T) {
	out, err := runCLI(t, "status")
	require.Error(t, err)

	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "memory", status.Backend)
	assert.True(t, status.StoreReachable)
	assert.False(t, status.Initialized)
}

func TestResultsCommandOnEmptyStore(t *testing.T) {
	_, err := runCLI(t, "results")
	assert.Error(t, err)
}

func TestStatusListsRecentAuditEvents(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	pub := auditpublisher.NewPublisher(store)
	defer pub.Close()

	ctx := context.Background()
	actor := domain.MustParseAccount(testAccount)
	require.NoError(t, pub.Emit(ctx, audit.Event{Type: audit.EventElectionInitialized, Actor: actor}))
	require.NoError(t, pub.Emit(ctx, audit.Event{Type: audit.EventCandidateRegistered, Actor: actor, CandidateID: 1, Name: "Alice"}))
	require.NoError(t, pub.Emit(ctx, audit.Event{Type: audit.EventVoteCast, Actor: actor, CandidateID: 1}))

	none, err := recentEvents(ctx, pub, 0)
	require.NoError(t, err)
	assert.Nil(t, none)

	events, err := recentEvents(ctx, pub, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventVoteCast, events[0].Type)
	assert.Equal(t, audit.EventCandidateRegistered, events[1].Type)
}

func TestStatusEventsFlagOnEmptyStore(t *testing.T) {
	defer func() { statusEvents = 0 }()
	out, err := runCLI(t, "status", "--events", "5")
	require.Error(t, err)

	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Empty(t, status.RecentEvents)
}
