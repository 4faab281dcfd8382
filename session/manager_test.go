package session_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/entity"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/session"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestManager(t *testing.T) session.Manager {
	t.Helper()
	m, err := session.NewManager(&config.SessionConfig{SqlitePath: ":memory:"}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, m.Close())
	})
	return m
}

func TestAppendTurnRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s, err := m.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	turns := []entity.Turn{
		{Role: entity.TurnRoleUser, Content: "what does my lab report say?"},
		{
			Role:     entity.TurnRoleTool,
			ToolName: "search_documents",
			ToolArgs: datatypes.NewJSONType(map[string]any{"query": "lab report"}),
			Content:  `{"results":[]}`,
		},
		{Role: entity.TurnRoleAssistant, Content: "I could not find a lab report."},
	}
	for _, turn := range turns {
		_, err := m.AppendTurn(ctx, s.ID, turn)
		require.NoError(t, err)
	}

	transcript, err := m.GetTranscript(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, transcript, len(turns))

	// Same positions, unmodified content.
	for i, turn := range turns {
		require.Equal(t, turn.Role, transcript[i].Role)
		require.Equal(t, turn.Content, transcript[i].Content)
		require.Equal(t, turn.ToolName, transcript[i].ToolName)
	}
	require.Equal(t, map[string]any{"query": "lab report"}, transcript[1].ToolArgs.Data())

	count, err := m.GetNumTurns(ctx, s.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func TestAppendTurnUnknownSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.AppendTurn(ctx, "no-such-session", entity.Turn{
		Role:    entity.TurnRoleUser,
		Content: "hello",
	})
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGetOrCreateSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s1, err := m.GetOrCreateSession(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, s1.ID)

	s2, err := m.GetOrCreateSession(ctx, "patient-42")
	require.NoError(t, err)
	require.Equal(t, "patient-42", s2.ID)

	s3, err := m.GetOrCreateSession(ctx, "patient-42")
	require.NoError(t, err)
	require.Equal(t, s2.ID, s3.ID)

	sessions, err := m.GetSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}

func TestSetActiveCollection(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s, err := m.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SetActiveCollection(ctx, s.ID, "liver-test-may2025"))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "liver-test-may2025", got.ActiveCollection)

	err = m.SetActiveCollection(ctx, "missing", "x")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteSessionRemovesTurns(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s, err := m.CreateSession(ctx)
	require.NoError(t, err)
	_, err = m.AppendTurn(ctx, s.ID, entity.Turn{Role: entity.TurnRoleUser, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, m.DeleteSession(ctx, s.ID))

	transcript, err := m.GetTranscript(ctx, s.ID)
	require.NoError(t, err)
	require.Empty(t, transcript)

	_, err = m.GetSession(ctx, s.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
