package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyfalo/sereno/internal/config"
	"github.com/zyfalo/sereno/internal/guardrail"
	"github.com/zyfalo/sereno/internal/session"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.generateFunc(ctx, prompt)
}

type mockRecorder struct {
	entries []string
}

func (m *mockRecorder) Record(sessionID, role, content string) {
	m.entries = append(m.entries, role+": "+content)
}

func testEngine(gen TextGenerator, rec Recorder) *Engine {
	guard := guardrail.NewCoordinator(config.GuardrailsConfig{
		EnableCrisisDetection: true,
		RiskThreshold:         0.75,
		CrisisKeywords:        config.DefaultCrisisKeywords,
		SuicideHotline:        "988",
		CrisisText:            "741741",
		Emergency:             "911",
	})
	return New(session.NewStore(), guard, gen, rec, config.SessionConfig{TimeoutSeconds: 3600})
}

func TestProcess_NormalTurn(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		require.Contains(t, prompt, "<|im_start|>user\nHola, estoy estresado\n<|im_end|>")
		return "Entiendo, cuéntame más sobre lo que te estresa.", nil
	}}
	e := testEngine(gen, nil)

	res, err := e.Process(context.Background(), "", "Hola, estoy estresado", nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.Equal(t, "Entiendo, cuéntame más sobre lo que te estresa.", res.Reply)
	require.Equal(t, guardrail.RiskLow, res.RiskLevel)
	require.False(t, res.IsCrisis)
	require.Empty(t, res.EmergencyResponse)
	require.Equal(t, 1, gen.calls)

	// system + user + assistant
	s, ok := e.Store().Get(res.SessionID)
	require.True(t, ok)
	require.Len(t, s.Turns, 3)
	require.Equal(t, session.RoleAssistant, s.Turns[2].Role)
}

func TestProcess_CrisisSkipsGeneration(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "should never run", nil
	}}
	e := testEngine(gen, nil)

	res, err := e.Process(context.Background(), "", "Voy a acabar con mi vida", nil)
	require.NoError(t, err)
	require.True(t, res.IsCrisis)
	require.Equal(t, guardrail.RiskCritical, res.RiskLevel)
	require.Contains(t, res.Reply, "988")
	require.Equal(t, res.Reply, res.EmergencyResponse)
	require.Zero(t, gen.calls)

	s, ok := e.Store().Get(res.SessionID)
	require.True(t, ok)
	require.Len(t, s.Turns, 3)
	require.Equal(t, "critical", s.Turns[1].Metadata["risk_level"])
	require.Equal(t, true, s.Turns[2].Metadata["is_emergency"])
}

func TestProcess_InvalidReplySubstitutesFallback(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "Creo que tienes depresión clínica", nil
	}}
	e := testEngine(gen, nil)

	res, err := e.Process(context.Background(), "", "Me siento mal", nil)
	require.NoError(t, err)
	require.NotContains(t, res.Reply, "depresión")
	require.Contains(t, res.Reply, "no puedo responder eso")

	s, _ := e.Store().Get(res.SessionID)
	require.Equal(t, res.Reply, s.Turns[2].Content)
}

func TestProcess_GenerationErrorAbortsTurn(t *testing.T) {
	genErr := errors.New("backend unavailable")
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "", genErr
	}}
	e := testEngine(gen, nil)

	sessionID := e.Store().Create()
	_, err := e.Process(context.Background(), sessionID, "Hola", nil)
	require.ErrorIs(t, err, genErr)

	// The user turn was appended before the failure; no assistant turn follows.
	s, ok := e.Store().Get(sessionID)
	require.True(t, ok)
	require.Len(t, s.Turns, 2)
	require.Equal(t, session.RoleUser, s.Turns[1].Role)
}

func TestProcess_ReusesExistingSession(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "Claro, sigamos.", nil
	}}
	e := testEngine(gen, nil)

	first, err := e.Process(context.Background(), "", "Hola", nil)
	require.NoError(t, err)
	second, err := e.Process(context.Background(), first.SessionID, "Sigo aquí", nil)
	require.NoError(t, err)

	require.Equal(t, first.SessionID, second.SessionID)
	s, _ := e.Store().Get(first.SessionID)
	require.Len(t, s.Turns, 5)
	require.Equal(t, 1, e.Store().Len())
}

func TestProcess_UnknownSessionStartsFresh(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "Hola, ¿cómo estás?", nil
	}}
	e := testEngine(gen, nil)

	res, err := e.Process(context.Background(), "no-such-id", "Hola", nil)
	require.NoError(t, err)
	require.NotEqual(t, "no-such-id", res.SessionID)
	require.NotEmpty(t, res.SessionID)
}

func TestProcess_RecorderReceivesTurns(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "Respira hondo.", nil
	}}
	rec := &mockRecorder{}
	e := testEngine(gen, rec)

	_, err := e.Process(context.Background(), "", "Estoy nervioso", nil)
	require.NoError(t, err)

	require.Equal(t, []string{
		"user: Estoy nervioso",
		"assistant: Respira hondo.",
	}, rec.entries)
}

func TestProcess_MetadataAttachedToUserTurn(t *testing.T) {
	gen := &mockGenerator{generateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "Entendido.", nil
	}}
	e := testEngine(gen, nil)

	res, err := e.Process(context.Background(), "", "Hola", map[string]any{"channel": "voice"})
	require.NoError(t, err)

	s, _ := e.Store().Get(res.SessionID)
	require.Equal(t, "voice", s.Turns[1].Metadata["channel"])
}
