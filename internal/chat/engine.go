// Package chat drives one conversation turn end to end: input guardrail,
// session bookkeeping, prompt formatting, generation, output guardrail, and
// the opportunistic expiry sweep.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/zyfalo/sereno/internal/config"
	"github.com/zyfalo/sereno/internal/guardrail"
	"github.com/zyfalo/sereno/internal/logger"
	"github.com/zyfalo/sereno/internal/session"
)

// FSM States
type FSMState stateless.State

var (
	StateEvaluatingInput  FSMState = "EvaluatingInput"
	StateGenerating       FSMState = "Generating"
	StateValidatingOutput FSMState = "ValidatingOutput"
	StateEmergency        FSMState = "Emergency" // Terminal: crisis short-circuit
	StateDone             FSMState = "Done"      // Terminal: reply produced
	StateError            FSMState = "Error"     // Terminal: turn aborted
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerProcessInput    FSMTrigger = "ProcessInput"
	TriggerInputSafe       FSMTrigger = "InputSafe"
	TriggerCrisisDetected  FSMTrigger = "CrisisDetected"
	TriggerReplyGenerated  FSMTrigger = "ReplyGenerated"
	TriggerOutputValidated FSMTrigger = "OutputValidated"
	TriggerErrorOccurred   FSMTrigger = "ErrorOccurred"
)

// TextGenerator is the text-generation capability consumed per turn. The
// call is synchronous and potentially long-running; cancellation comes from
// the caller through ctx.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives every appended turn for archival. Optional.
type Recorder interface {
	Record(sessionID, role, content string)
}

// Result is the outcome of one completed turn.
type Result struct {
	SessionID         string              `json:"session_id"`
	Reply             string              `json:"response"`
	RiskLevel         guardrail.RiskLevel `json:"risk_level"`
	IsCrisis          bool                `json:"is_crisis"`
	EmergencyResponse string              `json:"emergency_response,omitempty"`
}

// Engine composes the guardrail coordinator, the session store and the
// generation port. One engine serves the whole process.
type Engine struct {
	store    *session.Store
	guard    *guardrail.Coordinator
	gen      TextGenerator
	recorder Recorder
	timeout  time.Duration
}

// New creates an engine. recorder may be nil.
func New(store *session.Store, guard *guardrail.Coordinator, gen TextGenerator, recorder Recorder, cfg config.SessionConfig) *Engine {
	return &Engine{
		store:    store,
		guard:    guard,
		gen:      gen,
		recorder: recorder,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Store exposes the session store for read-only collaborators (HTTP layer).
func (e *Engine) Store() *session.Store {
	return e.store
}

// Process handles one turn. An empty or unknown sessionID starts a fresh
// session. Generation failures abort the turn and propagate; a reply that
// fails the content check is replaced by the fallback response and the turn
// still succeeds.
//
// The turn is driven by a finite state machine: EvaluatingInput either
// short-circuits to Emergency or proceeds through Generating and
// ValidatingOutput to Done.
func (e *Engine) Process(ctx context.Context, sessionID, message string, metadata map[string]any) (*Result, error) {
	if sessionID == "" {
		sessionID = e.store.Create()
	} else if _, ok := e.store.Get(sessionID); !ok {
		sessionID = e.store.Create()
		logger.L.Info("unknown session id, started fresh session", "session_id", sessionID)
	}

	type fsmContext struct {
		inputVerdict guardrail.Verdict
		reply        string
		lastError    error
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StateEvaluatingInput)

	// State: EvaluatingInput
	// Action: run the input guardrail.
	// Transitions:
	//   - On CrisisDetected -> StateEmergency
	//   - On InputSafe -> StateGenerating
	fsm.Configure(StateEvaluatingInput).
		PermitReentry(TriggerProcessInput). // ensures OnEntry runs on the initial Fire
		OnEntry(func(ctx context.Context, args ...any) error {
			fsmCtx.inputVerdict = e.guard.CheckInput(message)
			if fsmCtx.inputVerdict.ShouldTerminate {
				return fsm.FireCtx(ctx, TriggerCrisisDetected)
			}
			return fsm.FireCtx(ctx, TriggerInputSafe)
		}).
		Permit(TriggerCrisisDetected, StateEmergency).
		Permit(TriggerInputSafe, StateGenerating)

	// State: Generating
	// Action: append the user turn, format the prompt, call the backend.
	// Transitions:
	//   - On ReplyGenerated -> StateValidatingOutput
	//   - On ErrorOccurred -> StateError
	fsm.Configure(StateGenerating).
		OnEntry(func(ctx context.Context, args ...any) error {
			if err := e.appendTurn(sessionID, session.RoleUser, message, metadata); err != nil {
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}

			prompt, err := e.store.FormatForModel(sessionID, session.DefaultMaxContext, session.DefaultSummaryThreshold)
			if err != nil {
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}

			logger.L.Info("generating reply", "session_id", sessionID)
			reply, err := e.gen.Generate(ctx, prompt)
			if err != nil {
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.reply = reply
			return fsm.FireCtx(ctx, TriggerReplyGenerated)
		}).
		Permit(TriggerReplyGenerated, StateValidatingOutput).
		Permit(TriggerErrorOccurred, StateError)

	// State: ValidatingOutput
	// Action: run the output guardrail, substituting the fallback on
	// violation, then append the assistant turn.
	// Transitions:
	//   - On OutputValidated -> StateDone
	//   - On ErrorOccurred -> StateError
	fsm.Configure(StateValidatingOutput).
		OnEntry(func(ctx context.Context, args ...any) error {
			outputVerdict := e.guard.CheckOutput(fsmCtx.reply)
			if !outputVerdict.IsValid {
				logger.L.Warn("reply rejected, substituting fallback",
					"session_id", sessionID, "rules", outputVerdict.ViolatedRules)
				fsmCtx.reply = e.guard.FallbackResponse()
			}

			if err := e.appendTurn(sessionID, session.RoleAssistant, fsmCtx.reply, nil); err != nil {
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			return fsm.FireCtx(ctx, TriggerOutputValidated)
		}).
		Permit(TriggerOutputValidated, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	// State: Emergency
	// Action: record the exchange with risk metadata and stop; generation is
	// skipped entirely.
	fsm.Configure(StateEmergency).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Warn("crisis detected",
				"session_id", sessionID,
				"rules", fsmCtx.inputVerdict.TriggeredRules)

			if err := e.appendTurn(sessionID, session.RoleUser, message, map[string]any{
				"risk_level": fsmCtx.inputVerdict.RiskLevel.String(),
			}); err != nil {
				fsmCtx.lastError = err
				return nil
			}
			if err := e.appendTurn(sessionID, session.RoleAssistant, fsmCtx.inputVerdict.EmergencyResponse, map[string]any{
				"is_emergency": true,
			}); err != nil {
				fsmCtx.lastError = err
			}
			return nil
		})

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		return nil, fmt.Errorf("turn pipeline: %w", err)
	}

	defer func() {
		if removed := e.store.SweepExpired(e.timeout); removed > 0 {
			logger.L.Info("expired sessions swept", "count", removed)
		}
	}()

	state, err := fsm.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("turn pipeline: %w", err)
	}

	switch state {
	case StateEmergency:
		if fsmCtx.lastError != nil {
			return nil, fsmCtx.lastError
		}
		return &Result{
			SessionID:         sessionID,
			Reply:             fsmCtx.inputVerdict.EmergencyResponse,
			RiskLevel:         fsmCtx.inputVerdict.RiskLevel,
			IsCrisis:          true,
			EmergencyResponse: fsmCtx.inputVerdict.EmergencyResponse,
		}, nil
	case StateDone:
		return &Result{
			SessionID: sessionID,
			Reply:     fsmCtx.reply,
			RiskLevel: fsmCtx.inputVerdict.RiskLevel,
		}, nil
	case StateError:
		return nil, fsmCtx.lastError
	}
	return nil, errors.New("turn pipeline halted in unexpected state")
}

func (e *Engine) appendTurn(sessionID string, role session.Role, content string, metadata map[string]any) error {
	if err := e.store.Append(sessionID, role, content, metadata); err != nil {
		return err
	}
	if e.recorder != nil {
		e.recorder.Record(sessionID, string(role), content)
	}
	return nil
}
