package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relnotesd/internal/llm"
	"github.com/fyrsmithlabs/relnotesd/internal/notes"
	"github.com/fyrsmithlabs/relnotesd/internal/prompt"
	"github.com/fyrsmithlabs/relnotesd/internal/redact"
	"github.com/fyrsmithlabs/relnotesd/internal/relevance"
)

const (
	// DefaultProgressBatchSize is how many model deltas are folded into a
	// single progress event.
	DefaultProgressBatchSize = 5

	// DefaultIdleTimeout bounds the silence between model deltas before a
	// session is declared stalled.
	DefaultIdleTimeout = 120 * time.Second

	// RejectionMessage is sent when the change is filtered out before any
	// model work happens.
	RejectionMessage = "This change does not affect user-facing behavior; no release notes were generated."

	stalledMessage = "generation stalled"
)

// State identifies where a session is in its lifecycle. Transitions only
// move forward; Closed is terminal.
type State int

const (
	StateIdle State = iota
	StateStarted
	StateStreaming
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome records how a closed session ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// SessionConfig carries the collaborators and tuning knobs for one session.
type SessionConfig struct {
	// ID names the session on the wire. A fresh UUID is assigned when empty.
	ID string

	Generator llm.Generator
	Builder   *prompt.Builder

	// Redactor scrubs the diff before it reaches the model. Optional.
	Redactor redact.Redactor

	// Sink receives the ordered event stream.
	Sink Sink

	Logger *zap.Logger

	// ProgressBatchSize overrides DefaultProgressBatchSize when positive.
	ProgressBatchSize int

	// IdleTimeout overrides DefaultIdleTimeout when positive.
	IdleTimeout time.Duration
}

// Session drives one change record through relevance gating, generation,
// and note extraction, emitting the event protocol along the way. A session
// runs exactly once.
type Session struct {
	id          string
	gen         llm.Generator
	builder     *prompt.Builder
	redactor    redact.Redactor
	ch          *Channel
	logger      *zap.Logger
	metrics     *Metrics
	batchSize   int
	idleTimeout time.Duration

	mu      sync.Mutex
	state   State
	outcome Outcome
}

// NewSession validates the configuration and prepares a session in the idle
// state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ProgressBatchSize <= 0 {
		cfg.ProgressBatchSize = DefaultProgressBatchSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	return &Session{
		id:          cfg.ID,
		gen:         cfg.Generator,
		builder:     cfg.Builder,
		redactor:    cfg.Redactor,
		ch:          NewChannel(cfg.Sink),
		logger:      cfg.Logger,
		metrics:     NewMetrics(),
		batchSize:   cfg.ProgressBatchSize,
		idleTimeout: cfg.IdleTimeout,
	}, nil
}

// ID returns the session identifier sent in the start event.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns how the session ended, or OutcomeNone while it is still
// running.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Run processes one change record to completion. The start event is emitted
// before any model work, rejections end with a message and complete, and
// every other path terminates with exactly one of complete or error. When
// the client disconnects mid-stream the session stops silently. Run reports
// an error only when the session has already run.
func (s *Session) Run(ctx context.Context, rec notes.ChangeRecord) error {
	if !s.transition(StateIdle, StateStarted) {
		return fmt.Errorf("session %s already ran", s.id)
	}
	began := time.Now()
	s.metrics.RecordSessionStart()

	if err := s.send(StartEvent(s.id)); err != nil {
		s.close(OutcomeCancelled, began, 0)
		return nil
	}

	if !relevance.ShouldInclude(rec) {
		s.metrics.RecordRejectedChange()
		s.send(MessageEvent(RejectionMessage))
		s.send(CompleteEvent())
		s.close(OutcomeSuccess, began, 0)
		return nil
	}

	s.setState(StateStreaming)

	diff := rec.DiffText
	description := rec.Description
	if s.redactor != nil && s.redactor.IsEnabled() {
		var err error
		diff, description, err = s.redactInputs(diff, description)
		if err != nil {
			s.logger.Error("secret scan failed", zap.String("session_id", s.id), zap.Error(err))
			s.send(ErrorEvent("secret scan failed"))
			s.close(OutcomeError, began, 0)
			return nil
		}
	}

	input := s.builder.Build(diff, description)

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stalled atomic.Bool
	watchdog := time.AfterFunc(s.idleTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	var (
		buffer    strings.Builder
		batch     strings.Builder
		pending   int
		chunks    int
		notesSent bool
	)

	flush := func() error {
		if pending == 0 {
			return nil
		}
		err := s.send(ProgressEvent(batch.String()))
		batch.Reset()
		pending = 0
		return err
	}

	onDelta := func(chunk string) error {
		watchdog.Reset(s.idleTimeout)
		if chunk == "" {
			return nil
		}
		chunks++
		s.metrics.RecordDelta()
		buffer.WriteString(chunk)
		batch.WriteString(chunk)
		pending++
		if pending >= s.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		if !notesSent {
			if n, ok := notes.TryExtract(buffer.String()); ok {
				// Pending text goes out first so progress always precedes
				// the notes event.
				if err := flush(); err != nil {
					return err
				}
				notesSent = true
				if err := s.send(NotesEvent(n)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	genErr := s.gen.Generate(genCtx, input, onDelta)
	watchdog.Stop()

	if genErr == nil {
		err := flush()
		if err == nil {
			s.setState(StateFinalizing)
			if !notesSent {
				err = s.send(NotesEvent(notes.Finalize(buffer.String())))
			}
		}
		if err == nil {
			err = s.send(CompleteEvent())
		}
		if err != nil {
			s.close(OutcomeCancelled, began, chunks)
			return nil
		}
		s.close(OutcomeSuccess, began, chunks)
		return nil
	}

	switch {
	case s.ch.Closed():
		// The sink failed mid-stream; the client is gone.
		s.close(OutcomeCancelled, began, chunks)
	case stalled.Load():
		s.send(ErrorEvent(stalledMessage))
		s.close(OutcomeError, began, chunks)
	case ctx.Err() != nil || isClientDisconnect(genErr):
		s.close(OutcomeCancelled, began, chunks)
	default:
		s.logger.Error("generation failed",
			zap.String("session_id", s.id),
			zap.Error(genErr))
		s.send(ErrorEvent(fmt.Sprintf("generation failed: %v", genErr)))
		s.close(OutcomeError, began, chunks)
	}
	return nil
}

// redactInputs scrubs the diff and the description before either reaches the
// model.
func (s *Session) redactInputs(diff, description string) (string, string, error) {
	diffRes, err := s.redactor.Redact(diff)
	if err != nil {
		return "", "", err
	}
	descRes, err := s.redactor.Redact(description)
	if err != nil {
		return "", "", err
	}
	if n := len(diffRes.Findings) + len(descRes.Findings); n > 0 {
		s.logger.Warn("redacted secrets from change content",
			zap.String("session_id", s.id),
			zap.Int("findings", n))
	}
	return diffRes.Content, descRes.Content, nil
}

// send forwards an event to the channel and counts it when it was actually
// written.
func (s *Session) send(ev Event) error {
	err := s.ch.Send(ev)
	if err == nil && !s.ch.Closed() {
		s.metrics.RecordEvent(string(ev.Type))
	}
	return err
}

func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = st
	}
	s.mu.Unlock()
}

func (s *Session) close(outcome Outcome, began time.Time, chunks int) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.outcome = outcome
	s.mu.Unlock()

	s.ch.Close()
	s.metrics.RecordSessionClose(outcome.String(), time.Since(began).Seconds())
	s.logger.Info("session closed",
		zap.String("session_id", s.id),
		zap.String("outcome", outcome.String()),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(began)))
}

// isClientDisconnect matches the error signatures a dropped client leaves
// behind so the session can stop without emitting anything further.
func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"client disconnected", "broken pipe", "connection reset"} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
