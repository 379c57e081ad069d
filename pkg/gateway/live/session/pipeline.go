package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaminitachi/aivoice-learning/pkg/core/characters"
	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/stt"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/tts"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/access"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/gate"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/protocol"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/metrics"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// State tracks where the pipeline is in its lifecycle. The read loop is a
// single goroutine, so transitions never race.
type State int

const (
	StateAwaitingSetup State = iota
	StateReady
	StateProcessingTurn
	StateStreamingReply
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingSetup:
		return "awaiting_setup"
	case StateReady:
		return "ready"
	case StateProcessingTurn:
		return "processing_turn"
	case StateStreamingReply:
		return "streaming_reply"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config tunes one pipeline instance.
type Config struct {
	MaxTurns        int
	ReadLimit       int64
	WriteTimeout    time.Duration
	CompletionGrace time.Duration
	InitFlushDelay  time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 10
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 8 << 20
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.CompletionGrace <= 0 {
		c.CompletionGrace = 200 * time.Millisecond
	}
	if c.InitFlushDelay <= 0 {
		c.InitFlushDelay = 100 * time.Millisecond
	}
}

// Dependencies are the collaborators one pipeline needs. All fields except
// Metrics are required.
type Dependencies struct {
	Conn      *websocket.Conn
	Logger    *slog.Logger
	Store     store.Store
	Guard     *access.Guard
	STT       stt.Provider
	TTS       tts.Provider
	LLM       llm.Provider
	STTGate   *gate.Gate
	TTSGate   *gate.Gate
	Metrics   *metrics.Metrics
	Character *characters.Character
	Session   *ConversationSession
	NetID     string
}

func (d *Dependencies) validate() error {
	switch {
	case d.Conn == nil:
		return fmt.Errorf("session: conn required")
	case d.Store == nil:
		return fmt.Errorf("session: store required")
	case d.Guard == nil:
		return fmt.Errorf("session: guard required")
	case d.STT == nil:
		return fmt.Errorf("session: stt provider required")
	case d.TTS == nil:
		return fmt.Errorf("session: tts provider required")
	case d.LLM == nil:
		return fmt.Errorf("session: llm provider required")
	case d.STTGate == nil || d.TTSGate == nil:
		return fmt.Errorf("session: gates required")
	case d.Character == nil:
		return fmt.Errorf("session: character required")
	case d.Session == nil:
		return fmt.Errorf("session: session required")
	}
	return nil
}

// Pipeline drives the turn state machine for one connection.
type Pipeline struct {
	deps Dependencies
	cfg  Config

	state       State
	fingerprint string

	writeMu sync.Mutex
	wg      sync.WaitGroup

	logger *slog.Logger
}

func NewPipeline(deps Dependencies, cfg Config) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		deps:   deps,
		cfg:    cfg,
		state:  StateAwaitingSetup,
		logger: logger.With("session_id", deps.Session.ID(), "character_id", deps.Character.ID),
	}, nil
}

// Run reads client frames until the session terminates or the peer
// disconnects. Background enrichment work is joined before returning so a
// completed session's feedback is never truncated by teardown.
func (p *Pipeline) Run(ctx context.Context) {
	defer p.wg.Wait()
	p.deps.Conn.SetReadLimit(p.cfg.ReadLimit)

	for p.state != StateTerminated {
		_, data, err := p.deps.Conn.ReadMessage()
		if err != nil {
			if p.state != StateTerminated {
				p.logger.Info("client disconnected", "state", p.state.String(), "error", err)
			}
			p.state = StateTerminated
			return
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			p.logger.Debug("undecodable client message", "error", err)
			p.sendJSON(protocol.NewError("I didn't understand that message."))
			continue
		}
		switch m := msg.(type) {
		case *protocol.Ping:
			p.sendJSON(protocol.NewPong())
		case *protocol.Init:
			p.handleInit(ctx, m)
		case *protocol.Audio:
			p.handleAudio(ctx, m.Data)
		}
	}
}

func (p *Pipeline) sendJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.deps.Conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	return p.deps.Conn.WriteJSON(v)
}

// handleInit runs the authoritative access check and plays the persona's
// greeting. Clients may send the fingerprint in a later init; the check
// applies the first time one arrives.
func (p *Pipeline) handleInit(ctx context.Context, m *protocol.Init) {
	if p.state != StateAwaitingSetup {
		if p.state == StateReady && p.fingerprint == "" && m.Fingerprint != "" {
			p.adoptFingerprint(ctx, m.Fingerprint)
			return
		}
		p.sendJSON(protocol.NewError("Session is already set up."))
		return
	}
	if !p.adoptFingerprint(ctx, m.Fingerprint) {
		return
	}
	sess := p.deps.Session
	if d, ok := lesson.ParseDifficulty(m.Difficulty); ok {
		sess.SetDifficulty(d)
		if err := p.deps.Store.SetDifficulty(ctx, sess.ID(), string(d)); err != nil {
			p.logger.Warn("persist difficulty failed", "error", err)
		}
	}

	char := p.deps.Character
	sess.RecordAgentUtterance(char.InitMessage)
	p.sendJSON(protocol.NewCharacterImage(char.EmotionImage(characters.EmotionNeutral), string(characters.EmotionNeutral)))
	p.sendJSON(protocol.NewSuggestedResponses(lesson.InitialSuggestions(sess.Difficulty())))

	// Small pause lets the client settle before audio arrives.
	time.Sleep(p.cfg.InitFlushDelay)
	if err := p.streamGreeting(ctx, char.InitMessage); err != nil {
		p.logger.Warn("greeting synthesis failed", "error", err)
	}
	p.state = StateReady
	p.logger.Info("session ready", "difficulty", sess.Difficulty())
}

// adoptFingerprint records the fingerprint and runs the access check
// against it. Returns false when the visitor is blocked; the session is
// terminated before any further turns.
func (p *Pipeline) adoptFingerprint(ctx context.Context, fingerprint string) bool {
	p.fingerprint = fingerprint
	if !p.deps.Guard.MayProceed(ctx, p.deps.NetID, fingerprint) {
		p.sendJSON(protocol.NewBlocked("You have already completed a conversation. Thank you for trying the demo!"))
		p.terminate("blocked")
		return false
	}
	if fingerprint != "" {
		if err := p.deps.Store.SetFingerprint(ctx, p.deps.Session.ID(), fingerprint); err != nil {
			p.logger.Warn("persist fingerprint failed", "error", err)
		}
	}
	return true
}

func (p *Pipeline) streamGreeting(ctx context.Context, text string) error {
	return p.deps.TTSGate.Do(ctx, func(ctx context.Context) error {
		stream, err := p.deps.TTS.SynthesizeStream(ctx, text, p.deps.Character.VoiceID)
		if err != nil {
			return err
		}
		if err := p.sendJSON(protocol.NewInitAudioStreamStart()); err != nil {
			return gate.Permanent(err)
		}
		for chunk := range stream.Chunks() {
			if err := p.sendJSON(protocol.NewInitAudioChunk(chunk)); err != nil {
				return gate.Permanent(err)
			}
		}
		if err := stream.Err(); err != nil {
			return gate.Permanent(err)
		}
		if err := p.sendJSON(protocol.NewInitAudioStreamEnd()); err != nil {
			return gate.Permanent(err)
		}
		return nil
	})
}

// handleAudio runs one conversation turn.
func (p *Pipeline) handleAudio(ctx context.Context, audio []byte) {
	switch p.state {
	case StateAwaitingSetup:
		p.sendJSON(protocol.NewError("Please finish setup before sending audio."))
		return
	case StateReady:
	default:
		return
	}

	sess := p.deps.Session
	char := p.deps.Character
	p.state = StateProcessingTurn
	defer func() {
		if p.state == StateProcessingTurn || p.state == StateStreamingReply {
			p.state = StateReady
		}
	}()

	// A concurrent session under the same fingerprint may have completed
	// since setup; re-check before accepting the turn.
	if !p.deps.Guard.MayProceed(ctx, p.deps.NetID, p.fingerprint) {
		p.sendJSON(protocol.NewBlocked("This conversation is no longer available."))
		p.terminate("blocked mid-session")
		return
	}

	p.sendJSON(protocol.NewStatus("Listening..."))
	var transcript string
	err := p.deps.STTGate.Do(ctx, func(ctx context.Context) error {
		text, err := p.deps.STT.Transcribe(ctx, audio)
		if err != nil {
			return err
		}
		transcript = text
		return nil
	})
	if err != nil {
		p.logger.Warn("transcription failed", "error", err)
		p.sendJSON(protocol.NewError("I had trouble understanding your audio. Please try again."))
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		p.sendJSON(protocol.NewError("I couldn't hear you. Could you say that again?"))
		return
	}
	p.sendJSON(protocol.NewSTTResult(transcript))

	// History as it stood before this turn; the model receives the new
	// utterance separately so it always sees one coherent transcript.
	historyBefore := sess.HistoryMessages()

	turnCount := sess.RecordUserUtterance(transcript)
	if err := p.deps.Store.UpdateTurnCount(ctx, sess.ID(), turnCount); err != nil {
		p.logger.Warn("persist turn count failed", "turn", turnCount, "error", err)
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.TurnsTotal.Inc()
	}
	p.sendJSON(protocol.NewTurnCountUpdate(turnCount, p.cfg.MaxTurns))

	p.spawn("evaluate", func(ctx context.Context) {
		item, err := p.deps.LLM.Evaluate(ctx, transcript)
		if err != nil {
			p.logger.Warn("utterance evaluation failed", "error", err)
			return
		}
		if item != nil {
			sess.AddFeedback(*item)
		}
	})

	final := turnCount >= p.cfg.MaxTurns
	if turnCount == p.cfg.MaxTurns-1 {
		p.spawn("assess", func(ctx context.Context) {
			items := sess.FeedbackSnapshot()
			assessment, err := p.deps.LLM.Assess(ctx, items)
			if err != nil {
				p.logger.Warn("overall assessment failed", "error", err)
				assessment = llm.DefaultAssessment(items)
			}
			sess.SetOverallAssessment(assessment)
		})
	}

	prompt := lesson.ApplyToPrompt(char.SystemPrompt, sess.Difficulty())
	if final {
		prompt += lesson.ClosingInstruction
		// Persist before generating the sign-off so the stored transcript
		// is the conversation proper; the closing message stays out of the
		// durable record.
		p.completeSession(ctx)
	}

	p.sendJSON(protocol.NewStatus("Thinking..."))
	reply, err := p.deps.LLM.Respond(ctx, transcript, prompt, historyBefore)
	if err != nil {
		p.logger.Error("reply generation failed", "error", err)
		p.sendJSON(protocol.NewError("I couldn't come up with a reply. Please try again."))
		if final {
			p.sendJSON(protocol.NewSessionCompleted(sess.ID(), turnCount, "Conversation complete. Great job!"))
			p.closeAfterGrace()
		}
		return
	}
	sess.RecordAgentUtterance(reply)
	p.sendJSON(protocol.NewLLMResult(reply))

	emotion := characters.ClassifyEmotion(reply)
	p.sendJSON(protocol.NewCharacterImage(char.EmotionImage(emotion), string(emotion)))

	// The completion notice follows the reply text and precedes its audio.
	if final {
		p.sendJSON(protocol.NewSessionCompleted(sess.ID(), turnCount, "Conversation complete. Great job!"))
	}

	p.state = StateStreamingReply
	if err := p.streamReply(ctx, reply); err != nil {
		p.logger.Warn("reply synthesis failed", "error", err)
		p.sendJSON(protocol.NewError("I lost my voice for a moment. Let's keep going!"))
	}

	if final {
		p.closeAfterGrace()
		return
	}

	p.spawn("suggest", func(ctx context.Context) {
		suggestions, err := p.deps.LLM.Suggest(ctx, sess.HistoryMessages(), char.Name, sess.Difficulty())
		if err != nil {
			p.logger.Warn("suggestion generation failed", "error", err)
			suggestions = lesson.FallbackSuggestions(sess.Difficulty())
		}
		p.sendJSON(protocol.NewSuggestedResponses(suggestions))
	})
	p.state = StateReady
}

func (p *Pipeline) streamReply(ctx context.Context, text string) error {
	return p.deps.TTSGate.Do(ctx, func(ctx context.Context) error {
		stream, err := p.deps.TTS.SynthesizeStream(ctx, text, p.deps.Character.VoiceID)
		if err != nil {
			return err
		}
		// From the first forwarded chunk on, a retry would replay audio;
		// everything past this point is final.
		if err := p.sendJSON(protocol.NewAudioStreamStart()); err != nil {
			return gate.Permanent(err)
		}
		for chunk := range stream.Chunks() {
			if err := p.sendJSON(protocol.NewAudioChunk(chunk)); err != nil {
				return gate.Permanent(err)
			}
		}
		if err := stream.Err(); err != nil {
			return gate.Permanent(err)
		}
		if err := p.sendJSON(protocol.NewAudioStreamEnd()); err != nil {
			return gate.Permanent(err)
		}
		return nil
	})
}

// completeSession flips and persists completion exactly once.
func (p *Pipeline) completeSession(ctx context.Context) {
	sess := p.deps.Session
	if !sess.Complete() {
		return
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.SessionsCompleted.Inc()
	}
	if err := p.deps.Store.CompleteSession(ctx, sess.ID(), sess.MarshalHistory(), sess.MarshalFeedback()); err != nil {
		p.logger.Error("persist completed session failed", "error", err)
	}
	if err := p.deps.Store.LogActivity(ctx, sess.ID(), "complete", nil); err != nil {
		p.logger.Warn("log completion activity failed", "error", err)
	}
	p.logger.Info("session completed", "turns", sess.TurnCount())
}

// closeAfterGrace gives in-flight frames a moment to flush, then closes.
func (p *Pipeline) closeAfterGrace() {
	time.Sleep(p.cfg.CompletionGrace)
	deadline := time.Now().Add(p.cfg.WriteTimeout)
	p.deps.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session completed"), deadline)
	p.terminate("turn limit reached")
	p.deps.Conn.Close()
}

func (p *Pipeline) terminate(reason string) {
	if p.state == StateTerminated {
		return
	}
	p.state = StateTerminated
	p.logger.Info("session terminated", "reason", reason)
}

// spawn runs background enrichment without blocking the turn path. Joined
// in Run before teardown.
func (p *Pipeline) spawn(name string, fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(context.Background())
	}()
}
