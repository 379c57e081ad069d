package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaminitachi/aivoice-learning/pkg/core/characters"
	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/tts"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/access"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/gate"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// Fakes treat the audio payload as the transcript text, which keeps
// scenarios readable.

type fakeSTT struct{}

func (fakeSTT) Name() string { return "fake" }

func (fakeSTT) Transcribe(_ context.Context, audio []byte) (string, error) {
	return string(audio), nil
}

type fakeTTS struct{}

func (fakeTTS) Name() string { return "fake" }

func (fakeTTS) SynthesizeStream(ctx context.Context, text, voiceID string) (*tts.Stream, error) {
	s := tts.NewStream(2)
	go func() {
		s.Send(ctx, []byte("chunk-1:"+text))
		s.Send(ctx, []byte("chunk-2"))
		s.Close(nil)
	}()
	return s, nil
}

type fakeLLM struct{}

func (fakeLLM) Respond(_ context.Context, userText, systemPrompt string, _ []llm.Message) (string, error) {
	if strings.Contains(systemPrompt, "end of our conversation") {
		return "It was wonderful talking to you. Keep practicing!", nil
	}
	return "Reply to: " + userText, nil
}

func (fakeLLM) Suggest(_ context.Context, _ []llm.Message, _ string, _ lesson.Difficulty) ([]string, error) {
	return []string{"Sounds good!", "Why is that?", "Tell me more."}, nil
}

func (fakeLLM) Evaluate(_ context.Context, sentence string) (*llm.FeedbackItem, error) {
	return &llm.FeedbackItem{
		UserSentence: sentence,
		GrammarIssue: llm.Issue{HasIssue: true, Corrected: sentence + " (fixed)"},
	}, nil
}

func (fakeLLM) Assess(_ context.Context, _ []llm.FeedbackItem) (*llm.Assessment, error) {
	return &llm.Assessment{Encouragement: "nice work", Scores: llm.Scores{Grammar: 90, Fluency: 85}}, nil
}

type harness struct {
	t     *testing.T
	srv   *httptest.Server
	conn  *websocket.Conn
	store *store.Memory
	sess  *ConversationSession
	done  chan struct{}
}

func newHarness(t *testing.T, maxTurns int) *harness {
	t.Helper()
	st := store.NewMemory()
	char, ok := characters.ByID("jihoon")
	if !ok {
		t.Fatalf("persona missing")
	}
	sess := NewConversation("test-session", char.ID)
	if err := st.CreateSession(context.Background(), store.SessionRecord{ID: sess.ID(), CharacterID: char.ID}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	sttGate, err := gate.New(gate.Config{Capability: "stt", Logger: logger})
	if err != nil {
		t.Fatalf("stt gate: %v", err)
	}
	ttsGate, err := gate.New(gate.Config{Capability: "tts", Logger: logger})
	if err != nil {
		t.Fatalf("tts gate: %v", err)
	}

	h := &harness{t: t, store: st, sess: sess, done: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		p, err := NewPipeline(Dependencies{
			Conn:      conn,
			Logger:    logger,
			Store:     st,
			Guard:     access.NewGuard(st, logger),
			STT:       fakeSTT{},
			TTS:       fakeTTS{},
			LLM:       fakeLLM{},
			STTGate:   sttGate,
			TTSGate:   ttsGate,
			Character: char,
			Session:   sess,
			NetID:     r.RemoteAddr,
		}, Config{
			MaxTurns:        maxTurns,
			CompletionGrace: time.Millisecond,
			InitFlushDelay:  time.Millisecond,
		})
		if err != nil {
			t.Errorf("NewPipeline: %v", err)
			conn.Close()
			return
		}
		p.Run(context.Background())
		conn.Close()
		close(h.done)
	}))
	t.Cleanup(h.srv.Close)

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	h.conn = conn
	return h
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func (h *harness) send(v any) {
	h.t.Helper()
	if err := h.conn.WriteJSON(v); err != nil {
		h.t.Fatalf("write: %v", err)
	}
}

func (h *harness) sendAudioText(text string) {
	h.t.Helper()
	h.send(map[string]string{"type": "audio", "audio": base64.StdEncoding.EncodeToString([]byte(text))})
}

// read returns the next server message or fails the test.
func (h *harness) read() map[string]any {
	h.t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := h.conn.ReadJSON(&msg); err != nil {
		h.t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil skips messages until one of the wanted type arrives.
func (h *harness) readUntil(msgType string) map[string]any {
	h.t.Helper()
	for i := 0; i < 50; i++ {
		msg := h.read()
		if msg["type"] == msgType {
			return msg
		}
	}
	h.t.Fatalf("message %q never arrived", msgType)
	return nil
}

func (h *harness) initSession(fingerprint, difficulty string) {
	h.t.Helper()
	h.send(map[string]string{"type": "init", "fingerprint": fingerprint, "difficulty": difficulty})
	h.readUntil("init_audio_stream_end")
}

func TestPipelineFullConversation(t *testing.T) {
	h := newHarness(t, 3)

	h.send(map[string]string{"type": "init", "fingerprint": "fp-full", "difficulty": "beginner"})
	img := h.readUntil("character_image")
	if img["emotion"] != "neutral" {
		t.Fatalf("greeting emotion = %v", img["emotion"])
	}
	sugg := h.readUntil("suggested_responses")
	if n := len(sugg["suggestions"].([]any)); n != 3 {
		t.Fatalf("initial suggestions = %d", n)
	}
	h.readUntil("init_audio_stream_start")
	h.readUntil("init_audio_stream_end")

	// Two regular turns.
	for turn := 1; turn <= 2; turn++ {
		h.sendAudioText(fmt.Sprintf("This is turn %d", turn))
		sttMsg := h.readUntil("stt_result")
		if sttMsg["text"] != fmt.Sprintf("This is turn %d", turn) {
			t.Fatalf("transcript = %v", sttMsg["text"])
		}
		tc := h.readUntil("turn_count_update")
		if int(tc["turn_count"].(float64)) != turn || int(tc["max_turns"].(float64)) != 3 {
			t.Fatalf("turn %d update = %v", turn, tc)
		}
		reply := h.readUntil("llm_result")
		if reply["text"] != fmt.Sprintf("Reply to: This is turn %d", turn) {
			t.Fatalf("reply = %v", reply["text"])
		}
		h.readUntil("character_image")
		h.readUntil("audio_stream_start")
		if chunk := h.read(); chunk["type"] != "audio_chunk" {
			t.Fatalf("expected audio_chunk, got %v", chunk["type"])
		}
		h.readUntil("audio_stream_end")
		h.readUntil("suggested_responses")
	}

	// Final turn: the completion notice arrives after the reply text and
	// before the reply audio.
	h.sendAudioText("This is the last turn")
	var sawReply, sawCompleted bool
	for {
		msg := h.read()
		switch msg["type"] {
		case "llm_result":
			sawReply = true
		case "session_completed":
			if !sawReply {
				t.Fatalf("session_completed arrived before the reply text")
			}
			sawCompleted = true
			if int(msg["turn_count"].(float64)) != 3 {
				t.Fatalf("completed turn count = %v", msg["turn_count"])
			}
		case "audio_stream_start":
			if !sawCompleted {
				t.Fatalf("audio started before session_completed on final turn")
			}
		}
		if msg["type"] == "audio_stream_end" {
			break
		}
	}

	// Server closes after the grace delay.
	h.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := h.conn.ReadMessage(); err != nil {
			break
		}
	}
	<-h.done

	rec, err := h.store.GetSession(context.Background(), h.sess.ID())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !rec.Completed || rec.TurnCount != 3 {
		t.Fatalf("persisted session = %+v", rec)
	}
	if rec.Fingerprint != "fp-full" || rec.Difficulty != "beginner" {
		t.Fatalf("persisted setup = %+v", rec)
	}
	// In memory: greeting + 3 user turns + 3 replies, closing reply
	// included.
	if got := len(h.sess.HistorySnapshot()); got != 7 {
		t.Fatalf("history length = %d", got)
	}
	// The stored transcript was persisted before the closing reply was
	// generated and excludes it.
	var storedHistory []map[string]any
	if err := json.Unmarshal(rec.History, &storedHistory); err != nil {
		t.Fatalf("unmarshal stored history: %v", err)
	}
	if len(storedHistory) != 6 {
		t.Fatalf("stored history length = %d", len(storedHistory))
	}
	// Assessment was scheduled on the penultimate turn and joined before
	// the pipeline returned.
	if h.sess.OverallAssessment() == nil {
		t.Fatalf("overall assessment never attached")
	}
	if blocked, _ := h.store.HasEverCompleted(context.Background(), "fp-full"); !blocked {
		t.Fatalf("fingerprint not blocked after completion")
	}
}

func TestPipelineBlockedFingerprint(t *testing.T) {
	h := newHarness(t, 3)

	// Another session under this fingerprint already completed.
	h.store.CreateSession(context.Background(), store.SessionRecord{ID: "prior", CharacterID: "Subin", Fingerprint: "fp-used"})
	h.store.CompleteSession(context.Background(), "prior", nil, nil)

	h.send(map[string]string{"type": "init", "fingerprint": "fp-used"})
	msg := h.read()
	if msg["type"] != "blocked" {
		t.Fatalf("expected blocked, got %v", msg)
	}
	<-h.done
	if h.sess.TurnCount() != 0 {
		t.Fatalf("blocked session accepted turns")
	}
}

func TestPipelineLateFingerprintBlocked(t *testing.T) {
	h := newHarness(t, 3)

	// Another session under this fingerprint already completed.
	h.store.CreateSession(context.Background(), store.SessionRecord{ID: "prior", CharacterID: "Subin", Fingerprint: "fp-used"})
	h.store.CompleteSession(context.Background(), "prior", nil, nil)

	// Setup without a fingerprint is admitted.
	h.initSession("", "beginner")

	// The fingerprint arriving later still triggers the access check.
	h.send(map[string]string{"type": "init", "fingerprint": "fp-used"})
	msg := h.read()
	if msg["type"] != "blocked" {
		t.Fatalf("expected blocked, got %v", msg)
	}
	<-h.done
	if h.sess.TurnCount() != 0 {
		t.Fatalf("blocked session accepted turns")
	}
}

func TestPipelineLateFingerprintAdmitted(t *testing.T) {
	h := newHarness(t, 3)
	h.initSession("", "beginner")

	h.send(map[string]string{"type": "init", "fingerprint": "fp-late"})

	// The session stays usable and the fingerprint is persisted.
	h.sendAudioText("Hello there")
	tc := h.readUntil("turn_count_update")
	if int(tc["turn_count"].(float64)) != 1 {
		t.Fatalf("turn count = %v", tc["turn_count"])
	}

	rec, err := h.store.GetSession(context.Background(), h.sess.ID())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec.Fingerprint != "fp-late" {
		t.Fatalf("fingerprint = %q", rec.Fingerprint)
	}
}

func TestPipelineEmptyTranscript(t *testing.T) {
	h := newHarness(t, 3)
	h.initSession("fp-empty", "intermediate")

	h.sendAudioText("   ")
	msg := h.readUntil("error")
	if !strings.Contains(msg["message"].(string), "hear") {
		t.Fatalf("notice = %v", msg["message"])
	}
	if h.sess.TurnCount() != 0 {
		t.Fatalf("empty transcript counted a turn")
	}

	// The session stays usable.
	h.sendAudioText("A real sentence")
	tc := h.readUntil("turn_count_update")
	if int(tc["turn_count"].(float64)) != 1 {
		t.Fatalf("turn count = %v", tc["turn_count"])
	}
}

func TestPipelineAudioBeforeInit(t *testing.T) {
	h := newHarness(t, 3)

	h.sendAudioText("too eager")
	msg := h.read()
	if msg["type"] != "error" {
		t.Fatalf("expected error, got %v", msg)
	}
	if h.sess.TurnCount() != 0 {
		t.Fatalf("turn accepted before setup")
	}
}

func TestPipelinePingAndUnknown(t *testing.T) {
	h := newHarness(t, 3)

	h.send(map[string]string{"type": "ping"})
	if msg := h.read(); msg["type"] != "pong" {
		t.Fatalf("expected pong, got %v", msg)
	}

	h.send(map[string]string{"type": "video"})
	if msg := h.read(); msg["type"] != "error" {
		t.Fatalf("expected error for unknown type, got %v", msg)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	var cfg Config
	cfg.applyDefaults()
	if cfg.MaxTurns != 10 {
		t.Fatalf("default max turns = %d", cfg.MaxTurns)
	}
}
