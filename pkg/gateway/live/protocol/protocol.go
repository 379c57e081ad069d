// Package protocol defines the JSON messages exchanged over a conversation
// websocket. Client messages decode into a tagged union; server messages are
// plain structs that carry their own type tag.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DecodeError describes a client message the server refused to act on.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("protocol: %s: %s (%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("protocol: %s: %s", e.Code, e.Message)
}

// Client message types.
const (
	TypeInit  = "init"
	TypeAudio = "audio"
	TypePing  = "ping"
)

// Init carries the browser fingerprint and chosen difficulty. Both fields
// are optional on the wire.
type Init struct {
	Fingerprint string
	Difficulty  string
}

// Audio is one complete recorded utterance.
type Audio struct {
	Data []byte
}

// Ping is a keepalive.
type Ping struct{}

// DecodeClientMessage parses one client frame. The returned value is *Init,
// *Audio, or *Ping; anything else fails with a *DecodeError.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type        string `json:"type"`
		Fingerprint string `json:"fingerprint"`
		Difficulty  string `json:"difficulty"`
		Audio       string `json:"audio"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &DecodeError{Code: "bad_json", Message: "message is not valid JSON"}
	}
	switch envelope.Type {
	case TypeInit:
		return &Init{Fingerprint: envelope.Fingerprint, Difficulty: envelope.Difficulty}, nil
	case TypeAudio:
		if envelope.Audio == "" {
			return nil, &DecodeError{Code: "missing_param", Message: "audio payload required", Param: "audio"}
		}
		raw, err := base64.StdEncoding.DecodeString(envelope.Audio)
		if err != nil {
			return nil, &DecodeError{Code: "bad_param", Message: "audio payload is not valid base64", Param: "audio"}
		}
		return &Audio{Data: raw}, nil
	case TypePing:
		return &Ping{}, nil
	case "":
		return nil, &DecodeError{Code: "missing_param", Message: "message type required", Param: "type"}
	default:
		return nil, &DecodeError{Code: "unknown_type", Message: "unsupported message type", Param: envelope.Type}
	}
}

// Server messages. Each constructor fills in the type tag so callers can
// hand the struct straight to the websocket JSON writer.

type Connected struct {
	Type              string `json:"type"`
	CharacterID       string `json:"character_id"`
	CharacterName     string `json:"character_name"`
	SessionID         string `json:"session_id"`
	MaxTurns          int    `json:"max_turns"`
	InitMessage       string `json:"init_message"`
	RequestDifficulty bool   `json:"request_difficulty"`
}

func NewConnected(characterID, characterName, sessionID string, maxTurns int, initMessage string) Connected {
	return Connected{
		Type:              "connected",
		CharacterID:       characterID,
		CharacterName:     characterName,
		SessionID:         sessionID,
		MaxTurns:          maxTurns,
		InitMessage:       initMessage,
		RequestDifficulty: true,
	}
}

type Blocked struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewBlocked(message string) Blocked {
	return Blocked{Type: "blocked", Message: message}
}

type Status struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewStatus(message string) Status {
	return Status{Type: "status", Message: message}
}

type STTResult struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewSTTResult(text string) STTResult {
	return STTResult{Type: "stt_result", Text: text}
}

type TurnCountUpdate struct {
	Type      string `json:"type"`
	TurnCount int    `json:"turn_count"`
	MaxTurns  int    `json:"max_turns"`
}

func NewTurnCountUpdate(turnCount, maxTurns int) TurnCountUpdate {
	return TurnCountUpdate{Type: "turn_count_update", TurnCount: turnCount, MaxTurns: maxTurns}
}

type LLMResult struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewLLMResult(text string) LLMResult {
	return LLMResult{Type: "llm_result", Text: text}
}

type CharacterImage struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	Emotion  string `json:"emotion"`
}

func NewCharacterImage(imageURL, emotion string) CharacterImage {
	return CharacterImage{Type: "character_image", ImageURL: imageURL, Emotion: emotion}
}

type AudioStreamStart struct {
	Type string `json:"type"`
}

func NewAudioStreamStart() AudioStreamStart {
	return AudioStreamStart{Type: "audio_stream_start"}
}

type AudioChunk struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func NewAudioChunk(chunk []byte) AudioChunk {
	return AudioChunk{Type: "audio_chunk", Data: base64.StdEncoding.EncodeToString(chunk)}
}

type AudioStreamEnd struct {
	Type string `json:"type"`
}

func NewAudioStreamEnd() AudioStreamEnd {
	return AudioStreamEnd{Type: "audio_stream_end"}
}

type InitAudioStreamStart struct {
	Type string `json:"type"`
}

func NewInitAudioStreamStart() InitAudioStreamStart {
	return InitAudioStreamStart{Type: "init_audio_stream_start"}
}

type InitAudioChunk struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func NewInitAudioChunk(chunk []byte) InitAudioChunk {
	return InitAudioChunk{Type: "init_audio_chunk", Data: base64.StdEncoding.EncodeToString(chunk)}
}

type InitAudioStreamEnd struct {
	Type string `json:"type"`
}

func NewInitAudioStreamEnd() InitAudioStreamEnd {
	return InitAudioStreamEnd{Type: "init_audio_stream_end"}
}

type SuggestedResponses struct {
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions"`
}

func NewSuggestedResponses(suggestions []string) SuggestedResponses {
	return SuggestedResponses{Type: "suggested_responses", Suggestions: suggestions}
}

type SessionCompleted struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	TurnCount int    `json:"turn_count"`
	Message   string `json:"message"`
}

func NewSessionCompleted(sessionID string, turnCount int, message string) SessionCompleted {
	return SessionCompleted{Type: "session_completed", SessionID: sessionID, TurnCount: turnCount, Message: message}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}

type Pong struct {
	Type string `json:"type"`
}

func NewPong() Pong {
	return Pong{Type: "pong"}
}
