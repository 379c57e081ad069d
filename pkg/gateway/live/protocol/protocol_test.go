package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeInit(t *testing.T) {
	t.Parallel()

	msg, err := DecodeClientMessage([]byte(`{"type":"init","fingerprint":"fp-1","difficulty":"beginner"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	init, ok := msg.(*Init)
	if !ok {
		t.Fatalf("message type = %T", msg)
	}
	if init.Fingerprint != "fp-1" || init.Difficulty != "beginner" {
		t.Fatalf("init = %+v", init)
	}
}

func TestDecodeInitOptionalFields(t *testing.T) {
	t.Parallel()

	msg, err := DecodeClientMessage([]byte(`{"type":"init"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	init := msg.(*Init)
	if init.Fingerprint != "" || init.Difficulty != "" {
		t.Fatalf("init = %+v", init)
	}
}

func TestDecodeAudio(t *testing.T) {
	t.Parallel()

	payload := base64.StdEncoding.EncodeToString([]byte("opus-bytes"))
	msg, err := DecodeClientMessage([]byte(`{"type":"audio","audio":"` + payload + `"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	audio := msg.(*Audio)
	if string(audio.Data) != "opus-bytes" {
		t.Fatalf("audio = %q", audio.Data)
	}
}

func TestDecodePing(t *testing.T) {
	t.Parallel()

	msg, err := DecodeClientMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := msg.(*Ping); !ok {
		t.Fatalf("message type = %T", msg)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
		code string
	}{
		{"not json", `{{{`, "bad_json"},
		{"missing type", `{"audio":"aGk="}`, "missing_param"},
		{"unknown type", `{"type":"video"}`, "unknown_type"},
		{"audio without payload", `{"type":"audio"}`, "missing_param"},
		{"audio bad base64", `{"type":"audio","audio":"***"}`, "bad_param"},
	}
	for _, tc := range cases {
		_, err := DecodeClientMessage([]byte(tc.data))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("%s: err = %T", tc.name, err)
		}
		if decodeErr.Code != tc.code {
			t.Fatalf("%s: code = %q, want %q", tc.name, decodeErr.Code, tc.code)
		}
	}
}

func TestServerMessageWireShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewConnected("jihoon", "지훈", "sess-1", 10, "Hi!"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"type", "character_id", "character_name", "session_id", "max_turns", "init_message", "request_difficulty"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("connected missing %q: %v", key, decoded)
		}
	}
	if decoded["type"] != "connected" || decoded["request_difficulty"] != true {
		t.Fatalf("connected = %v", decoded)
	}

	chunk, _ := json.Marshal(NewAudioChunk([]byte{1, 2, 3}))
	var c map[string]string
	json.Unmarshal(chunk, &c)
	if c["type"] != "audio_chunk" {
		t.Fatalf("chunk type = %q", c["type"])
	}
	raw, err := base64.StdEncoding.DecodeString(c["data"])
	if err != nil || len(raw) != 3 {
		t.Fatalf("chunk payload = %q", c["data"])
	}
}
