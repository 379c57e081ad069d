package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech-to-text" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "key123" {
			t.Errorf("xi-api-key = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("model_id = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename != "audio.webm" {
				t.Errorf("filename = %q", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hello there"})
	}))
	defer srv.Close()

	client, err := NewElevenLabs(ElevenLabsConfig{APIKey: "key123", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	text, err := client.Transcribe(context.Background(), []byte("fake-webm"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewElevenLabs(ElevenLabsConfig{APIKey: "key123", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	_, err = client.Transcribe(context.Background(), []byte("x"))
	if err == nil {
		t.Fatalf("expected error on 429")
	}
	tr, ok := err.(interface{ Transient() bool })
	if !ok || !tr.Transient() {
		t.Fatalf("429 should be transient, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestTranscribeBadRequestNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewElevenLabs(ElevenLabsConfig{APIKey: "key123", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	_, err = client.Transcribe(context.Background(), []byte("x"))
	if err == nil {
		t.Fatalf("expected error on 400")
	}
	if tr, ok := err.(interface{ Transient() bool }); ok && tr.Transient() {
		t.Fatalf("400 must not be transient")
	}
}

func TestTranscribeTransportErrorTransient(t *testing.T) {
	client, err := NewElevenLabs(ElevenLabsConfig{APIKey: "key123", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	_, err = client.Transcribe(context.Background(), []byte("x"))
	if err == nil {
		t.Fatalf("expected connection error")
	}
	tr, ok := err.(interface{ Transient() bool })
	if !ok || !tr.Transient() {
		t.Fatalf("transport error should be transient, got %v", err)
	}
}
