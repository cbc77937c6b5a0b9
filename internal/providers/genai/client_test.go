package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPartInlineResolvesEitherCasing(t *testing.T) {
	camel := Part{InlineData: &InlineData{Data: "camel"}}
	snake := Part{InlineDataSnake: &InlineData{Data: "snake"}}
	empty := Part{Text: "just text"}

	if got := camel.Inline(); got == nil || got.Data != "camel" {
		t.Fatalf("camelCase inline = %#v", got)
	}
	if got := snake.Inline(); got == nil || got.Data != "snake" {
		t.Fatalf("snake_case inline = %#v", got)
	}
	if empty.Inline() != nil {
		t.Fatalf("text part should have no inline data")
	}
}

func TestPartInlineDecodesResponseCasings(t *testing.T) {
	for _, raw := range []string{
		`{"inlineData":{"mimeType":"image/png","data":"abc"}}`,
		`{"inline_data":{"mime_type":"image/png","data":"abc"}}`,
	} {
		var part Part
		if err := json.Unmarshal([]byte(raw), &part); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if inline := part.Inline(); inline == nil || inline.Data != "abc" {
			t.Fatalf("inline from %s = %#v", raw, part)
		}
	}
}

func TestGenerateContentSendsAPIKeyAndModel(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "secret", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	response, err := client.GenerateContent(context.Background(), "test-model", GenerateContentRequest{
		Contents: []Content{{Parts: []Part{TextPart("hello")}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/models/test-model:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("key = %q, want secret", gotKey)
	}
	if len(response.Candidates) != 1 || response.Candidates[0].TextOutput() != "ok" {
		t.Fatalf("unexpected response: %#v", response)
	}
}

func TestGenerateContentSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"invalid argument"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GenerateContent(context.Background(), "test-model", GenerateContentRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "invalid argument") {
		t.Fatalf("error should carry the API message, got %v", err)
	}
}

func TestCandidateTextOutputConcatenatesParts(t *testing.T) {
	candidate := Candidate{Content: Content{Parts: []Part{
		TextPart("hello "),
		{InlineData: &InlineData{Data: "ignored"}},
		TextPart("world"),
	}}}
	if got := candidate.TextOutput(); got != "hello world" {
		t.Fatalf("text output = %q", got)
	}
}
