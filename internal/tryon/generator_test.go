package tryon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"tryon/internal/infra"
	"tryon/internal/providers/genai"
)

var testPersonRef = base64.StdEncoding.EncodeToString([]byte("person"))
var testGarmentRef = base64.StdEncoding.EncodeToString([]byte("garment-1"))
var testGarment2Ref = base64.StdEncoding.EncodeToString([]byte("garment-2"))

func discardLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

type capturedRequest struct {
	Contents []struct {
		Parts []map[string]json.RawMessage `json:"parts"`
	} `json:"contents"`
}

func newGeneratorFixture(t *testing.T, handler http.HandlerFunc) (*Generator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := genai.NewClient(genai.Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewGenerator(client, "image-model", discardLogger()), server
}

func generationResponse(data string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/jpeg","data":"` + data + `"}}]}}]}`
}

func TestGenerateRejectsInvalidGarmentCount(t *testing.T) {
	calls := 0
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for _, garments := range [][]string{nil, {}, {testGarmentRef, testGarment2Ref, testGarmentRef}} {
		if _, err := generator.Generate(context.Background(), testPersonRef, garments); !errors.Is(err, ErrInvalidGarmentCount) {
			t.Fatalf("garments=%d: error = %v, want ErrInvalidGarmentCount", len(garments), err)
		}
	}
	if calls != 0 {
		t.Fatalf("no network calls expected, got %d", calls)
	}
}

func TestGenerateOrdersPartsGarmentsFirst(t *testing.T) {
	result := base64.StdEncoding.EncodeToString([]byte("result"))
	var captured capturedRequest
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(generationResponse(result)))
	})

	got, err := generator.Generate(context.Background(), testPersonRef, []string{testGarmentRef, testGarment2Ref})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != result {
		t.Fatalf("payload = %q, want %q", got, result)
	}

	if len(captured.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(captured.Contents))
	}
	parts := captured.Contents[0].Parts
	if len(parts) != 4 {
		t.Fatalf("parts = %d, want garments+person+instruction", len(parts))
	}
	for i := 0; i < 3; i++ {
		if _, ok := parts[i]["inline_data"]; !ok {
			t.Fatalf("part %d should be an image part: %v", i, parts[i])
		}
	}
	var instruction string
	if err := json.Unmarshal(parts[3]["text"], &instruction); err != nil {
		t.Fatalf("final part should be the instruction text: %v", parts[3])
	}
	if instruction != generationInstruction(2) {
		t.Fatalf("instruction should use the two-garment wording")
	}
}

func TestGenerateInstructionVariesWithGarmentCount(t *testing.T) {
	if generationInstruction(1) == generationInstruction(2) {
		t.Fatalf("single and dual garment instructions must differ")
	}
}

func TestGenerateAcceptsSnakeCaseInlineData(t *testing.T) {
	result := base64.StdEncoding.EncodeToString([]byte("result"))
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inline_data":{"mime_type":"image/jpeg","data":"` + result + `"}}]}}]}`))
	})

	got, err := generator.Generate(context.Background(), testPersonRef, []string{testGarmentRef})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != result {
		t.Fatalf("payload = %q, want %q", got, result)
	}
}

func TestGenerateFailsOnEmptyCandidates(t *testing.T) {
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	if _, err := generator.Generate(context.Background(), testPersonRef, []string{testGarmentRef}); !errors.Is(err, ErrEmptyCandidates) {
		t.Fatalf("error = %v, want ErrEmptyCandidates", err)
	}
}

func TestGenerateFailsWhenNoImageReturned(t *testing.T) {
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, no image"}]}}]}`))
	})

	if _, err := generator.Generate(context.Background(), testPersonRef, []string{testGarmentRef}); !errors.Is(err, ErrNoImageInResponse) {
		t.Fatalf("error = %v, want ErrNoImageInResponse", err)
	}
}

func TestGenerateWrapsRemoteFailure(t *testing.T) {
	generator, _ := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := generator.Generate(context.Background(), testPersonRef, []string{testGarmentRef}); err == nil {
		t.Fatalf("expected error on remote failure")
	}
}
