package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recruithub/internal/candidate"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced with tag", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without tag", "```\n[1, 2]\n```", `[1, 2]`},
		{"bare object", `prefix {"a": 1} suffix`, `{"a": 1}`},
		{"bare array", `the list is [1, 2, 3] ok`, `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONMalformed(t *testing.T) {
	for _, in := range []string{
		"no json here at all",
		"```json\n{broken\n```",
	} {
		if _, err := extractJSON(in); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("extract %q: err = %v, want ErrMalformedReply", in, err)
		}
	}
}

func TestDataURIPayload(t *testing.T) {
	payload, ok := dataURIPayload("data:application/pdf;base64,AAAA")
	if !ok || payload != "AAAA" {
		t.Fatalf("payload = %q ok = %v", payload, ok)
	}
	if _, ok := dataURIPayload("just text"); ok {
		t.Fatal("non data URI accepted")
	}
}

// activeTestProvider 在存储里放一个激活的供应商并返回配套的客户端。
func activeTestProvider(t *testing.T, name, baseURL string) *Client {
	t.Helper()
	store := NewProviderStore(newTestDB(t))
	p := sampleProvider(name)
	p.BaseURL = baseURL
	if _, err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return NewClient(store, 5*time.Second, nil)
}

func openAIReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-1234" {
			t.Errorf("authorization = %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestMatchCandidatesRanksAndCaps(t *testing.T) {
	scored := `[
		{"id": "c2", "matchScore": 70, "matchReason": "ok"},
		{"id": "ghost", "matchScore": 99, "matchReason": "invented"},
		{"id": "c1", "matchScore": 90, "matchReason": "great"},
		{"id": "c3", "matchScore": 80, "matchReason": "good"},
		{"id": "c4", "matchScore": 60, "matchReason": "fine"},
		{"id": "c5", "matchScore": 50, "matchReason": "meh"},
		{"id": "c6", "matchScore": 40, "matchReason": "weak"}
	]`
	server := httptest.NewServer(openAIReply(t, scored))
	defer server.Close()

	client := activeTestProvider(t, "OpenAI", server.URL)

	candidates := make([]candidate.Candidate, 0, 6)
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5", "c6"} {
		candidates = append(candidates, candidate.Candidate{ID: id, Name: "Candidate " + id})
	}

	results, err := client.MatchCandidates(context.Background(), "Go developer", candidates)
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	if len(results) != 5 {
		t.Fatalf("len = %d, want capped at 5", len(results))
	}
	gotIDs := make([]string, 0, len(results))
	for _, r := range results {
		gotIDs = append(gotIDs, r.ID)
	}
	want := []string{"c1", "c3", "c2", "c4", "c5"}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("order = %v, want %v (ghost dropped, sorted by score)", gotIDs, want)
		}
	}
	if results[0].Name != "Candidate c1" {
		t.Fatalf("result not joined with full candidate: %+v", results[0])
	}
}

func TestMatchCandidatesMalformedReply(t *testing.T) {
	server := httptest.NewServer(openAIReply(t, "sorry, I cannot do that"))
	defer server.Close()

	client := activeTestProvider(t, "OpenAI", server.URL)
	if _, err := client.MatchCandidates(context.Background(), "job", nil); !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("err = %v, want ErrMalformedReply", err)
	}
}

func TestMatchCandidatesProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer server.Close()

	client := activeTestProvider(t, "OpenAI", server.URL)
	_, err := client.MatchCandidates(context.Background(), "job", nil)

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if provErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d", provErr.Status)
	}
}

func TestParseResumeRequiresGemini(t *testing.T) {
	client := activeTestProvider(t, "OpenAI", "")

	_, err := client.ParseResume(context.Background(), candidate.OriginalResume{
		Name:    "cv.pdf",
		Type:    "application/pdf",
		Content: "data:application/pdf;base64,AAAA",
	})
	if !errors.Is(err, ErrParseUnsupported) {
		t.Fatalf("err = %v, want ErrParseUnsupported", err)
	}
}

func TestParseResumeGemini(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": `{"name": "Alice", "confidenceScores": {"name": 0.9}}`}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := activeTestProvider(t, ProviderGemini, server.URL)

	raw, err := client.ParseResume(context.Background(), candidate.OriginalResume{
		Name:    "cv.pdf",
		Type:    "application/pdf",
		Content: "data:application/pdf;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if gotPath != "/model-a:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "sk-test-1234" {
		t.Fatalf("api key header = %q", gotKey)
	}

	var parsed struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Name != "Alice" {
		t.Fatalf("name = %q", parsed.Name)
	}
}

func TestParseResumeRejectsNonDataURI(t *testing.T) {
	client := activeTestProvider(t, ProviderGemini, "")

	_, err := client.ParseResume(context.Background(), candidate.OriginalResume{
		Name:    "cv.pdf",
		Type:    "application/pdf",
		Content: "plain text",
	})
	if err == nil {
		t.Fatal("expected error for non data URI content")
	}
}

func TestGenerateInterviewQuestions(t *testing.T) {
	content := "```json\n{\"technical\": [\"Q1\"], \"behavioral\": [\"Q2\"], \"situational\": [\"Q3\"]}\n```"
	server := httptest.NewServer(openAIReply(t, content))
	defer server.Close()

	client := activeTestProvider(t, "OpenAI", server.URL)

	questions, err := client.GenerateInterviewQuestions(context.Background(), candidate.Candidate{
		ID:   "c1",
		Name: "Alice",
	}, "Go developer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions.Technical) != 1 || questions.Technical[0] != "Q1" {
		t.Fatalf("technical = %v", questions.Technical)
	}
	if len(questions.Behavioral) != 1 || len(questions.Situational) != 1 {
		t.Fatalf("questions = %+v", questions)
	}
}

func TestNoActiveProvider(t *testing.T) {
	client := NewClient(NewProviderStore(newTestDB(t)), time.Second, nil)

	if _, err := client.MatchCandidates(context.Background(), "job", nil); !errors.Is(err, ErrNoActiveProvider) {
		t.Fatalf("err = %v, want ErrNoActiveProvider", err)
	}
}
