package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentstation/anchor"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": %q}
  }],
  "usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
}`

type captured struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, body string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	b, _ := json.Marshal(content)
	return strings.Replace(completionJSON, "%q", string(b), 1)
}

func TestChat(t *testing.T) {
	var req captured
	srv := newServer(t, http.StatusOK, completion("Hello there"), &req)

	chat := New("gpt-4o-mini",
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL+"/v1/"),
		WithSystemPrompt("be brief"),
		WithMaxRetries(0),
	)

	got, err := chat.Process(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got != "Hello there" {
		t.Errorf("Process() = %q", got)
	}
	if req.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q", req.Model)
	}
	roles := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		roles = append(roles, m.Role+":"+m.Content)
	}
	if diff := cmp.Diff([]string{"system:be brief", "user:hi"}, roles); diff != "" {
		t.Errorf("request messages mismatch (-want +got):\n%s", diff)
	}
	if chat.Name() != "gpt-4o-mini" {
		t.Errorf("Name() = %q", chat.Name())
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			anchor.ErrOpenAI},
		{"empty content", http.StatusOK, completion(""), anchor.ErrEmptyResponse},
		{"no choices", http.StatusOK,
			`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`,
			anchor.ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			chat := New("", WithAPIKey("k"), WithBaseURL(srv.URL+"/v1/"), WithMaxRetries(0))

			_, err := chat.Process(context.Background(), "hi")
			if !errors.Is(err, tt.want) {
				t.Errorf("Process() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChatTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	chat := New("m", WithAPIKey("k"), WithBaseURL(url+"/v1/"), WithMaxRetries(0))
	_, err := chat.Process(context.Background(), "hi")
	if !errors.Is(err, anchor.ErrHTTP) {
		t.Errorf("Process() error = %v, want http error", err)
	}
}

func TestChatInChain(t *testing.T) {
	srv := newServer(t, http.StatusOK, completion("42"), nil)
	chat := New("m", WithName("answer"), WithAPIKey("k"), WithBaseURL(srv.URL+"/v1/"))

	chain := anchor.Then(anchor.NewBuilder[string, string](anchor.Passthrough[string]{}), anchor.Node[string, string](chat)).Build()
	got, err := chain.Process(context.Background(), "question")
	if err != nil || got != "42" {
		t.Errorf("Process() = %q, %v", got, err)
	}
	if diff := cmp.Diff([]string{"passthrough", "answer"}, chain.Stages()); diff != "" {
		t.Errorf("Stages() mismatch (-want +got):\n%s", diff)
	}
}
