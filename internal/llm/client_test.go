package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func chatServer(t *testing.T, check func(req openai.ChatCompletionRequest), status int, resp any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test
		if check != nil {
			check(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func completionResponse(content string, finish openai.FinishReason) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "test-id",
		Object: "chat.completion",
		Model:  "gpt-4o",
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: finish,
			},
		},
		Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/v1", "test-key", "gpt-4o", 0.3, 1500)
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.Model != "gpt-4o" {
		t.Errorf("NewClient() Model = %v, want gpt-4o", client.Model)
	}
	if client.MaxTokens != 1500 {
		t.Errorf("NewClient() MaxTokens = %v, want 1500", client.MaxTokens)
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	tests := []struct {
		name          string
		messages      []Message
		params        ChatParams
		check         func(t *testing.T, req openai.ChatCompletionRequest)
		status        int
		resp          any
		wantErr       bool
		wantText      string
		wantCompleted bool
	}{
		{
			name: "completed answer",
			messages: []Message{
				{Role: RoleSystem, Content: "Answer from context"},
				{Role: RoleUser, Content: "What is PESEL?"},
			},
			params: ChatParams{Model: "custom-model", MaxTokens: 100, Temperature: 0.7},
			check: func(t *testing.T, req openai.ChatCompletionRequest) {
				if len(req.Messages) != 2 {
					t.Errorf("expected 2 messages, got %d", len(req.Messages))
				}
				if req.Model != "custom-model" {
					t.Errorf("expected model custom-model, got %s", req.Model)
				}
				if req.MaxTokens != 100 {
					t.Errorf("expected max tokens 100, got %d", req.MaxTokens)
				}
			},
			status:        http.StatusOK,
			resp:          completionResponse("PESEL is a number [1].", openai.FinishReasonStop),
			wantText:      "PESEL is a number [1].",
			wantCompleted: true,
		},
		{
			name:     "defaults from client",
			messages: []Message{{Role: RoleUser, Content: "Hello"}},
			check: func(t *testing.T, req openai.ChatCompletionRequest) {
				if req.Model != "gpt-4o" {
					t.Errorf("expected model gpt-4o, got %s", req.Model)
				}
				if req.MaxTokens != 1500 {
					t.Errorf("expected max tokens 1500, got %d", req.MaxTokens)
				}
			},
			status:   http.StatusOK,
			resp:     completionResponse("Hi", openai.FinishReasonStop),
			wantText: "Hi", wantCompleted: true,
		},
		{
			name:          "truncated answer",
			messages:      []Message{{Role: RoleUser, Content: "Hello"}},
			status:        http.StatusOK,
			resp:          completionResponse("A long answer that was cut", openai.FinishReasonLength),
			wantText:      "A long answer that was cut",
			wantCompleted: false,
		},
		{
			name:     "no choices",
			messages: []Message{{Role: RoleUser, Content: "Hello"}},
			status:   http.StatusOK,
			resp:     openai.ChatCompletionResponse{ID: "test-id"},
			wantErr:  true,
		},
		{
			name:     "no messages",
			messages: nil,
			status:   http.StatusOK,
			resp:     completionResponse("unused", openai.FinishReasonStop),
			wantErr:  true,
		},
		{
			name:     "server error",
			messages: []Message{{Role: RoleUser, Content: "Hello"}},
			status:   http.StatusInternalServerError,
			resp:     map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, func(req openai.ChatCompletionRequest) {
				if tt.check != nil {
					tt.check(t, req)
				}
			}, tt.status, tt.resp)
			defer server.Close()

			client := NewClient(server.URL+"/v1", "test-key", "gpt-4o", 0.3, 1500)
			got, err := client.ChatWithMessages(context.Background(), tt.messages, tt.params)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ChatWithMessages() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ChatWithMessages() error = %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("ChatWithMessages() text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Completed() != tt.wantCompleted {
				t.Errorf("ChatWithMessages() completed = %v, want %v (finish_reason %q)", got.Completed(), tt.wantCompleted, got.FinishReason)
			}
		})
	}
}

func TestClient_ChatWithMessages_ReportsUsage(t *testing.T) {
	server := chatServer(t, nil, http.StatusOK, completionResponse("ok", openai.FinishReasonStop))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "test-key", "gpt-4o", 0.3, 1500)
	got, err := client.ChatWithMessages(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if got.PromptTokens != 120 || got.CompletionTokens != 30 {
		t.Errorf("usage = %d/%d, want 120/30", got.PromptTokens, got.CompletionTokens)
	}
	if got.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", got.Model)
	}
}

func TestClient_CheckModel(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr bool
	}{
		{name: "model served", status: http.StatusOK, body: openai.Model{ID: "gpt-4o", Object: "model"}},
		{name: "model missing", status: http.StatusNotFound, body: map[string]any{"error": map[string]any{"message": "not found"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models/gpt-4o" {
					t.Errorf("expected /v1/models/gpt-4o, got %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL+"/v1", "test-key", "gpt-4o", 0.3, 1500)
			err := client.CheckModel(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckModel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: true},
		{name: "server error", status: http.StatusBadGateway, want: true},
		{name: "bad request", status: http.StatusBadRequest, want: false},
		{name: "unauthorized", status: http.StatusUnauthorized, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, nil, tt.status, map[string]any{"error": map[string]any{"message": "nope", "type": "test"}})
			defer server.Close()

			client := NewClient(server.URL+"/v1", "test-key", "gpt-4o", 0.3, 1500)
			_, err := client.ChatWithMessages(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, ChatParams{})
			if err == nil {
				t.Fatal("ChatWithMessages() expected error, got nil")
			}
			if got := IsTransient(err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}

	if IsTransient(nil) {
		t.Error("IsTransient(nil) = true, want false")
	}
	if IsTransient(context.Canceled) {
		t.Error("IsTransient(context.Canceled) = true, want false")
	}
}
