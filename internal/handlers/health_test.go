package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"legal-assistant/internal/metrics"
	"legal-assistant/internal/service"
	"legal-assistant/internal/service/mocks"

	"go.uber.org/mock/gomock"
)

func TestHealthHandler_Live(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewHealthHandler(mocks.NewMockHealthService(ctrl), "/api/v1")

	w := httptest.NewRecorder()
	handler.Live(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Live() status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Version != Version {
		t.Errorf("Live() = %+v", resp)
	}
}

func TestHealthHandler_Chat(t *testing.T) {
	tests := []struct {
		name       string
		report     service.HealthReport
		wantStatus int
		wantText   string
	}{
		{
			name:       "healthy",
			report:     service.HealthReport{RetrievalService: true, LLMService: true, OverallHealthy: true, IndexedChunks: 10},
			wantStatus: http.StatusOK,
			wantText:   "healthy",
		},
		{
			name:       "vector store down",
			report:     service.HealthReport{LLMService: true, Errors: []string{"retrieval service: refused"}},
			wantStatus: http.StatusServiceUnavailable,
			wantText:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			health := mocks.NewMockHealthService(ctrl)
			health.EXPECT().Check(gomock.Any()).Return(tt.report)

			handler := NewHealthHandler(health, "/api/v1")
			w := httptest.NewRecorder()
			handler.Chat(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Chat() status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ChatHealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantText {
				t.Errorf("Chat() status text = %q, want %q", resp.Status, tt.wantText)
			}
			if resp.Checks.IndexedChunks != tt.report.IndexedChunks {
				t.Errorf("Chat() checks = %+v, want %+v", resp.Checks, tt.report)
			}
		})
	}
}

func TestHealthHandler_Info(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewHealthHandler(mocks.NewMockHealthService(ctrl), "/api/v1")

	w := httptest.NewRecorder()
	handler.Info(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Endpoints["chat"] != "POST /api/v1/chat" {
		t.Errorf("Info() chat endpoint = %q", resp.Endpoints["chat"])
	}
}

func TestMetricsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockMetricsService(ctrl)

	before := metrics.Snapshot{TotalQueries: 7, ResponseRate: 0.857}
	svc.EXPECT().Snapshot(gomock.Any()).Return(before)
	svc.EXPECT().Reset(gomock.Any()).Return(before)

	handler := NewMetricsHandler(svc)

	for _, tc := range []struct {
		name    string
		method  string
		handler http.HandlerFunc
	}{
		{name: "get", method: http.MethodGet, handler: handler.Get},
		{name: "reset", method: http.MethodPost, handler: handler.Reset},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.handler(w, httptest.NewRequest(tc.method, "/api/v1/metrics", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var got metrics.Snapshot
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.TotalQueries != 7 || got.ResponseRate != 0.857 {
				t.Errorf("snapshot = %+v, want %+v", got, before)
			}
		})
	}
}
