package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- モック定義 ---

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"storage reachable", nil, http.StatusOK},
		{"storage unreachable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&mockPinger{
				pingFn: func(ctx context.Context) error {
					if _, ok := ctx.Deadline(); !ok {
						t.Error("ping context should have a deadline")
					}
					return tt.pingErr
				},
			})

			w := httptest.NewRecorder()
			h.Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
