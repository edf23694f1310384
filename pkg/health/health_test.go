package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
		code   int
	}{
		{"all up", map[string]Check{
			"corpus": PingCheck(func(context.Context) error { return nil }, false),
		}, StatusUp, http.StatusOK},
		{"optional down", map[string]Check{
			"corpus": PingCheck(func(context.Context) error { return nil }, false),
			"redis":  PingCheck(func(context.Context) error { return errors.New("refused") }, true),
		}, StatusDegraded, http.StatusOK},
		{"required down", map[string]Check{
			"redis":     PingCheck(func(context.Context) error { return errors.New("refused") }, true),
			"searchlog": PingCheck(func(context.Context) error { return errors.New("locked") }, false),
		}, StatusDown, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %v", report.Components)
			}

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.code {
				t.Errorf("ready code = %d, want %d", rec.Code, tt.code)
			}
			var decoded Report
			if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil || decoded.Status != tt.want {
				t.Errorf("ready body = %+v, %v", decoded, err)
			}
		})
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
