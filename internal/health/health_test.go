// Copyright 2025 Soporte AVI Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestManager_Check(t *testing.T) {
	manager := NewManager("soporte-avi", "1.0.0", zap.NewNop())

	manager.AddCheckerFunc("healthy", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Timestamp: time.Now()}
	})
	manager.AddCheckerFunc("unhealthy", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: "service is down", Timestamp: time.Now()}
	})

	result := manager.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}
	if result.Service != "soporte-avi" {
		t.Errorf("Expected service to be soporte-avi, got %s", result.Service)
	}
	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
	if result.Dependencies["unhealthy"].Error != "service is down" {
		t.Errorf("Expected dependency error to be preserved, got %q", result.Dependencies["unhealthy"].Error)
	}
}

func TestManager_AllHealthy(t *testing.T) {
	manager := NewManager("soporte-avi", "1.0.0", zap.NewNop())
	manager.AddCheckerFunc("one", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	manager.AddCheckerFunc("two", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	result := manager.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", result.Status)
	}
}

func TestHTTPHandler(t *testing.T) {
	manager := NewManager("soporte-avi", "1.0.0", zap.NewNop())
	manager.AddCheckerFunc("db", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HTTPHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("Expected healthy response, got %s", resp.Status)
	}
}

func TestHTTPHandler_Unhealthy(t *testing.T) {
	manager := NewManager("soporte-avi", "1.0.0", zap.NewNop())
	manager.AddCheckerFunc("db", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: "down"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HTTPHandler()(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	manager := NewManager("soporte-avi", "1.0.0", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HTTPHandler()(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestDatabaseHealthChecker(t *testing.T) {
	ok := DatabaseHealthChecker("indices", func(ctx context.Context) error { return nil })
	if result := ok.Check(context.Background()); result.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", result.Status)
	}

	bad := DatabaseHealthChecker("indices", func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	result := bad.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", result.Status)
	}
	if result.Error == "" {
		t.Error("Expected error message to be set")
	}
}

func TestReadinessChecker(t *testing.T) {
	ready := ReadinessChecker(func() bool { return true })
	if result := ready.Check(context.Background()); result.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", result.Status)
	}

	notReady := ReadinessChecker(func() bool { return false })
	result := notReady.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", result.Status)
	}
}
