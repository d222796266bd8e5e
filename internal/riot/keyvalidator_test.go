package riot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestKeyValidatorCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus KeyStatus
		wantErr    bool
	}{
		{name: "ok", status: http.StatusOK, wantStatus: KeyValid},
		{name: "forbidden", status: http.StatusForbidden, wantStatus: KeyRejected},
		{name: "unauthorized", status: http.StatusUnauthorized, wantStatus: KeyRejected},
		{name: "server error", status: http.StatusInternalServerError, wantStatus: KeyUnknown, wantErr: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantStatus: KeyUnknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != statusEndpoint {
					t.Errorf("path = %q, want %q", r.URL.Path, statusEndpoint)
				}
				if got := r.Header.Get("X-Riot-Token"); got != "RGAPI-test-key" {
					t.Errorf("X-Riot-Token = %q", got)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			v := NewKeyValidator(WithPlatformURL(server.URL))
			status, err := v.Check(context.Background(), "RGAPI-test-key")

			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeyValidatorCheck_EmptyKey(t *testing.T) {
	status, err := NewKeyValidator().Check(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty key")
	}
	if status != KeyUnknown {
		t.Errorf("status = %v, want unknown", status)
	}
}

func TestKeyValidatorCheck_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer server.Close()

	status, err := NewKeyValidator(WithPlatformURL(server.URL)).Check(context.Background(), "RGAPI-test-key")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
	if status != KeyUnknown {
		t.Errorf("status = %v, want unknown", status)
	}
}

func TestKeyValidatorCheck_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	v := NewKeyValidator(WithPlatformURL(server.URL), WithValidationTimeout(50*time.Millisecond))
	status, err := v.Check(context.Background(), "RGAPI-test-key")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if status == KeyValid {
		t.Error("timed out check must not report a valid key")
	}
}
