package otp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/store"
)

type memCodes struct {
	mu    sync.Mutex
	codes map[phone.Number]string
}

func (m *memCodes) Save(_ context.Context, p phone.Number, code, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[phone.Number]string{}
	}
	m.codes[p] = code
	return nil
}

func (m *memCodes) Verify(_ context.Context, p phone.Number, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes[p] != code {
		return "", store.ErrOTPInvalid
	}
	delete(m.codes, p)
	return "", nil
}

func TestService_SendThroughGateway(t *testing.T) {
	var got sendVerificationReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendVerificationMessage" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"request_id":"r-42"}}`))
	}))
	defer srv.Close()

	codes := &memCodes{}
	svc := NewService(codes, NewGatewayClient(srv.URL, "tok", ""), phone.NewNormalizer("+91"), 5*time.Minute, 6, zap.NewNop())
	ctx := context.Background()

	if err := svc.Send(ctx, "7985113984", ""); err != nil {
		t.Fatal(err)
	}
	if got.PhoneNumber != "+917985113984" || len(got.Code) != 6 || got.TTL != 300 {
		t.Fatalf("gateway request = %+v", got)
	}
	if err := svc.Verify(ctx, "7985113984", "12"); !errors.Is(err, store.ErrOTPInvalid) {
		t.Fatalf("malformed code: %v", err)
	}
	if err := svc.Verify(ctx, "7985113984", got.Code); err != nil {
		t.Fatalf("verify delivered code: %v", err)
	}
}

func TestGatewayClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"PHONE_NUMBER_INVALID"}`))
	}))
	defer srv.Close()

	if _, err := NewGatewayClient(srv.URL, "tok", "").Send(context.Background(), "+910", "1234", time.Minute); err == nil {
		t.Fatal("expected gateway error")
	}
	if _, err := NewGatewayClient(srv.URL, "", "").Send(context.Background(), "+910", "1234", time.Minute); err == nil {
		t.Fatal("expected missing token error")
	}
}
