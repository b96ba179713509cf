// Package otp delivers and checks driver phone verification codes.
package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender delivers a code to an E.164 phone and returns the provider's request id.
type Sender interface {
	Send(ctx context.Context, phoneE164, code string, ttl time.Duration) (requestID string, err error)
}

// GatewayClient talks to a verification-message HTTP gateway.
type GatewayClient struct {
	baseURL string
	token   string
	sender  string
	http    *http.Client
}

func NewGatewayClient(baseURL, token, sender string) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		token:   token,
		sender:  sender,
		http:    &http.Client{Timeout: 8 * time.Second},
	}
}

type sendVerificationReq struct {
	PhoneNumber    string `json:"phone_number"`
	Code           string `json:"code"`
	TTL            int    `json:"ttl,omitempty"`
	Payload        string `json:"payload,omitempty"`
	SenderUsername string `json:"sender_username,omitempty"`
}

type gatewayResp struct {
	OK     bool `json:"ok"`
	Result struct {
		RequestID string `json:"request_id"`
	} `json:"result"`
	Error string `json:"error"`
}

func (c *GatewayClient) Send(ctx context.Context, phoneE164, code string, ttl time.Duration) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("otp gateway token is not configured")
	}
	body := sendVerificationReq{
		PhoneNumber:    phoneE164,
		Code:           code,
		TTL:            int(ttl.Seconds()),
		Payload:        "driver-otp",
		SenderUsername: c.sender,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendVerificationMessage", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("otp gateway http %d: %s", res.StatusCode, string(raw))
	}
	var gr gatewayResp
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("otp gateway decode: %w", err)
	}
	if !gr.OK {
		return "", fmt.Errorf("otp gateway error: %s", gr.Error)
	}
	if gr.Result.RequestID == "" {
		return "", fmt.Errorf("otp gateway: empty request_id")
	}
	return gr.Result.RequestID, nil
}

// LogSender writes codes to the log instead of sending them. Local runs only.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, phoneE164, code string, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	s.Logger.Info("otp (not delivered)", zap.String("phone", phoneE164), zap.String("code", code),
		zap.Duration("ttl", ttl), zap.String("request_id", id))
	return id, nil
}
