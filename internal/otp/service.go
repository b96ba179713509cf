package otp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/store"
	"github.com/rajyashhh/mandinex-truck-application/internal/util"
)

// Codes is implemented by *store.OTPStore.
type Codes interface {
	Save(ctx context.Context, p phone.Number, code, requestID, ip string) error
	Verify(ctx context.Context, p phone.Number, code string) (string, error)
}

type Service struct {
	codes  Codes
	sender Sender
	norm   phone.Normalizer
	ttl    time.Duration
	length int
	logger *zap.Logger
}

// NewService uses norm to turn normalized numbers back into E.164 for delivery.
func NewService(codes Codes, sender Sender, norm phone.Normalizer, ttl time.Duration, length int, logger *zap.Logger) *Service {
	return &Service{codes: codes, sender: sender, norm: norm, ttl: ttl, length: length, logger: logger}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Send stores a fresh code, then delivers it. Cooldown and rate limits
// count the attempt even when delivery fails.
func (s *Service) Send(ctx context.Context, p phone.Number, ip string) error {
	code, err := util.GenerateDigits(s.length)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.codes.Save(ctx, p, code, "", ip); err != nil {
		return err
	}
	requestID, err := s.sender.Send(ctx, s.norm.E164(p), code, s.ttl)
	if err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	s.logger.Info("otp sent", zap.String("request_id", requestID))
	return nil
}

func (s *Service) Verify(ctx context.Context, p phone.Number, code string) error {
	if !util.IsDigits(code) || len(code) != s.length {
		return store.ErrOTPInvalid
	}
	_, err := s.codes.Verify(ctx, p, code)
	return err
}
