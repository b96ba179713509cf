package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

var (
	ErrOTPCooldown    = errors.New("otp cooldown")
	ErrOTPExpired     = errors.New("otp expired")
	ErrOTPInvalid     = errors.New("otp invalid")
	ErrOTPMaxAttempts = errors.New("otp max attempts exceeded")
	ErrOTPRateLimited = errors.New("otp rate limited")
)

// Per-hour send limits.
const (
	sendsPerPhone = 10
	sendsPerIP    = 30
)

// OTPStore keeps hashed one-time codes in Redis, keyed by normalized phone.
type OTPStore struct {
	rdb *redis.Client
	// secret salts the code hash; it is not a signing key.
	secret string

	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
}

func NewOTPStore(rdb *redis.Client, secret string, ttl, cooldown time.Duration, maxAttempts int) *OTPStore {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OTPStore{rdb: rdb, secret: secret, ttl: ttl, cooldown: cooldown, maxAttempts: maxAttempts}
}

func otpKey(p phone.Number) string      { return "otp:" + p.String() }
func cooldownKey(p phone.Number) string { return "otp:cooldown:" + p.String() }
func sendCountKey(p phone.Number) string { return "otp:send_count:" + p.String() }
func sendCountIPKey(ip string) string    { return "otp:send_count_ip:" + ip }

func (s *OTPStore) hash(p phone.Number, code string) string {
	sum := sha256.Sum256([]byte(p.String() + ":" + code + ":" + s.secret))
	return hex.EncodeToString(sum[:])
}

// Save stores the code hash with TTL and starts the resend cooldown.
func (s *OTPStore) Save(ctx context.Context, p phone.Number, code, requestID, ip string) error {
	n, err := s.rdb.Exists(ctx, cooldownKey(p)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrOTPCooldown
	}
	if err := s.incrWithLimit(ctx, sendCountKey(p), sendsPerPhone, time.Hour); err != nil {
		return err
	}
	if ip != "" {
		if err := s.incrWithLimit(ctx, sendCountIPKey(ip), sendsPerIP, time.Hour); err != nil {
			return err
		}
	}

	key := otpKey(p)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "hash", s.hash(p, code), "attempts", 0, "request_id", requestID)
	pipe.Expire(ctx, key, s.ttl)
	pipe.Set(ctx, cooldownKey(p), "1", s.cooldown)
	_, err = pipe.Exec(ctx)
	return err
}

// Verify consumes the code on success. Wrong codes count towards maxAttempts.
func (s *OTPStore) Verify(ctx context.Context, p phone.Number, code string) (requestID string, err error) {
	key := otpKey(p)
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", ErrOTPExpired
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	if attempts >= s.maxAttempts {
		return "", ErrOTPMaxAttempts
	}
	if want := vals["hash"]; want == "" || want != s.hash(p, code) {
		n, err := s.rdb.HIncrBy(ctx, key, "attempts", 1).Result()
		if err != nil {
			return "", err
		}
		if int(n) >= s.maxAttempts {
			return "", ErrOTPMaxAttempts
		}
		return "", ErrOTPInvalid
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return "", err
	}
	return vals["request_id"], nil
}

func (s *OTPStore) incrWithLimit(ctx context.Context, key string, limit int64, window time.Duration) error {
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		_ = s.rdb.Expire(ctx, key, window).Err()
	}
	if n > limit {
		return ErrOTPRateLimited
	}
	return nil
}
