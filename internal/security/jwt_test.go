package security

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndParse(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)
	id := uuid.New()

	tokens, refresh, err := m.Issue(RoleDriver, id)
	if err != nil {
		t.Fatal(err)
	}
	if tokens.ExpiresIn != 900 {
		t.Fatalf("expires_in = %d", tokens.ExpiresIn)
	}

	gotID, role, err := m.ParseAccess(tokens.AccessToken)
	if err != nil || gotID != id || role != RoleDriver {
		t.Fatalf("ParseAccess = %s %q %v", gotID, role, err)
	}

	rc, err := m.ParseRefresh(tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if rc.ID != refresh.ID || rc.DriverID != id.String() {
		t.Fatalf("refresh claims = %+v", rc)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Minute, time.Hour)
	tokens, _, err := m.Issue(RoleDriver, uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	other := NewJWTManager("other-secret", time.Minute, time.Hour)
	if _, _, err := other.ParseAccess(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, _, err := m.ParseAccess(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: %v", err)
	}

	if _, _, err := m.ParseAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: %v", err)
	}
}
