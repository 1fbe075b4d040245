package utils

import (
	"errors"
	"testing"
	"time"
)

var secret = []byte("0123456789abcdef")

func TestIssueAndParse(t *testing.T) {
	tok, err := IssueToken(secret, "0xabc", RoleArbiter, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if c.UserID != "0xabc" || c.Role != RoleArbiter {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParseRejects(t *testing.T) {
	expired, _ := IssueToken(secret, "0xabc", RoleTrader, time.Minute, time.Now().Add(-time.Hour))
	wrongKey, _ := IssueToken([]byte("another-secret-xx"), "0xabc", RoleTrader, time.Hour, time.Now())
	noUser, _ := IssueToken(secret, "", RoleTrader, time.Hour, time.Now())

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"no user":   noUser,
		"garbage":   "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(secret, tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v", err)
	}
	if _, err := BearerToken("Basic abc"); err == nil {
		t.Fatal("expected format error")
	}
	got, err := BearerToken("Bearer abc.def")
	if err != nil || got != "abc.def" {
		t.Fatalf("got %q, %v", got, err)
	}
}
