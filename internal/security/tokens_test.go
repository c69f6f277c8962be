package security

import (
	"testing"
	"time"
)

func TestVerifier_Verify(t *testing.T) {
	signer, verifier, err := NewTestSigner()
	if err != nil {
		t.Fatalf("NewTestSigner: %v", err)
	}
	token, err := signer.Sign("user-1", "sess-1", time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	id, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !id.IsAuthenticated() || id.UserID != "user-1" || id.SessionID != "sess-1" {
		t.Errorf("identity = %+v", id)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	signer, verifier, err := NewTestSigner()
	if err != nil {
		t.Fatalf("NewTestSigner: %v", err)
	}
	sign := func(mutate func(*TestSigner), user string, ttl time.Duration) string {
		s := *signer
		if mutate != nil {
			mutate(&s)
		}
		tok, err := s.Sign(user, "", ttl)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return tok
	}

	tests := map[string]string{
		"garbage":        "not-a-jwt",
		"expired":        sign(nil, "user-1", -time.Minute),
		"wrong issuer":   sign(func(s *TestSigner) { s.Issuer = "other" }, "user-1", time.Minute),
		"wrong audience": sign(func(s *TestSigner) { s.Audience = "other" }, "user-1", time.Minute),
		"no subject":     sign(nil, "", time.Minute),
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := verifier.Verify(tok); err != ErrInvalidToken {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
