package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("secret")
	userID := uuid.New()

	tok, err := SignAccessToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	got, err := v.VerifyToken(context.Background(), tok)
	if err != nil || got != userID {
		t.Fatalf("VerifyToken: want=%s got=%s err=%v", userID, got, err)
	}

	wrongKey, _ := SignAccessToken("other", userID, time.Minute)
	if _, err := v.VerifyToken(context.Background(), wrongKey); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key: want ErrInvalidToken got=%v", err)
	}
	expired, _ := SignAccessToken("secret", userID, -time.Minute)
	if _, err := v.VerifyToken(context.Background(), expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: want ErrInvalidToken got=%v", err)
	}
	if _, err := v.VerifyToken(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty: want ErrInvalidToken got=%v", err)
	}
}
