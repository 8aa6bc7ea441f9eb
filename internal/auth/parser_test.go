package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/pharma-contracts/internal/model"
)

func TestParserRoundTrip(t *testing.T) {
	p := NewParser("secret")
	want := model.Principal{UserID: uuid.New(), Role: model.RoleManager}

	token, err := p.Issue(want, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := p.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParserRejects(t *testing.T) {
	p := NewParser("secret")
	userID := uuid.New()

	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	valid := func(role string, sub string) Claims {
		return Claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	expired := valid("manager", userID.String())
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "garbage", token: func(t *testing.T) string { return "not-a-token" }},
		{name: "wrong secret", token: func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("other"), valid("manager", userID.String()))
		}},
		{name: "wrong algorithm", token: func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, []byte("secret"), valid("manager", userID.String()))
		}},
		{name: "expired", token: func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("secret"), expired)
		}},
		{name: "subject not uuid", token: func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("secret"), valid("manager", "bob"))
		}},
		{name: "unknown role", token: func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("secret"), valid("admin", userID.String()))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.token(t))
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("got %v, want ErrInvalidToken", err)
			}
		})
	}
}
