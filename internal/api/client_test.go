package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "aluno@example.com" {
			t.Errorf("email = %q", req.Email)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL)
	tok, err := c.Login(context.Background(), "aluno@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok != "tok-123" || c.Token() != "tok-123" {
		t.Fatalf("token = %q / %q", tok, c.Token())
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]api.Course{})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, api.WithToken("tok-9"))
	if _, err := c.Courses(context.Background()); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if got != "Bearer tok-9" {
		t.Fatalf("authorization header = %q", got)
	}
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing bearer", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL)
	_, err := c.Profile(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
	if api.IsRetryable(err) {
		t.Fatal("session expiry must not be presented as retryable")
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL)
	_, err := c.StartAttempt(context.Background(), "list-1", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !api.IsRetryable(err) {
		t.Fatalf("500 should be retryable, got %v", err)
	}
	var se *api.StatusError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Fatalf("got %v, want StatusError 500", err)
	}
}

func TestTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := api.NewClient(srv.URL)
	_, err := c.Courses(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !api.IsRetryable(err) {
		t.Fatalf("network fault should be retryable, got %v", err)
	}
}

func TestAttemptForListReturnsNilWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL)
	a, err := c.AttemptForList(context.Background(), "list-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Fatalf("attempt = %+v, want nil", a)
	}
}

func TestSubmitAnswerDecodesOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attempts/att-1/answers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			QuestionID    string `json:"question_id"`
			AlternativeID string `json:"alternative_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(study.AnswerOutcome{
			Accepted: true, Revealed: true,
			IsCorrect:            req.AlternativeID == "a2",
			CorrectAlternativeID: "a2",
		})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL)
	out, err := c.SubmitAnswer(context.Background(), "att-1", "q1", "a2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.IsCorrect || out.CorrectAlternativeID != "a2" {
		t.Fatalf("outcome = %+v", out)
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	c := api.NewClient("http://x", api.WithToken(signedToken(t, now.Add(time.Hour))))
	if c.TokenExpired(now) {
		t.Fatal("fresh token reported expired")
	}

	c.SetToken(signedToken(t, now.Add(-time.Minute)))
	if !c.TokenExpired(now) {
		t.Fatal("stale token reported valid")
	}

	c.SetToken("")
	if !c.TokenExpired(now) {
		t.Fatal("empty token reported valid")
	}

	c.SetToken("not-a-jwt")
	if !c.TokenExpired(now) {
		t.Fatal("garbage token reported valid")
	}
}
