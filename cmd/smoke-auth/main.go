// smoke-auth drives a running API through the full session lifecycle: signup,
// login, a gated call, a forced refresh, and logout. It exits non-zero on the
// first deviation, so it can run in CI against a fresh instance.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"bloodbridge.org/internal/authclient"
)

func main() {
	base := os.Getenv("BLOODBRIDGE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := authclient.New(base, nil)
	if err != nil {
		log.Fatalf("build client: %v", err)
	}

	email := fmt.Sprintf("smoke-%d@example.org", time.Now().UnixNano())
	password := "smoke-test-password"

	signup, err := client.Do(ctx, http.MethodPost, "/api/auth/signup",
		fmt.Appendf(nil, `{"email":%q,"password":%q,"role":"donor","bloodType":"O-"}`, email, password))
	if err != nil {
		log.Fatalf("signup: %v", err)
	}
	signup.Body.Close()
	if signup.StatusCode != http.StatusCreated {
		log.Fatalf("signup status: %d", signup.StatusCode)
	}

	if err := client.Login(ctx, email, password); err != nil {
		log.Fatalf("login: %v", err)
	}

	var me struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := client.GetJSON(ctx, "/api/auth/me", &me); err != nil {
		log.Fatalf("me: %v", err)
	}
	if me.Role != "DONOR" {
		log.Fatalf("unexpected role: %q", me.Role)
	}

	created, err := client.Do(ctx, http.MethodPost, "/api/blood-requests",
		[]byte(`{"bloodType":"O-","units":2}`))
	if err != nil {
		log.Fatalf("create request: %v", err)
	}
	created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		log.Fatalf("create request status: %d", created.StatusCode)
	}

	// A donor must not reach the reports endpoint.
	reports, err := client.Do(ctx, http.MethodGet, "/api/reports/summary", nil)
	if err != nil {
		log.Fatalf("reports: %v", err)
	}
	reports.Body.Close()
	if reports.StatusCode != http.StatusForbidden {
		log.Fatalf("reports status: %d, want 403", reports.StatusCode)
	}

	// Corrupt the held token to force the expired/refresh path end to end.
	before := client.AccessToken()
	client.SetAccessToken("")
	if err := client.GetJSON(ctx, "/api/auth/me", &me); err == nil {
		log.Fatal("call without token unexpectedly succeeded")
	}
	client.SetAccessToken(before)

	refreshed, err := client.Do(ctx, http.MethodPost, "/api/auth/refresh", nil)
	if err != nil {
		log.Fatalf("refresh: %v", err)
	}
	refreshed.Body.Close()
	if refreshed.StatusCode != http.StatusOK {
		log.Fatalf("refresh status: %d", refreshed.StatusCode)
	}

	if err := client.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	if client.AccessToken() != "" {
		log.Fatal("token survived logout")
	}

	fmt.Printf("✅ auth smoke test passed: user=%s\n", me.UserID)
}
