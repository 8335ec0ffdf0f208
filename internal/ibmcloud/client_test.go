package ibmcloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Minapak/SwiftQuantum/internal/testutil"
)

// --- ExchangeAPIKey Tests ---

func TestExchangeAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if grant := r.PostForm.Get("grant_type"); grant != "urn:ibm:params:oauth:grant-type:apikey" {
			t.Errorf("expected apikey grant type, got %q", grant)
		}
		if key := r.PostForm.Get("apikey"); key != "test-api-key" {
			t.Errorf("expected apikey 'test-api-key', got %q", key)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"token_type":   "Bearer",
			"expires_in":   7200,
		})
	}))
	defer server.Close()

	client := NewClient(WithTokenURL(server.URL))
	cred, err := client.ExchangeAPIKey(context.Background(), "test-api-key")
	if err != nil {
		t.Fatalf("ExchangeAPIKey error: %v", err)
	}
	if cred.AccessToken != "tok-abc" {
		t.Errorf("expected token 'tok-abc', got %q", cred.AccessToken)
	}
	if cred.TokenType != "Bearer" {
		t.Errorf("expected token type 'Bearer', got %q", cred.TokenType)
	}
	if cred.ExpiresIn != 7200*time.Second {
		t.Errorf("expected expiry 7200s, got %s", cred.ExpiresIn)
	}
	if cred.AcquiredAt.IsZero() {
		t.Error("expected AcquiredAt to be set")
	}
}

func TestExchangeAPIKeyDefaultExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer"})
	}))
	defer server.Close()

	client := NewClient(WithTokenURL(server.URL))
	cred, err := client.ExchangeAPIKey(context.Background(), "key")
	if err != nil {
		t.Fatalf("ExchangeAPIKey error: %v", err)
	}
	if cred.ExpiresIn != 3600*time.Second {
		t.Errorf("expected default expiry 3600s, got %s", cred.ExpiresIn)
	}
}

func TestExchangeAPIKeyRejected(t *testing.T) {
	server := testutil.JSONServer(t, http.StatusUnauthorized,
		map[string]any{"errorMessage": "Provided API key could not be found"})

	client := NewClient(WithTokenURL(server.URL))
	_, err := client.ExchangeAPIKey(context.Background(), "bad-key")
	if err == nil {
		t.Fatal("expected error for 401 response, got nil")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", authErr.StatusCode)
	}
	if authErr.Op != "token exchange" {
		t.Errorf("expected op 'token exchange', got %q", authErr.Op)
	}
	testutil.AssertErrorContains(t, err, "could not be found")
}

func TestExchangeAPIKeyMissingToken(t *testing.T) {
	server := testutil.JSONServer(t, http.StatusOK, map[string]any{"token_type": "Bearer"})

	client := NewClient(WithTokenURL(server.URL))
	_, err := client.ExchangeAPIKey(context.Background(), "key")
	if err == nil {
		t.Fatal("expected error for missing access token, got nil")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
}

// --- Credential Tests ---

func TestCredentialExpiry(t *testing.T) {
	acquired := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cred := &Credential{ExpiresIn: time.Hour, AcquiredAt: acquired}

	if got := cred.ExpiresAt(); !got.Equal(acquired.Add(time.Hour)) {
		t.Errorf("expected expiry at %s, got %s", acquired.Add(time.Hour), got)
	}
	if cred.Expired(acquired.Add(30 * time.Minute)) {
		t.Error("expected credential valid before expiry")
	}
	if !cred.Expired(acquired.Add(time.Hour)) {
		t.Error("expected credential expired at the expiry instant")
	}
	if !cred.Expired(acquired.Add(2 * time.Hour)) {
		t.Error("expected credential expired after expiry")
	}
}

// --- LookupInstance Tests ---

func TestLookupInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-abc" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		if rid := r.URL.Query().Get("resource_id"); rid != "custom-resource-id" {
			t.Errorf("expected resource_id 'custom-resource-id', got %q", rid)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resources": []map[string]any{
				{"crn": "crn:v1:bluemix:first", "name": "qr-primary", "region_id": "us-east", "state": "active"},
				{"crn": "crn:v1:bluemix:second", "name": "qr-spare", "region_id": "eu-de", "state": "active"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(WithResourceControllerURL(server.URL))
	cred := &Credential{AccessToken: "tok-abc"}

	instance, err := client.LookupInstance(context.Background(), cred, "custom-resource-id")
	if err != nil {
		t.Fatalf("LookupInstance error: %v", err)
	}
	if instance.CRN != "crn:v1:bluemix:first" {
		t.Errorf("expected first instance CRN, got %q", instance.CRN)
	}
	if instance.Name != "qr-primary" {
		t.Errorf("expected name 'qr-primary', got %q", instance.Name)
	}
	if instance.RegionID != "us-east" {
		t.Errorf("expected region 'us-east', got %q", instance.RegionID)
	}
	if instance.State != "active" {
		t.Errorf("expected state 'active', got %q", instance.State)
	}
	if instance.TotalInstances != 2 {
		t.Errorf("expected 2 total instances, got %d", instance.TotalInstances)
	}
}

func TestLookupInstanceDefaultResourceID(t *testing.T) {
	var gotResourceID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotResourceID = r.URL.Query().Get("resource_id")
		json.NewEncoder(w).Encode(map[string]any{
			"resources": []map[string]any{{"crn": "crn:x", "name": "qr", "region_id": "us-east", "state": "active"}},
		})
	}))
	defer server.Close()

	client := NewClient(WithResourceControllerURL(server.URL))
	_, err := client.LookupInstance(context.Background(), &Credential{AccessToken: "t"}, "")
	if err != nil {
		t.Fatalf("LookupInstance error: %v", err)
	}
	if gotResourceID != QiskitRuntimeResourceID {
		t.Errorf("expected well-known resource id, got %q", gotResourceID)
	}
}

func TestLookupInstanceNoneProvisioned(t *testing.T) {
	server := testutil.JSONServer(t, http.StatusOK, map[string]any{"resources": []any{}})

	client := NewClient(WithResourceControllerURL(server.URL))
	_, err := client.LookupInstance(context.Background(), &Credential{AccessToken: "t"}, "")
	if err == nil {
		t.Fatal("expected error for empty resource list, got nil")
	}

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	testutil.AssertErrorContains(t, err, "quantum.ibm.com")
}

func TestLookupInstanceRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("forbidden"))
	}))
	defer server.Close()

	client := NewClient(WithResourceControllerURL(server.URL))
	_, err := client.LookupInstance(context.Background(), &Credential{AccessToken: "t"}, "")
	if err == nil {
		t.Fatal("expected error for 403 response, got nil")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
	if authErr.Op != "instance lookup" {
		t.Errorf("expected op 'instance lookup', got %q", authErr.Op)
	}
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", authErr.StatusCode)
	}
}
