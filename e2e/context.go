package e2e

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext carries HTTP state across the steps of one scenario.
type TestContext struct {
	BaseURL    string
	AdminToken string
	SigningKey string
	Issuer     string
	Audience   string

	client       *http.Client
	lastStatus   int
	lastBody     []byte
	lastHeaders  http.Header
	accounts     map[string]string
	candidateIDs map[string]uint64
}

// NewTestContext reads the target from BALLOT_E2E_* variables.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:      envOr("BALLOT_E2E_BASE_URL", "http://localhost:8080"),
		AdminToken:   os.Getenv("BALLOT_E2E_ADMIN_TOKEN"),
		SigningKey:   envOr("BALLOT_E2E_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:       envOr("BALLOT_E2E_JWT_ISSUER", "ballotledger"),
		Audience:     envOr("BALLOT_E2E_JWT_AUDIENCE", "ballotledger-api"),
		client:       &http.Client{Timeout: 10 * time.Second},
		accounts:     make(map[string]string),
		candidateIDs: make(map[string]uint64),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
	tc.accounts = make(map[string]string)
	tc.candidateIDs = make(map[string]uint64)
}

// Account returns a random address bound to alias for the scenario.
func (tc *TestContext) Account(alias string) string {
	if a, ok := tc.accounts[alias]; ok {
		return a
	}
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	a := "0x" + hex.EncodeToString(b)
	tc.accounts[alias] = a
	return a
}

// BindAccount pins alias to a known address, e.g. the configured admin.
func (tc *TestContext) BindAccount(alias, account string) {
	tc.accounts[alias] = account
}

func (tc *TestContext) TokenFor(account string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   account,
		Issuer:    tc.Issuer,
		Audience:  jwt.ClaimStrings{tc.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
}

func (tc *TestContext) RememberCandidate(name string, id uint64) {
	tc.candidateIDs[name] = id
}

func (tc *TestContext) CandidateID(name string) (uint64, bool) {
	id, ok := tc.candidateIDs[name]
	return id, ok
}

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(key string) string {
	return tc.lastHeaders.Get(key)
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) GetAdminToken() string {
	return tc.AdminToken
}
