package handler

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	accountdomain "taskboard/backend/internal/account/domain"
	"taskboard/backend/internal/auth/service"
	"taskboard/backend/internal/envelope"
	"taskboard/backend/internal/lockout"
	"taskboard/backend/internal/response"
	"taskboard/backend/internal/security"
	"taskboard/backend/internal/server/middleware"
	"taskboard/backend/internal/token"
)

const alicePassword = "Str0ng-and-l0ng!"

// memAccounts is a minimal in-memory account repo for handler tests.
type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*accountdomain.Account
}

func (r *memAccounts) GetByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAccounts) GetByUsername(ctx context.Context, username string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAccounts) Create(ctx context.Context, a *accountdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccounts) IncrementFailedAttempt(ctx context.Context, id string, at time.Time) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FailedAttempts++
	a.LastAttemptTime = &at
	cp := *a
	return &cp, nil
}

func (r *memAccounts) RestartFailureCount(ctx context.Context, id string, at time.Time) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FailedAttempts = 1
	a.LockoutUntil = nil
	a.LastAttemptTime = &at
	cp := *a
	return &cp, nil
}

func (r *memAccounts) ResetFailures(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FailedAttempts = 0
	a.LockoutUntil = nil
	return nil
}

func (r *memAccounts) ApplyLockout(ctx context.Context, id string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.LockoutUntil = &until
	a.LockCycles++
	return nil
}

func (r *memAccounts) ApplyPermanentLock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.PermanentlyLocked = true
	a.LockCycles++
	return nil
}

func (r *memAccounts) ClearLock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FailedAttempts = 0
	a.LockCycles = 0
	a.LockoutUntil = nil
	a.PermanentlyLocked = false
	return nil
}

func (r *memAccounts) TouchLastAttempt(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].LastAttemptTime = &at
	return nil
}

type testEnv struct {
	h     *Handler
	codec *envelope.Codec
	toks  *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	provider := security.NewTokenProvider(key, &key.PublicKey, "taskboard-auth", "taskboard-api", time.Hour)
	toks := token.NewService(provider, token.NewMemoryLedger())

	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte(alicePassword))
	if err != nil {
		t.Fatal(err)
	}
	repo := &memAccounts{byID: map[string]*accountdomain.Account{
		"id-alice": {ID: "id-alice", Username: "alice", CredentialHash: hash, Role: accountdomain.RoleUser, IsActive: true},
	}}
	svc := service.NewAuthService(repo, toks, hasher, lockout.Default(), nil)

	codecKey, err := envelope.DeriveKey("shared-transport-secret", "pepper")
	if err != nil {
		t.Fatal(err)
	}
	codec, err := envelope.NewCodec(codecKey)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{h: NewHandler(svc, codec), codec: codec, toks: toks}
}

func decodeResult(t *testing.T, body *bytes.Buffer) response.Result {
	t.Helper()
	var res response.Result
	if err := json.Unmarshal(body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v (%s)", err, body.String())
	}
	return res
}

func TestLoginPlainBody(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"username":"alice","password":"` + alicePassword + `"}`)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.h.Login(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w.Body)
	if res.Code != response.StatusSuccess {
		t.Fatalf("tipo = %d, want 1", res.Code)
	}
	data := res.Data.(map[string]any)
	if data["username"] != "alice" || data["role"] != "user" || data["token"] == "" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestLoginEnvelopedBody(t *testing.T) {
	env := newTestEnv(t)

	sealed, err := env.codec.Seal(credentials{Username: "alice", Password: alicePassword})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(sealed)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.h.Login(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	// Response must come back enveloped too.
	var respEnv envelope.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &respEnv); err != nil || !respEnv.Encrypted {
		t.Fatalf("response is not an envelope: %s", w.Body.String())
	}
	var res response.Result
	if err := env.codec.Open(&respEnv, &res); err != nil {
		t.Fatalf("open response envelope: %v", err)
	}
	if res.Code != response.StatusSuccess {
		t.Fatalf("tipo = %d, want 1", res.Code)
	}
}

func TestLoginTamperedEnvelope(t *testing.T) {
	env := newTestEnv(t)

	sealed, err := env.codec.Seal(credentials{Username: "alice", Password: alicePassword})
	if err != nil {
		t.Fatal(err)
	}
	sealed.Payload[0] ^= 0x01
	body, _ := json.Marshal(sealed)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.h.Login(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	// Generic message only; no crypto diagnostics leak.
	var respEnv envelope.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &respEnv); err != nil || !respEnv.Encrypted {
		t.Fatalf("error response should be enveloped: %s", w.Body.String())
	}
	var res response.Result
	if err := env.codec.Open(&respEnv, &res); err != nil {
		t.Fatal(err)
	}
	if res.Code != response.StatusError || res.Messages[0] != "malformed request body" {
		t.Fatalf("unexpected error body: %+v", res)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	for _, username := range []string{"alice", "nobody"} {
		body := []byte(`{"username":"` + username + `","password":"wrong-password"}`)
		r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()
		env.h.Login(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", username, w.Code)
		}
		res := decodeResult(t, w.Body)
		if res.Code != response.StatusError || res.Messages[0] != "invalid username or password" {
			t.Fatalf("%s: enumeration-safe message required, got %+v", username, res)
		}
		if res.Data != nil {
			t.Fatalf("%s: data must be null on error", username)
		}
	}
}

func TestLoginLockedMessage(t *testing.T) {
	env := newTestEnv(t)

	var w *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		body := []byte(`{"username":"alice","password":"wrong"}`)
		w = httptest.NewRecorder()
		env.h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	res := decodeResult(t, w.Body)
	if res.Code != response.StatusError {
		t.Fatalf("tipo = %d, want 3", res.Code)
	}
	if len(res.Messages) == 0 || !bytes.Contains([]byte(res.Messages[0]), []byte("account locked until")) {
		t.Fatalf("lockout must be the visible failure, got %v", res.Messages)
	}
}

func TestRegisterAndValidation(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"username":"bob","password":"An0ther-good-one!"}`)
	w := httptest.NewRecorder()
	env.h.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Duplicate username.
	w = httptest.NewRecorder()
	env.h.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d, want 409", w.Code)
	}

	// Weak password.
	weak := []byte(`{"username":"carol","password":"short"}`)
	w = httptest.NewRecorder()
	env.h.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(weak)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("weak password: status = %d, want 400", w.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	body := []byte(`{"username":"alice","password":"` + alicePassword + `"}`)
	w := httptest.NewRecorder()
	env.h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	res := decodeResult(t, w.Body)
	tok := res.Data.(map[string]any)["token"].(string)

	id, err := env.toks.Validate(ctx, tok)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r = r.WithContext(middleware.WithIdentity(r.Context(), id))
	w = httptest.NewRecorder()
	env.h.Logout(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if _, err := env.toks.Validate(ctx, tok); err == nil {
		t.Fatal("token must be revoked after logout")
	}
}

func TestLogoutWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.h.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	id := &token.Identity{Subject: "id-alice", Role: accountdomain.RoleUser, JTI: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	r := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	r = r.WithContext(middleware.WithIdentity(r.Context(), id))
	w := httptest.NewRecorder()
	env.h.Status(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decodeResult(t, w.Body)
	if res.Code != response.StatusSuccess {
		t.Fatalf("tipo = %d, want 1", res.Code)
	}
	data := res.Data.(map[string]any)
	if data["subject"] != "id-alice" || data["role"] != "user" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestUnlock(t *testing.T) {
	env := newTestEnv(t)

	// Lock alice first.
	for i := 0; i < 5; i++ {
		body := []byte(`{"username":"alice","password":"wrong"}`)
		env.h.Login(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	}

	w := httptest.NewRecorder()
	env.h.Unlock(w, httptest.NewRequest(http.MethodPost, "/auth/unlock", bytes.NewReader([]byte(`{"username":"alice"}`))))
	if w.Code != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", w.Code, w.Body.String())
	}

	body := []byte(`{"username":"alice","password":"` + alicePassword + `"}`)
	w = httptest.NewRecorder()
	env.h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("login after unlock = %d: %s", w.Code, w.Body.String())
	}
}

func TestUnlockUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.h.Unlock(w, httptest.NewRequest(http.MethodPost, "/auth/unlock", bytes.NewReader([]byte(`{"username":"nobody"}`))))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{"", "{not json", `42`} {
		w := httptest.NewRecorder()
		env.h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(body))))
		if w.Code != http.StatusBadRequest && w.Code != http.StatusUnauthorized {
			t.Fatalf("body %q: status = %d", body, w.Code)
		}
	}
}
