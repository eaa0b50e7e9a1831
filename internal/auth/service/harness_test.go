package service_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/mail"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "authcore-test"
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "hunter22"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *sqlite.Store
	clock     *testClock
	outbox    *mail.Outbox
	creds     *service.CredentialService
	issuer    *service.TokenIssuer
	validator *service.TokenValidator
	accounts  *service.AccountService
	gate      *service.AccessGate
}

func fastHasher() *cryptox.PasswordHasher {
	return cryptox.NewPasswordHasher("test-pepper", cryptox.WithArgon2Params(cryptox.Argon2Params{
		Memory:      64,
		Iterations:  1,
		Parallelism: 1,
	}))
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clk := newTestClock()

	signer, err := jwtx.NewHS256Signer([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256Verifier([]byte(testSecret), testIssuer, jwtx.WithClock(clk.Now))
	require.NoError(t, err)
	composer, err := mail.NewComposer("https://app.example.com")
	require.NoError(t, err)

	h := &harness{
		store:  st,
		clock:  clk,
		outbox: &mail.Outbox{},
	}
	h.creds = &service.CredentialService{Store: st, Hasher: fastHasher(), Now: clk.Now}
	h.issuer = &service.TokenIssuer{
		Store:           st,
		Signer:          signer,
		Issuer:          testIssuer,
		SessionTTL:      time.Hour,
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        10 * time.Minute,
		Now:             clk.Now,
	}
	h.validator = &service.TokenValidator{Verifier: verifier, Store: st, Now: clk.Now}
	h.accounts = &service.AccountService{
		Store:       st,
		Credentials: h.creds,
		Issuer:      h.issuer,
		Validator:   h.validator,
		Mailer:      h.outbox,
		Composer:    composer,
		Now:         clk.Now,
	}
	h.gate = &service.AccessGate{Validator: h.validator, Store: st}
	return h
}

func (h *harness) signup(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := h.accounts.Signup(context.Background(), service.SignupInput{
		Name:     "Test User",
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (h *harness) login(t *testing.T, email, password string) service.LoginResult {
	t.Helper()
	res, err := h.accounts.Login(context.Background(), service.LoginInput{Email: email, Password: password})
	require.NoError(t, err)
	return res
}

// verify consumes the verification link most recently mailed to email.
func (h *harness) verify(t *testing.T, email string) {
	t.Helper()
	_, err := h.accounts.ConsumeVerification(context.Background(), h.mailedToken(t, email, "verify-email"))
	require.NoError(t, err)
}

// mailedToken extracts the token from the latest link of the given kind
// sent to addr.
func (h *harness) mailedToken(t *testing.T, addr, kind string) string {
	t.Helper()
	re := regexp.MustCompile(`/` + kind + `/([A-Za-z0-9_-]+)"`)

	msgs := h.outbox.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if len(msgs[i].To) == 0 || msgs[i].To[0] != addr {
			continue
		}
		if m := re.FindStringSubmatch(msgs[i].Body); m != nil {
			return m[1]
		}
	}
	t.Fatalf("no %s link mailed to %s", kind, addr)
	return ""
}
