package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// InitSessionKeys builds the HS256 signer and verifier for session tokens.
//
// Outside dev the secret must be configured. In dev a missing secret is
// replaced by a random one held only in memory, so every session becomes
// invalid when the service restarts.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.HS256Signer, *jwtx.HS256Verifier, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		if !cfg.IsDev() {
			return nil, nil, fmt.Errorf("session secret is required in %s", cfg.Env)
		}

		buf := make([]byte, jwtx.MinSecretLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, fmt.Errorf("generate session secret: %w", err)
		}
		secret = []byte(base64.RawURLEncoding.EncodeToString(buf))
		logger.Warn("AUTH_SESSION_SECRET not set; using an ephemeral secret, sessions will not survive a restart")
	}

	signer, err := jwtx.NewHS256Signer(secret)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := jwtx.NewHS256Verifier(secret, cfg.Issuer)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("session keys ready", "alg", signer.Alg(), "issuer", cfg.Issuer)
	return signer, verifier, nil
}
