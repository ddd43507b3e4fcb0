package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	httpAdapter "github.com/madcok-co/conduit/core/pkg/adapters/http"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/audit"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/auth"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/ratelimiter"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/secrets"
	"github.com/madcok-co/conduit/core/pkg/contracts"
)

// apiKeyEnvVar names the environment variable carrying the single
// operator API key conduitd's RPC surface accepts in the X-API-Key
// header.
const apiKeyEnvVar = "CONDUIT_API_KEY"

// jwtSecretEnvVar names the environment variable carrying the HS256
// signing secret for the RPC surface's bearer-token mode: requests may
// authenticate with "Authorization: Bearer <jwt>" instead of an API key.
const jwtSecretEnvVar = "CONDUIT_JWT_SECRET"

// authMiddleware builds the RPC surface's authentication middleware from
// the operator environment: apiKeyEnvVar enables X-API-Key validation,
// jwtSecretEnvVar enables Authorization-Bearer JWT validation, and a
// request passes if any configured credential validates. Neither set
// means the surface is unauthenticated, matching conduitd's default
// trusted-control-plane deployment model.
func authMiddleware() httpAdapter.Middleware {
	validators := []func(*http.Request) bool{}
	if v := apiKeyValidator(); v != nil {
		validators = append(validators, v)
	}
	if v := jwtValidator(); v != nil {
		validators = append(validators, v)
	}
	if len(validators) == 0 {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, validate := range validators {
				if validate(r) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// apiKeyValidator checks requests against apiKeyEnvVar's key, or nil if
// none is configured.
func apiKeyValidator() func(*http.Request) bool {
	key := secretFromEnv(apiKeyEnvVar)
	if key == "" {
		return nil
	}

	store := auth.NewInMemoryAPIKeyStore()
	cfg := auth.DefaultAPIKeyConfig()
	cfg.Store = store
	authenticator := auth.NewAPIKeyAuthenticator(cfg)

	sum := sha256.Sum256([]byte(key))
	_ = store.Save(context.Background(), &auth.APIKeyEntry{
		ID:        "operator",
		KeyHash:   hex.EncodeToString(sum[:]),
		Name:      "operator",
		OwnerID:   "operator",
		OwnerType: "service",
	})

	headerName := authenticator.GetHeaderName()
	return func(r *http.Request) bool {
		_, err := authenticator.Validate(r.Context(), r.Header.Get(headerName))
		return err == nil
	}
}

// jwtValidator checks requests' Authorization-Bearer tokens against
// jwtSecretEnvVar's HS256 secret, or nil if none is configured.
func jwtValidator() func(*http.Request) bool {
	secret := secretFromEnv(jwtSecretEnvVar)
	if secret == "" {
		return nil
	}

	cfg := auth.DefaultJWTConfig()
	cfg.SecretKey = secret
	authenticator := auth.NewJWTAuthenticator(cfg)

	return func(r *http.Request) bool {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			return false
		}
		_, err := authenticator.Validate(r.Context(), token)
		return err == nil
	}
}

// secretFromEnv resolves name through the env secret manager rather than
// a raw os.Getenv call, same as the loader's credential passphrase.
func secretFromEnv(name string) string {
	sm, err := secrets.NewEnvSecretManager(secrets.DefaultEnvSecretManagerConfig())
	if err != nil {
		return ""
	}
	value, err := sm.Get(context.Background(), name)
	if err != nil {
		return ""
	}
	return value
}

// newRunRateLimiter rate-limits RunService: conduitd's RPC surface has no
// per-caller identity by default (see authMiddleware), so every run
// request shares a single bucket keyed by "run".
func newRunRateLimiter() contracts.RateLimiter {
	return ratelimiter.NewInMemoryRateLimiter(ratelimiter.DefaultInMemoryRateLimiterConfig())
}

func newAuditLogger() contracts.AuditLogger {
	return audit.NewInMemoryAuditLogger(audit.DefaultInMemoryAuditLoggerConfig())
}
