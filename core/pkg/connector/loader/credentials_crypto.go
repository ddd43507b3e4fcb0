package loader

import (
	"context"
	"encoding/json"

	"github.com/madcok-co/conduit/core/pkg/adapters/security/encryptor"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/secrets"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"golang.org/x/crypto/argon2"
)

// CredentialsKeyEnvVar names the environment variable holding the
// passphrase credentials.json is encrypted under. Unset means
// credentials.json is read and written as plain JSON.
const CredentialsKeyEnvVar = "CONDUIT_CREDENTIALS_KEY"

// credentialsSecrets resolves CredentialsKeyEnvVar the same way the
// daemon resolves every other environment-sourced value, rather than
// calling os.Getenv directly. Caching is disabled: this manager is a
// package-level singleton shared across every load/write, and a cached
// passphrase would survive a rotation or an unset CredentialsKeyEnvVar
// until the TTL expired.
var credentialsSecrets = secretsManagerOrNil()

// nopContext is used for the handful of secrets.EnvSecretManager calls
// the loader makes outside any request-scoped context.Context.
var nopContext = context.Background()

func secretsManagerOrNil() *secrets.EnvSecretManager {
	cfg := secrets.DefaultEnvSecretManagerConfig()
	cfg.EnableCache = false
	m, err := secrets.NewEnvSecretManager(cfg)
	if err != nil {
		return nil
	}
	return m
}

// credentialsSalt is fixed rather than random: the passphrase is the
// actual secret, and a fixed salt lets loadCredentials re-derive the
// same key Write used without persisting a salt alongside the file.
var credentialsSalt = []byte("conduit-credentials-loader-v1")

// credentialsEnvelope is the on-disk shape of an encrypted
// credentials.json: the real document lives base64-encoded and
// AES-GCM sealed in Data. A plain (unencrypted) credentials.json never
// has Encrypted set, so existing plaintext files keep loading as-is.
type credentialsEnvelope struct {
	Encrypted bool   `json:"encrypted"`
	Data      string `json:"data"`
}

// credentialEncryptor derives an AES-256-GCM encryptor from
// CredentialsKeyEnvVar via argon2.IDKey, with a fixed salt because the
// key must be reproducible across a Write/loadCredentials round-trip
// rather than unique per call. ok is false when no passphrase is
// configured.
func credentialEncryptor() (*encryptor.AESEncryptor, bool) {
	if credentialsSecrets == nil {
		return nil, false
	}
	passphrase, err := credentialsSecrets.Get(nopContext, CredentialsKeyEnvVar)
	if err != nil || passphrase == "" {
		return nil, false
	}
	key := argon2.IDKey([]byte(passphrase), credentialsSalt, 3, 64*1024, 2, 32)
	enc, err := encryptor.NewAESGCMEncryptor(key)
	if err != nil {
		return nil, false
	}
	return enc, true
}

// decryptCredentials unwraps raw into the plain credentials.json bytes
// it was written from. raw that isn't a credentialsEnvelope (Encrypted
// false or absent) passes through unchanged, so a deployment that
// never set CredentialsKeyEnvVar keeps reading plain JSON.
func decryptCredentials(raw []byte) ([]byte, error) {
	var env credentialsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || !env.Encrypted {
		return raw, nil
	}

	enc, ok := credentialEncryptor()
	if !ok {
		return nil, connectorerr.New(connectorerr.ErrInvalidAuthParameter, CredentialsLocation, "credentials.json is encrypted but "+CredentialsKeyEnvVar+" is not set")
	}
	plaintext, err := enc.DecryptString(env.Data)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrInvalidAuthParameter, CredentialsLocation, err)
	}
	return []byte(plaintext), nil
}

// encryptCredentials wraps raw plain credentials.json bytes into a
// credentialsEnvelope when CredentialsKeyEnvVar is set, otherwise
// returns raw unchanged.
func encryptCredentials(raw []byte) ([]byte, error) {
	enc, ok := credentialEncryptor()
	if !ok {
		return raw, nil
	}
	ciphertext, err := enc.EncryptString(string(raw))
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, CredentialsLocation, err)
	}
	return json.MarshalIndent(credentialsEnvelope{Encrypted: true, Data: ciphertext}, "", "  ")
}
