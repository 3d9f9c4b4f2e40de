// Package secrets keeps the service credentials out of plain-text config.
// Values are sealed with AES-GCM under a per-user derived key and written to
// a 0600 file in the user config dir. Not a replacement for an OS keychain.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// Key names a credential the service knows how to use. The store only
// accepts these, so a typo cannot silently create an orphan entry.
type Key string

const (
	// AAClientSecret authenticates the service to the account aggregator.
	AAClientSecret Key = "aa_client_secret"
	// SigningKey signs the API's session tokens.
	SigningKey Key = "jwt_signing_key"
)

const fileName = "credentials.json"

func (k Key) valid() bool {
	return k == AAClientSecret || k == SigningKey
}

// Store seals value under key, overwriting any previous entry.
func Store(key Key, value string) error {
	if !key.valid() {
		return fmt.Errorf("unknown credential %q", key)
	}
	s, err := newSealer()
	if err != nil {
		return err
	}
	enc, err := s.seal([]byte(value))
	if err != nil {
		return err
	}
	creds, path, err := read()
	if err != nil {
		return err
	}
	creds[key] = enc
	return write(path, creds)
}

// Fetch unseals the value stored under key.
func Fetch(key Key) (string, error) {
	if !key.valid() {
		return "", fmt.Errorf("unknown credential %q", key)
	}
	creds, _, err := read()
	if err != nil {
		return "", err
	}
	enc, ok := creds[key]
	if !ok {
		return "", fmt.Errorf("credential %q not set", key)
	}
	s, err := newSealer()
	if err != nil {
		return "", err
	}
	plain, err := s.open(enc)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Delete removes the entry stored under key, if any.
func Delete(key Key) error {
	if !key.valid() {
		return fmt.Errorf("unknown credential %q", key)
	}
	creds, path, err := read()
	if err != nil {
		return err
	}
	delete(creds, key)
	return write(path, creds)
}

func read() (map[Key]string, string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, "", err
	}
	dir = filepath.Join(dir, "finlink")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, fileName)

	creds := map[Key]string{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, path, nil
		}
		return nil, "", err
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, "", err
	}
	return creds, path, nil
}

func write(path string, creds map[Key]string) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	// write-then-rename so a crash never leaves a truncated file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// sealer wraps one AEAD derived from the local user identity. The derivation
// only ties the file to this machine and account; it is obfuscation, not a
// defense against an attacker who can read the process environment.
type sealer struct {
	aead cipher.AEAD
}

func newSealer() (*sealer, error) {
	seed := fmt.Sprintf("finlink-%s-%s", runtime.GOOS, os.Getenv("USER"))
	sum := sha256.Sum256([]byte(seed))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(plain []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (s *sealer) open(enc string) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, err
	}
	if len(ct) < s.aead.NonceSize() {
		return nil, fmt.Errorf("sealed value too short")
	}
	nonce, body := ct[:s.aead.NonceSize()], ct[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, body, nil)
}
