// Package keyring persists the session credentials in the operating system
// keyring, with an encrypted file for machines that have none (headless
// Linux, containers, CI).
package keyring

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/session"
	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

const (
	defaultUser         = "session"
	defaultProbeTimeout = 5 * time.Second
	probeKey            = "probe"
)

var errEntryNotFound = errors.New("entry not found")

// backend is the raw secret storage.
type backend interface {
	Set(service, user, secret string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

type systemBackend struct{}

func (systemBackend) Set(service, user, secret string) error { return keyring.Set(service, user, secret) }
func (systemBackend) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (systemBackend) Delete(service, user string) error        { return keyring.Delete(service, user) }

// TokenStore implements session.TokenStore.
type TokenStore struct {
	mu      sync.Mutex
	backend backend
	service string
	user    string
	log     zerolog.Logger
}

var _ session.TokenStore = (*TokenStore)(nil)

type config struct {
	user         string
	fallbackPath string
	passphrase   string
	probeTimeout time.Duration
	logger       zerolog.Logger
}

type Option func(*config)

// WithUser sets the keyring account name, which separates profiles of the
// same service.
func WithUser(user string) Option {
	return func(c *config) { c.user = user }
}

// WithFallbackFile sets the encrypted file used when the system keyring is
// unavailable and the passphrase its key is derived from.
func WithFallbackFile(path, passphrase string) Option {
	return func(c *config) {
		c.fallbackPath = path
		c.passphrase = passphrase
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(c *config) { c.probeTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New returns a token store for service. The system keyring is probed
// once; when it fails or hangs, the fallback file is used instead.
func New(service string, opts ...Option) *TokenStore {
	c := config{user: defaultUser, probeTimeout: defaultProbeTimeout, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&c)
	}

	ts := &TokenStore{service: service, user: c.user, log: c.logger}
	if probe(service, c.probeTimeout) {
		ts.backend = systemBackend{}
		return ts
	}

	path := c.fallbackPath
	if path == "" {
		path = DefaultFallbackPath(service)
	}
	c.logger.Warn().Str("path", path).Msg("system keyring unavailable, storing credentials in encrypted file")
	ts.backend = NewFileKeyring(path, c.passphrase)
	return ts
}

// NewFileTokenStore always uses the encrypted file.
func NewFileTokenStore(service, path, passphrase string) *TokenStore {
	return &TokenStore{
		backend: NewFileKeyring(path, passphrase),
		service: service,
		user:    defaultUser,
		log:     zerolog.Nop(),
	}
}

// probe writes and removes a test entry. Some keyring daemons block
// forever when locked, hence the timeout.
func probe(service string, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		err := keyring.Set(service, probeKey, "ok")
		if err == nil {
			_ = keyring.Delete(service, probeKey)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-time.After(timeout):
		return false
	}
}

func (t *TokenStore) Load(context.Context) (*session.Credentials, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blob, err := t.backend.Get(t.service, t.user)
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, errEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds session.Credentials
	if err := json.Unmarshal([]byte(blob), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if creds.Token == "" {
		return nil, nil
	}
	return &creds, nil
}

func (t *TokenStore) Save(_ context.Context, creds session.Credentials) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	blob, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := t.backend.Set(t.service, t.user, string(blob)); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func (t *TokenStore) Clear(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.backend.Delete(t.service, t.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// DefaultFallbackPath returns the credentials file under the user data
// directory.
func DefaultFallbackPath(service string) string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, service, "credentials.json")
	}
	return filepath.Join(os.TempDir(), service+"-credentials.json")
}

// FileKeyring stores AES-GCM encrypted entries in a JSON file.
type FileKeyring struct {
	path      string
	masterKey []byte
}

type fileEntry struct {
	Service string `json:"service"`
	User    string `json:"user"`
	Data    string `json:"data"`
}

func NewFileKeyring(path, passphrase string) *FileKeyring {
	key := sha256.Sum256([]byte(passphrase))
	return &FileKeyring{path: path, masterKey: key[:]}
}

func (f *FileKeyring) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt keyring file %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileKeyring) save(entries map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func entryKey(service, user string) string {
	return service + ":" + user
}

func (f *FileKeyring) Set(service, user, secret string) error {
	entries, err := f.load()
	if err != nil {
		return err
	}
	sealed, err := f.encrypt(secret)
	if err != nil {
		return err
	}
	entries[entryKey(service, user)] = fileEntry{Service: service, User: user, Data: sealed}
	return f.save(entries)
}

func (f *FileKeyring) Get(service, user string) (string, error) {
	entries, err := f.load()
	if err != nil {
		return "", err
	}
	entry, ok := entries[entryKey(service, user)]
	if !ok {
		return "", errEntryNotFound
	}
	return f.decrypt(entry.Data)
}

func (f *FileKeyring) Delete(service, user string) error {
	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[entryKey(service, user)]; !ok {
		return nil
	}
	delete(entries, entryKey(service, user))
	return f.save(entries)
}

func (f *FileKeyring) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileKeyring) encrypt(plaintext string) (string, error) {
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (f *FileKeyring) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt entry (wrong passphrase?): %w", err)
	}
	return string(plaintext), nil
}
