package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const credentialService = "sqlchat"

var ErrCredentialNotFound = errors.New("credential not found")

// Seams for tests.
var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
	userHomeDir   = os.UserHomeDir
)

// CredentialSource says where a resolved key came from.
type CredentialSource string

const (
	SourceFlag  CredentialSource = "flag"
	SourceEnv   CredentialSource = "env"
	SourceStore CredentialSource = "keyring"
	SourceFile  CredentialSource = "file"
)

// ValidateCredential rejects keys that cannot be real: empty, containing
// whitespace, or implausibly short.
func ValidateCredential(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return errors.New("API key is empty")
	case strings.ContainsAny(key, " \t\r\n"):
		return errors.New("API key must not contain whitespace")
	case len(key) < 8:
		return errors.New("API key is too short")
	}
	return nil
}

// ResolveCredential finds the key for a provider kind: the flag value first,
// then the environment (which includes a loaded .env), then the keyring, then
// the credential file.
func ResolveCredential(kind Kind, flagValue string, getenv func(string) string) (string, CredentialSource, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, SourceFlag, nil
	}
	if getenv != nil {
		if key := strings.TrimSpace(getenv(EnvKey(kind))); key != "" {
			return key, SourceEnv, nil
		}
	}
	return loadStored(string(kind))
}

// StoreCredential saves key in the OS keyring, or in the 0600 credential file
// when no keyring is available.
func StoreCredential(keyName, key string) error {
	keyName, err := cleanKeyName(keyName)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if err := ValidateCredential(key); err != nil {
		return err
	}
	if err := keyringSet(credentialService, keyName, key); err == nil {
		return nil
	}
	return credentials.update(func(entries map[string]string) bool {
		entries[keyName] = key
		return true
	})
}

func loadStored(keyName string) (string, CredentialSource, error) {
	keyName, err := cleanKeyName(keyName)
	if err != nil {
		return "", "", err
	}
	if key, err := keyringGet(credentialService, keyName); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceStore, nil
	}
	entries, err := credentials.read()
	if err != nil {
		return "", "", err
	}
	if key := entries[keyName]; key != "" {
		return key, SourceFile, nil
	}
	return "", "", ErrCredentialNotFound
}

// DeleteCredential removes the key from both the keyring and the file. It
// returns ErrCredentialNotFound when neither held it.
func DeleteCredential(keyName string) error {
	keyName, err := cleanKeyName(keyName)
	if err != nil {
		return err
	}
	removedFromKeyring := keyringDelete(credentialService, keyName) == nil

	removedFromFile := false
	err = credentials.update(func(entries map[string]string) bool {
		if _, ok := entries[keyName]; !ok {
			return false
		}
		delete(entries, keyName)
		removedFromFile = true
		return true
	})
	if err != nil {
		return err
	}
	if !removedFromKeyring && !removedFromFile {
		return ErrCredentialNotFound
	}
	return nil
}

func cleanKeyName(keyName string) (string, error) {
	keyName = strings.TrimSpace(keyName)
	if keyName == "" {
		return "", errors.New("credential key name is empty")
	}
	return keyName, nil
}

// credentialFile is the keyring fallback: a JSON object of key name to key
// under ~/.config/sqlchat.
type credentialFile struct {
	mu sync.Mutex
}

var credentials = &credentialFile{}

func (f *credentialFile) path() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if home = strings.TrimSpace(home); home == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(home, ".config", "sqlchat", "credentials.json"), nil
}

func (f *credentialFile) read() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

// update applies fn to the entries and writes them back when fn reports a
// change.
func (f *credentialFile) update(fn func(map[string]string) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.readLocked()
	if err != nil {
		return err
	}
	if !fn(entries) {
		return nil
	}
	return f.writeLocked(entries)
}

func (f *credentialFile) readLocked() (map[string]string, error) {
	path, err := f.path()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	entries := map[string]string{}
	if strings.TrimSpace(string(raw)) == "" {
		return entries, nil
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	for k, v := range decoded {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			entries[k] = v
		}
	}
	return entries, nil
}

// writeLocked replaces the file atomically through a temp file in the same
// directory.
func (f *credentialFile) writeLocked(entries map[string]string) error {
	path, err := f.path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "credentials-*.json")
	if err != nil {
		return fmt.Errorf("create credential temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("set credential file permissions: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credential temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
