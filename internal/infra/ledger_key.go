package infra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	ledgerKeyFile = "ledger.key"
	ledgerKeySize = 32 // SQLCipher raw key
)

// ErrLedgerKeyExposed is returned when the key file can be read by other users.
var ErrLedgerKeyExposed = errors.New("ledger key file is accessible to other users")

func ledgerKeyPath(dataDir string) string {
	return filepath.Join(dataDir, ledgerKeyFile)
}

func newLedgerKey() ([]byte, error) {
	key := make([]byte, ledgerKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate ledger key: %w", err)
	}
	return key, nil
}

// readLedgerKey reads a hex key file. On Unix the file must be owner-only.
func readLedgerKey(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ledger key: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("%w: %s has mode %v, want 0600", ErrLedgerKeyExposed, path, info.Mode().Perm())
	}

	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ledger key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("ledger key %s is corrupt: %w", path, err)
	}
	if len(key) != ledgerKeySize {
		return nil, fmt.Errorf("ledger key %s is %d bytes, want %d", path, len(key), ledgerKeySize)
	}
	return key, nil
}

func writeLedgerKey(path string, key []byte) error {
	return writeFileAtomic(path, []byte(hex.EncodeToString(key)+"\n"), 0600)
}

// loadOrCreateLedgerKey returns the key stored in dataDir, creating the
// directory and a fresh key on first use.
func loadOrCreateLedgerKey(dataDir string) ([]byte, error) {
	path := ledgerKeyPath(dataDir)
	key, err := readLedgerKey(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return key, err
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if key, err = newLedgerKey(); err != nil {
		return nil, err
	}
	if err := writeLedgerKey(path, key); err != nil {
		return nil, fmt.Errorf("write ledger key: %w", err)
	}
	return key, nil
}
