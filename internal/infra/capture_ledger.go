package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const ledgerDBName = "captures.db"

// CaptureLedger implements domain.CaptureRecorder on a SQLCipher encrypted
// SQLite database. It is an append-only history; jobs never read it back.
type CaptureLedger struct {
	db      *sql.DB
	dbPath  string
	keyPath string // empty when the caller supplied the key
}

// NewCaptureLedger opens (or creates) the ledger in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewCaptureLedger(dataDir string, key []byte) (*CaptureLedger, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, ledgerDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture ledger: %w", err)
	}
	// The key is per connection; a rekeyed file must stay on this one.
	db.SetMaxOpenConns(1)

	// A wrong key surfaces here, not at Open.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to capture ledger: %w", err)
	}

	ledger := &CaptureLedger{db: db, dbPath: dbPath}
	if err := ledger.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return ledger, nil
}

func (l *CaptureLedger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial TEXT NOT NULL,
		mode TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		dpi INTEGER NOT NULL,
		path TEXT NOT NULL,
		digest TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		captured_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_captures_serial ON captures (serial);
	`
	_, err := l.db.Exec(schema)
	return err
}

// RecordCapture appends rec to the history.
func (l *CaptureLedger) RecordCapture(rec domain.CaptureRecord) error {
	capturedAt := rec.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	_, err := l.db.Exec(`
		INSERT INTO captures (serial, mode, width, height, dpi, path, digest, size_bytes, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Serial, rec.Mode, rec.Width, rec.Height, rec.DPI,
		rec.Path, rec.Digest, rec.SizeBytes, capturedAt.UnixNano(),
	)
	return err
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (l *CaptureLedger) Recent(limit int) ([]domain.CaptureRecord, error) {
	query := `SELECT id, serial, mode, width, height, dpi, path, digest, size_bytes, captured_at
		FROM captures ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CaptureRecord
	for rows.Next() {
		var rec domain.CaptureRecord
		var capturedAt int64
		if err := rows.Scan(&rec.ID, &rec.Serial, &rec.Mode, &rec.Width, &rec.Height, &rec.DPI,
			&rec.Path, &rec.Digest, &rec.SizeBytes, &capturedAt); err != nil {
			return nil, err
		}
		rec.CapturedAt = time.Unix(0, capturedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Path returns the database file path.
func (l *CaptureLedger) Path() string {
	return l.dbPath
}

// Close releases the database connection.
func (l *CaptureLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// OpenCaptureLedger opens the ledger in dataDir with the key stored next to
// it, generating the key on first use.
func OpenCaptureLedger(dataDir string) (*CaptureLedger, error) {
	key, err := loadOrCreateLedgerKey(dataDir)
	if err != nil {
		return nil, err
	}
	ledger, err := NewCaptureLedger(dataDir, key)
	if err != nil {
		return nil, err
	}
	ledger.keyPath = ledgerKeyPath(dataDir)
	return ledger, nil
}

// RotateKey re-encrypts the ledger under a new random key and replaces the
// key file. The new key is staged before the rekey so a crash leaves either
// the old key or the new one recoverable on disk.
func (l *CaptureLedger) RotateKey() error {
	if l.keyPath == "" {
		return fmt.Errorf("ledger was opened with a caller-supplied key")
	}

	key, err := newLedgerKey()
	if err != nil {
		return err
	}
	staged := l.keyPath + ".new"
	if err := writeLedgerKey(staged, key); err != nil {
		return fmt.Errorf("stage ledger key: %w", err)
	}

	if _, err := l.db.Exec(fmt.Sprintf(`PRAGMA rekey = "x'%s'"`, hex.EncodeToString(key))); err != nil {
		os.Remove(staged)
		return fmt.Errorf("rekey capture ledger: %w", err)
	}
	if err := os.Rename(staged, l.keyPath); err != nil {
		return fmt.Errorf("ledger rekeyed but key file not replaced, new key is in %s: %w", staged, err)
	}
	return nil
}

// Ensure CaptureLedger implements domain.CaptureRecorder.
var _ domain.CaptureRecorder = (*CaptureLedger)(nil)
