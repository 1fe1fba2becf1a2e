package verification

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite for persistence
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed request store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	// Create requests table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			reference TEXT NOT NULL,
			amount INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			ocr_amount REAL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create requests table: %w", err)
	}

	// Create verified_payments table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verified_payments (
			reference TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			username TEXT,
			amount INTEGER NOT NULL,
			verified_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create verified_payments table: %w", err)
	}

	// Create join_tokens table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS join_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			used INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create join_tokens table: %w", err)
	}

	// Create bot_config table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bot_config table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetRequest retrieves the request for a user, nil if none exists
func (s *SQLiteStore) GetRequest(userID int64) (*Request, error) {
	var req Request
	var ocrAmount sql.NullFloat64

	err := s.db.QueryRow(`
		SELECT user_id, username, reference, amount, status, created_at, expires_at, ocr_amount
		FROM requests WHERE user_id = ?
	`, userID).Scan(
		&req.UserID,
		&req.Username,
		&req.Reference,
		&req.Amount,
		&req.Status,
		&req.CreatedAt,
		&req.ExpiresAt,
		&ocrAmount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}

	if ocrAmount.Valid {
		req.OCRAmount = &ocrAmount.Float64
	}

	return &req, nil
}

// SaveRequest inserts or replaces a user's request
func (s *SQLiteStore) SaveRequest(req *Request) error {
	var ocrAmount sql.NullFloat64
	if req.OCRAmount != nil {
		ocrAmount = sql.NullFloat64{Float64: *req.OCRAmount, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO requests (user_id, username, reference, amount, status, created_at, expires_at, ocr_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			reference = excluded.reference,
			amount = excluded.amount,
			status = excluded.status,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			ocr_amount = excluded.ocr_amount
	`, req.UserID, req.Username, req.Reference, req.Amount, req.Status,
		req.CreatedAt, req.ExpiresAt, ocrAmount)

	if err != nil {
		return fmt.Errorf("save request: %w", err)
	}
	return nil
}

// SetStatus updates the status of a user's request
func (s *SQLiteStore) SetStatus(userID int64, status Status, ocrAmount *float64) error {
	var err error
	if ocrAmount != nil {
		_, err = s.db.Exec(
			"UPDATE requests SET status = ?, ocr_amount = ? WHERE user_id = ?",
			status, *ocrAmount, userID,
		)
	} else {
		_, err = s.db.Exec(
			"UPDATE requests SET status = ? WHERE user_id = ?",
			status, userID,
		)
	}
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}

// LiveRequests returns all requests in a non-terminal state
func (s *SQLiteStore) LiveRequests() ([]Request, error) {
	rows, err := s.db.Query(`
		SELECT user_id, username, reference, amount, status, created_at, expires_at, ocr_amount
		FROM requests WHERE status IN (?, ?)
		ORDER BY created_at
	`, StatusPending, StatusVerifying)
	if err != nil {
		return nil, fmt.Errorf("query live requests: %w", err)
	}
	defer rows.Close()

	var reqs []Request
	for rows.Next() {
		var req Request
		var ocrAmount sql.NullFloat64
		if err := rows.Scan(
			&req.UserID,
			&req.Username,
			&req.Reference,
			&req.Amount,
			&req.Status,
			&req.CreatedAt,
			&req.ExpiresAt,
			&ocrAmount,
		); err != nil {
			return nil, fmt.Errorf("scan live request: %w", err)
		}
		if ocrAmount.Valid {
			req.OCRAmount = &ocrAmount.Float64
		}
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

// AddVerified records an approved payment
func (s *SQLiteStore) AddVerified(p VerifiedPayment) error {
	_, err := s.db.Exec(`
		INSERT INTO verified_payments (reference, user_id, username, amount, verified_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
			user_id = excluded.user_id,
			username = excluded.username,
			amount = excluded.amount,
			verified_at = excluded.verified_at
	`, p.Reference, p.UserID, p.Username, p.Amount, p.VerifiedAt)

	if err != nil {
		return fmt.Errorf("add verified payment: %w", err)
	}
	return nil
}

// History returns a user's verified payments, newest first
func (s *SQLiteStore) History(userID int64, limit int) ([]VerifiedPayment, error) {
	rows, err := s.db.Query(`
		SELECT reference, user_id, username, amount, verified_at
		FROM verified_payments WHERE user_id = ?
		ORDER BY verified_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var payments []VerifiedPayment
	for rows.Next() {
		var p VerifiedPayment
		if err := rows.Scan(&p.Reference, &p.UserID, &p.Username, &p.Amount, &p.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scan verified payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// Stats summarizes the request and payment tables
func (s *SQLiteStore) Stats() (*Stats, error) {
	var st Stats

	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM requests WHERE status IN (?, ?)",
		StatusPending, StatusVerifying,
	).Scan(&st.PendingCount)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM verified_payments",
	).Scan(&st.VerifiedCount, &st.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("count verified: %w", err)
	}

	return &st, nil
}

// Price returns the configured amount, or def when never set
func (s *SQLiteStore) Price(def int64) (int64, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM bot_config WHERE key = 'required_amount'",
	).Scan(&value)

	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get price: %w", err)
	}

	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored price %q: %w", value, err)
	}
	return amount, nil
}

// SetPrice persists a new required amount
func (s *SQLiteStore) SetPrice(amount int64) error {
	_, err := s.db.Exec(`
		INSERT INTO bot_config (key, value) VALUES ('required_amount', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatInt(amount, 10))

	if err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	return nil
}

// AddToken stores a join token
func (s *SQLiteStore) AddToken(t JoinToken) error {
	_, err := s.db.Exec(`
		INSERT INTO join_tokens (token, user_id, created_at, expires_at, used)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			used = excluded.used
	`, t.Token, t.UserID, t.CreatedAt, t.ExpiresAt, t.Used)

	if err != nil {
		return fmt.Errorf("add join token: %w", err)
	}
	return nil
}

// GetToken retrieves a token, nil if unknown
func (s *SQLiteStore) GetToken(token string) (*JoinToken, error) {
	var t JoinToken
	err := s.db.QueryRow(`
		SELECT token, user_id, created_at, expires_at, used
		FROM join_tokens WHERE token = ?
	`, token).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &t.Used)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get join token: %w", err)
	}
	return &t, nil
}

// MarkTokenUsed flags a token as consumed
func (s *SQLiteStore) MarkTokenUsed(token string) error {
	_, err := s.db.Exec("UPDATE join_tokens SET used = 1 WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	return nil
}

// HasUsedToken reports whether a user has ever consumed a token
func (s *SQLiteStore) HasUsedToken(userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		"SELECT 1 FROM join_tokens WHERE user_id = ? AND used = 1",
		userID,
	).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check used token: %w", err)
	}
	return true, nil
}

// DeleteExpiredTokens removes tokens past their expiry
func (s *SQLiteStore) DeleteExpiredTokens(now time.Time) error {
	_, err := s.db.Exec("DELETE FROM join_tokens WHERE expires_at < ? AND used = 0", now)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	return nil
}

// Close releases database resources
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
