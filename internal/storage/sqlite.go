package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"relaybot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (creating if needed) the SQLite database at cfg.Path and runs
// the embedded migrations. Safe to call on every process start.
func Open(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) UpsertChat(ctx context.Context, c Chat) error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = strconv.FormatInt(c.ID, 10)
	}
	// First observation wins; later title/type changes are not tracked.
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chats(chat_id, title, type) VALUES(?,?,?)`,
		c.ID, title, c.Kind,
	)
	return err
}

func (s *sqliteStore) ChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM chats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) GrantAdmin(ctx context.Context, userID int64, owner bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins(user_id, is_owner) VALUES(?,?)
		 ON CONFLICT(user_id) DO UPDATE SET is_owner = excluded.is_owner OR admins.is_owner`,
		userID, boolInt(owner),
	)
	return err
}

func (s *sqliteStore) RevokeAdmin(ctx context.Context, userID int64) error {
	// Owner rows survive; only a manual edit can clear is_owner.
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM admins WHERE user_id = ? AND is_owner = 0`, userID)
	return err
}

func (s *sqliteStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM admins WHERE user_id = ?`, userID)
}

func (s *sqliteStore) IsOwner(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM admins WHERE user_id = ? AND is_owner = 1`, userID)
}

func (s *sqliteStore) HasAnyOwner(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM admins WHERE is_owner = 1 LIMIT 1`)
}

func (s *sqliteStore) AdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM admins ORDER BY is_owner DESC, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&st.Chats); err != nil {
		return Stats{}, err
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_owner), 0) FROM admins`).Scan(&st.Admins, &st.Owners)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *sqliteStore) Maintain(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `PRAGMA optimize`)
	return err
}

func (s *sqliteStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
