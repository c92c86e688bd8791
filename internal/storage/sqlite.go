package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"twitch_notify/internal/model"
	"twitch_notify/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddChannel subscribes a recipient to a channel. It reports false when the
// subscription already existed.
func (s *SQLite) AddChannel(ctx context.Context, recipientID int64, channel string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (recipient_id, channel) VALUES (?, ?)`,
		recipientID, model.NormalizeChannel(channel),
	)
	if err != nil {
		return false, fmt.Errorf("insert channel: %w", err)
	}
	return affected(res)
}

// RemoveChannel unsubscribes a recipient from a channel. It reports false when
// there was nothing to remove.
func (s *SQLite) RemoveChannel(ctx context.Context, recipientID int64, channel string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM channels WHERE recipient_id = ? AND channel = ?`,
		recipientID, model.NormalizeChannel(channel),
	)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return affected(res)
}

// ListChannels returns the channels a recipient is subscribed to, sorted by name.
func (s *SQLite) ListChannels(ctx context.Context, recipientID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel FROM channels WHERE recipient_id = ? ORDER BY channel`, recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStrings(rows)
}

// ListAllSubscriptions returns every channel subscription of every recipient.
func (s *SQLite) ListAllSubscriptions(ctx context.Context) ([]model.ChannelSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recipient_id, channel FROM channels ORDER BY channel, recipient_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.ChannelSubscription
	for rows.Next() {
		var sub model.ChannelSubscription
		if err := rows.Scan(&sub.RecipientID, &sub.Channel); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// AnySubscriber reports whether at least one recipient subscribes to channel.
func (s *SQLite) AnySubscriber(ctx context.Context, channel string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE channel = ?)`,
		model.NormalizeChannel(channel),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subscriber: %w", err)
	}
	return exists == 1, nil
}

// CreateTrigger inserts a new trigger and populates its ID and CreatedAt.
func (s *SQLite) CreateTrigger(ctx context.Context, t *model.Trigger) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO triggers (recipient_id, pattern, case_sensitive, is_regex, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.RecipientID, t.Pattern, boolToInt(t.CaseSensitive), boolToInt(t.IsRegex), now,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("insert trigger %q: %w", t.Pattern, ErrDuplicate)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetTrigger returns a single trigger by its ID.
func (s *SQLite) GetTrigger(ctx context.Context, id int64) (*model.Trigger, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, recipient_id, pattern, case_sensitive, is_regex, created_at
		 FROM triggers WHERE id = ?`, id,
	)
	t, err := scanTrigger(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTriggers returns all triggers owned by the given recipient.
func (s *SQLite) ListTriggers(ctx context.Context, recipientID int64) ([]model.Trigger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, pattern, case_sensitive, is_regex, created_at
		 FROM triggers WHERE recipient_id = ? ORDER BY id`, recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTriggers(rows)
}

// DeleteTrigger removes a trigger by its ID.
func (s *SQLite) DeleteTrigger(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	return nil
}

// TriggersForChannel returns the triggers of every recipient subscribed to
// channel, grouped by recipient.
func (s *SQLite) TriggersForChannel(ctx context.Context, channel string) ([]model.Trigger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.recipient_id, t.pattern, t.case_sensitive, t.is_regex, t.created_at
		 FROM triggers t
		 JOIN channels c ON c.recipient_id = t.recipient_id
		 WHERE c.channel = ?
		 ORDER BY t.recipient_id, t.id`,
		model.NormalizeChannel(channel),
	)
	if err != nil {
		return nil, fmt.Errorf("query channel triggers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTriggers(rows)
}

// AddIgnore adds a chat username to a recipient's ignore list. It reports
// false when the username was already ignored.
func (s *SQLite) AddIgnore(ctx context.Context, recipientID int64, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ignores (recipient_id, username) VALUES (?, ?)`,
		recipientID, model.NormalizeUsername(username),
	)
	if err != nil {
		return false, fmt.Errorf("insert ignore: %w", err)
	}
	return affected(res)
}

// RemoveIgnore removes a chat username from a recipient's ignore list.
func (s *SQLite) RemoveIgnore(ctx context.Context, recipientID int64, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ignores WHERE recipient_id = ? AND username = ?`,
		recipientID, model.NormalizeUsername(username),
	)
	if err != nil {
		return false, fmt.Errorf("delete ignore: %w", err)
	}
	return affected(res)
}

// ListIgnores returns the usernames ignored by a recipient, sorted.
func (s *SQLite) ListIgnores(ctx context.Context, recipientID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM ignores WHERE recipient_id = ? ORDER BY username`, recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ignores: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStrings(rows)
}

// IgnoresForRecipients returns the ignore lists of the given recipients in a
// single query. Recipients without ignores are absent from the result.
func (s *SQLite) IgnoresForRecipients(ctx context.Context, recipientIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(recipientIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(recipientIDs))
	for i, id := range recipientIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(recipientIDs)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT recipient_id, username FROM ignores
		 WHERE recipient_id IN (`+placeholders+`)
		 ORDER BY recipient_id, username`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query recipient ignores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("scan ignore: %w", err)
		}
		out[id] = append(out[id], username)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTrigger(row scannable) (model.Trigger, error) {
	var t model.Trigger
	var caseSensitive, isRegex int
	var created sql.NullString
	err := row.Scan(&t.ID, &t.RecipientID, &t.Pattern, &caseSensitive, &isRegex, &created)
	if err != nil {
		return t, fmt.Errorf("scan trigger: %w", err)
	}
	t.CaseSensitive = caseSensitive == 1
	t.IsRegex = isRegex == 1
	if created.Valid {
		t.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return t, nil
}

func scanTriggers(rows *sql.Rows) ([]model.Trigger, error) {
	var triggers []model.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
