package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
)

const pickColumns = `session_id, ord, picked_at, phrase_id, primary_tag, rule, detail,
	answered, revealed, reveal_after_ms, timeout, elapsed_ms, tag_occurrence, consecutive_same_tag`

// AppendPick stores a new history entry.
func AppendPick(ctx context.Context, db DBExecutor, e history.Entry) error {
	if e.SessionID == "" {
		return fmt.Errorf("session id must be non-empty")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO picks (`+pickColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Order, e.Time.UnixMilli(), e.PhraseID, tagColumn(e.PrimaryTag), e.Rule, e.Detail,
		e.Answered, e.Revealed, e.RevealAfter.Milliseconds(), e.Timeout, e.Elapsed.Milliseconds(),
		e.TagOccurrenceOrder, e.ConsecutiveSameTag)
	if err != nil {
		return fmt.Errorf("append pick %d of session %s: %w", e.Order, e.SessionID, err)
	}
	return nil
}

// UpdatePickOutcome writes the outcome flags and timings of an existing entry.
func UpdatePickOutcome(ctx context.Context, db DBExecutor, e history.Entry) error {
	res, err := db.ExecContext(ctx, `UPDATE picks
		SET answered = ?, revealed = ?, reveal_after_ms = ?, timeout = ?, elapsed_ms = ?
		WHERE session_id = ? AND ord = ?`,
		e.Answered, e.Revealed, e.RevealAfter.Milliseconds(), e.Timeout, e.Elapsed.Milliseconds(),
		e.SessionID, e.Order)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no pick %d in session %s", e.Order, e.SessionID)
	}
	return nil
}

// LoadSession returns the entries of one session in order.
func LoadSession(ctx context.Context, db DBExecutor, sessionID string) ([]history.Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+pickColumns+` FROM picks WHERE session_id = ? ORDER BY ord`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanPicks(rows)
}

// RecentPicks returns the last limit entries across sessions, oldest first.
func RecentPicks(ctx context.Context, db DBExecutor, limit int) ([]history.Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+pickColumns+` FROM (
		SELECT * FROM picks ORDER BY id DESC LIMIT ?) ORDER BY id`, limit)
	if err != nil {
		return nil, err
	}
	return scanPicks(rows)
}

// LatestSession returns the session of the most recent pick, or "" when there is none.
func LatestSession(ctx context.Context, db DBExecutor) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT session_id FROM picks ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// ListSessions summarizes sessions, most recent first.
func ListSessions(ctx context.Context, db DBExecutor, limit int) ([]Session, error) {
	rows, err := db.QueryContext(ctx, `SELECT session_id, COUNT(*), MIN(picked_at), MAX(picked_at),
		SUM(CASE WHEN answered = 1 AND revealed = 0 AND timeout = 0 THEN 1 ELSE 0 END)
		FROM picks GROUP BY session_id ORDER BY MAX(id) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		var first, last int64
		if err := rows.Scan(&s.ID, &s.Picks, &first, &last, &s.Clean); err != nil {
			return nil, err
		}
		s.StartedAt, s.LastPickAt = time.UnixMilli(first), time.UnixMilli(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPicks(rows *sql.Rows) ([]history.Entry, error) {
	defer rows.Close()
	var out []history.Entry
	for rows.Next() {
		var e history.Entry
		var tag sql.NullString
		var pickedMS, revealMS, elapsedMS int64
		if err := rows.Scan(&e.SessionID, &e.Order, &pickedMS, &e.PhraseID, &tag, &e.Rule, &e.Detail,
			&e.Answered, &e.Revealed, &revealMS, &e.Timeout, &elapsedMS, &e.TagOccurrenceOrder, &e.ConsecutiveSameTag); err != nil {
			return nil, err
		}
		if tag.Valid {
			e.PrimaryTag = phrase.NewTag(tag.String)
		}
		e.Time = time.UnixMilli(pickedMS)
		e.RevealAfter = time.Duration(revealMS) * time.Millisecond
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// tagColumn stores Untagged as NULL.
func tagColumn(t phrase.Tag) interface{} {
	if t.IsUntagged() {
		return nil
	}
	return t.Name()
}
