package db

import (
	"context"
	"time"

	"github.com/japaniel/tossa/pkg/phrase"
)

// AddStar marks id as mastered. Starring twice keeps the first timestamp.
func AddStar(ctx context.Context, db DBExecutor, id string, at time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO stars (phrase_id, starred_at) VALUES (?, ?)
		ON CONFLICT(phrase_id) DO NOTHING`, id, at.UnixMilli())
	return err
}

// RemoveStar drops the star of id, if any.
func RemoveStar(ctx context.Context, db DBExecutor, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM stars WHERE phrase_id = ?`, id)
	return err
}

// LoadStars returns the ids of every starred phrase.
func LoadStars(ctx context.Context, db DBExecutor) (phrase.IDSet, error) {
	rows, err := db.QueryContext(ctx, `SELECT phrase_id FROM stars`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := phrase.NewIDSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out.Add(id)
	}
	return out, rows.Err()
}

// ClearStars removes every star and returns how many there were.
func ClearStars(ctx context.Context, db DBExecutor) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM stars`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
