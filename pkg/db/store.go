package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/tossa/pkg/phrase"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const phraseColumns = `id, native, target, tags, reading, class_main, class_sub, meaning_group`

// UpsertPhrase inserts p or updates the stored copy. New phrases are appended
// after the existing ones so ListPhrases keeps import order.
func UpsertPhrase(ctx context.Context, db DBExecutor, p phrase.Phrase) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return fmt.Errorf("phrase id must be non-empty")
	}
	tags, err := json.Marshal(nonNilTags(p.Tags))
	if err != nil {
		return fmt.Errorf("encode tags for %s: %w", id, err)
	}
	var classMain, classSub string
	if p.Class != nil {
		classMain, classSub = p.Class.Main, p.Class.Sub
	}

	_, err = db.ExecContext(ctx, `INSERT INTO phrases (`+phraseColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM phrases))
		ON CONFLICT(id) DO UPDATE SET
		  native = excluded.native,
		  target = excluded.target,
		  tags = excluded.tags,
		  reading = COALESCE(NULLIF(excluded.reading, ''), phrases.reading),
		  class_main = excluded.class_main,
		  class_sub = excluded.class_sub,
		  meaning_group = excluded.meaning_group`,
		id, p.Native, p.Target, string(tags), nullableString(p.Reading),
		nullableString(classMain), nullableString(classSub), nullableString(p.MeaningGroup))
	if err != nil {
		return fmt.Errorf("upsert phrase %s: %w", id, err)
	}
	return nil
}

// ListPhrases returns every phrase in import order.
func ListPhrases(ctx context.Context, db DBExecutor) ([]phrase.Phrase, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+phraseColumns+` FROM phrases ORDER BY position`)
	if err != nil {
		return nil, err
	}
	return scanPhrases(rows)
}

// GetPhrase returns the phrase with id or phrase.ErrNotFound.
func GetPhrase(ctx context.Context, db DBExecutor, id string) (phrase.Phrase, error) {
	row := db.QueryRowContext(ctx, `SELECT `+phraseColumns+` FROM phrases WHERE id = ?`, id)
	p, err := scanPhrase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return phrase.Phrase{}, phrase.ErrNotFound
	}
	return p, err
}

// SearchPhrases narrows by keyword, class and meaning group in SQL and applies
// the full query in Go.
func SearchPhrases(ctx context.Context, db DBExecutor, q phrase.Query) ([]phrase.Phrase, error) {
	var (
		conds []string
		args  []interface{}
	)
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		like := "%" + escapeLike(kw) + "%"
		conds = append(conds, `(native LIKE ? ESCAPE '\' OR target LIKE ? ESCAPE '\' OR IFNULL(reading, '') LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}
	if c := q.Class; c != nil {
		conds = append(conds, `class_main = ?`)
		args = append(args, c.Main)
		if c.Sub != "" {
			conds = append(conds, `class_sub = ?`)
			args = append(args, c.Sub)
		}
	}
	if q.MeaningGroup != "" {
		conds = append(conds, `meaning_group = ?`)
		args = append(args, q.MeaningGroup)
	}

	query := `SELECT ` + phraseColumns + ` FROM phrases`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY position`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	all, err := scanPhrases(rows)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// CountPhrases returns the number of stored phrases.
func CountPhrases(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM phrases`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPhrase(s scanner) (phrase.Phrase, error) {
	var p phrase.Phrase
	var tags string
	var reading, classMain, classSub, group sql.NullString
	if err := s.Scan(&p.ID, &p.Native, &p.Target, &tags, &reading, &classMain, &classSub, &group); err != nil {
		return phrase.Phrase{}, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return phrase.Phrase{}, fmt.Errorf("decode tags for %s: %w", p.ID, err)
	}
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	if reading.Valid {
		p.Reading = reading.String
	}
	if classMain.Valid || classSub.Valid {
		p.Class = &phrase.Classification{Main: classMain.String, Sub: classSub.String}
	}
	if group.Valid {
		p.MeaningGroup = group.String
	}
	return p, nil
}

func scanPhrases(rows *sql.Rows) ([]phrase.Phrase, error) {
	defer rows.Close()
	var out []phrase.Phrase
	for rows.Next() {
		p, err := scanPhrase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// nullableString returns nil for "" so optional columns stay NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
