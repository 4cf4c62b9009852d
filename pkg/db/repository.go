package db

import (
	"context"
	"database/sql"

	"github.com/japaniel/tossa/pkg/phrase"
)

// PhraseRepository serves phrases from SQLite.
type PhraseRepository struct {
	DB *sql.DB
}

var _ phrase.Repository = PhraseRepository{}

func (r PhraseRepository) ListAll(ctx context.Context) ([]phrase.Phrase, error) {
	return ListPhrases(ctx, r.DB)
}

func (r PhraseRepository) Search(ctx context.Context, q phrase.Query) ([]phrase.Phrase, error) {
	return SearchPhrases(ctx, r.DB, q)
}

func (r PhraseRepository) GetByID(ctx context.Context, id string) (phrase.Phrase, error) {
	return GetPhrase(ctx, r.DB, id)
}
