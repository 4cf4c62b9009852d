package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/japaniel/tossa/pkg/db"
	"github.com/japaniel/tossa/pkg/phrase"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type prefixReader struct{}

func (prefixReader) Reading(s string) string { return "r:" + s }

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func makePhrases(n int) []phrase.Phrase {
	out := make([]phrase.Phrase, n)
	for i := range out {
		out[i] = phrase.Phrase{
			ID:     fmt.Sprintf("p%03d", i),
			Native: fmt.Sprintf("テスト%d", i),
			Target: fmt.Sprintf("test %d", i),
			Tags:   []string{"tag" + fmt.Sprint(i%3)},
		}
	}
	return out
}

func TestImportKeepsOrderAndFillsReadings(t *testing.T) {
	conn := setupDB(t)
	phrases := makePhrases(37)
	phrases[5].Reading = "kept"

	var mu sync.Mutex
	var progress [][2]int
	im := NewImporter(conn, prefixReader{})
	im.BatchSize = 4
	im.Workers = 3
	im.OnProgress = func(cur, total int) {
		mu.Lock()
		progress = append(progress, [2]int{cur, total})
		mu.Unlock()
	}

	n, err := im.Import(context.Background(), phrases)
	require.NoError(t, err)
	require.Equal(t, 37, n)

	got, err := db.ListPhrases(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, got, 37)
	for i, p := range got {
		require.Equal(t, phrases[i].ID, p.ID, "position %d", i)
	}
	require.Equal(t, "kept", got[5].Reading)
	require.Equal(t, "r:テスト6", got[6].Reading)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	require.Equal(t, [2]int{37, 37}, progress[len(progress)-1])
}

func TestImportUpdatesExisting(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()
	im := NewImporter(conn, nil)

	_, err := im.Import(ctx, makePhrases(3))
	require.NoError(t, err)

	changed := makePhrases(1)
	changed[0].Target = "changed"
	_, err = im.Import(ctx, changed)
	require.NoError(t, err)

	p, err := db.GetPhrase(ctx, conn, "p000")
	require.NoError(t, err)
	require.Equal(t, "changed", p.Target)
	count, err := db.CountPhrases(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestValidate(t *testing.T) {
	err := Validate([]phrase.Phrase{
		{ID: "a", Native: "はい", Target: "yes"},
		{ID: "", Native: "x", Target: "y"},
		{ID: "b", Native: "", Target: "no"},
		{ID: "a", Native: "うん", Target: "yeah"},
	})
	require.Error(t, err)
	msg := err.Error()
	require.True(t, strings.Contains(msg, "phrase 1: empty id"), msg)
	require.True(t, strings.Contains(msg, "phrase b: native and target are required"), msg)
	require.True(t, strings.Contains(msg, "phrase a: duplicate id"), msg)

	require.NoError(t, Validate(makePhrases(5)))
}

func TestImportRejectsInvalidInput(t *testing.T) {
	conn := setupDB(t)
	phrases := makePhrases(2)
	phrases[1].ID = phrases[0].ID

	n, err := NewImporter(conn, nil).Import(context.Background(), phrases)
	require.Error(t, err)
	require.Zero(t, n)
	count, _ := db.CountPhrases(context.Background(), conn)
	require.Zero(t, count)
}

func TestImportContextCancel(t *testing.T) {
	conn := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewImporter(conn, nil).Import(ctx, makePhrases(100))
	if n != 0 {
		t.Errorf("Expected 0 imported phrases with cancelled context, got %d", n)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func TestImportHandlesSubmitError(t *testing.T) {
	conn := setupDB(t)
	im := NewImporter(conn, nil)
	im.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := im.Import(ctx, makePhrases(10))
	if err == nil || !strings.Contains(err.Error(), "submit failed") {
		t.Fatalf("expected submit error, got %v", err)
	}
}

func TestImportEmpty(t *testing.T) {
	n, err := NewImporter(setupDB(t), nil).Import(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
