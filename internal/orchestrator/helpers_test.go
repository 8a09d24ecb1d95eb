package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"simcheck/internal/blob"
	"simcheck/internal/logger"
	"simcheck/internal/reports"
	"simcheck/internal/store"
)

const (
	essay1 = "The industrial revolution transformed European economies. Factories replaced cottage industries, and steam power enabled mass production across Britain."
	essay3 = "Photosynthesis lets plants convert sunlight into chemical energy stored as glucose inside chloroplast membranes."
	essay4 = "Medieval castles were built on hills for defence, with thick stone walls, moats and narrow arrow slits."
)

type fixture struct {
	store   *store.MemoryStore
	blobs   *blob.MemoryStore
	texts   *TextLoader
	reports *reports.Manager
	opts    Options
}

func newFixture() *fixture {
	st, bl := store.NewMemory(), blob.NewMemory()
	return &fixture{
		store:   st,
		blobs:   bl,
		texts:   NewTextLoader(bl),
		reports: reports.NewManager(st, bl, logger.Discard()),
		opts:    Options{WorkerLimit: 3, Call: CallPolicy{Timeout: time.Second, Attempts: 1}},
	}
}

func (f *fixture) addDoc(t *testing.T, id, title, text string) store.Document {
	t.Helper()
	ctx := context.Background()
	key := "documents/" + id + ".txt"
	require.NoError(t, f.blobs.Put(ctx, key, []byte(text), "text/plain"))
	doc, err := f.store.CreateDocument(ctx, store.Document{
		ID:          id,
		Title:       title,
		OwnerID:     "alice",
		Filename:    title + ".txt",
		ContentType: "text/plain",
		Size:        int64(len(text)),
		ContentHash: "hash-" + id,
		StorageRef:  key,
		Status:      store.StatusReady,
	})
	require.NoError(t, err)
	return doc
}
