package logging

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSink_WriteAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Write(&Event{
		Timestamp: time.Now().UTC(),
		EngineID:  "eng-a",
		EventType: EventHandlerMatched,
		Summary:   "matched GET /health",
		Tags:      []string{"mock", "health"},
		Data:      []byte(`{"pattern":"*/health"}`),
	}))
	require.NoError(t, sink.Write(&Event{
		Timestamp: time.Now().UTC(),
		EngineID:  "eng-a",
		EventType: EventPassthrough,
		Summary:   "forwarded GET /other",
	}))
	require.NoError(t, sink.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count))
	assert.Equal(t, 2, count)

	var summary, tags, data string
	require.NoError(t, db.QueryRow(
		`SELECT summary, tags, data FROM events WHERE event_type = ?`,
		EventHandlerMatched).Scan(&summary, &tags, &data))
	assert.Equal(t, "matched GET /health", summary)
	assert.Equal(t, "mock,health", tags)
	assert.JSONEq(t, `{"pattern":"*/health"}`, data)
}

func TestSQLiteSink_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	for i := 0; i < 2; i++ {
		sink, err := NewSQLiteSink(path)
		require.NoError(t, err)
		require.NoError(t, sink.Write(&Event{
			Timestamp: time.Now().UTC(),
			EngineID:  "eng-a",
			EventType: EventLifecycle,
			Summary:   "running",
		}))
		require.NoError(t, sink.Close())
	}

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count))
	assert.Equal(t, 2, count)
}
