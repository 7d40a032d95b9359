package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/core"
)

func newTestEventLog(t *testing.T) *CSVEventLog {
	t.Helper()
	log, err := NewCSVEventLog(filepath.Join(t.TempDir(), "events.csv"), zap.NewNop())
	require.NoError(t, err)
	return log
}

func TestEventLog_AppendPreservesOrder(t *testing.T) {
	log := newTestEventLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-1", "first"))
	require.NoError(t, log.Append(ctx, core.EventTypeFeedback, "id-2", "second"))
	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-3", "third"))

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "id-1", events[0].RecordID)
	assert.Equal(t, "id-2", events[1].RecordID)
	assert.Equal(t, "id-3", events[2].RecordID)
	assert.Equal(t, core.EventTypeFeedback, events[1].EventType)
	assert.Equal(t, "second", events[1].PayloadSummary)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, events[0].Timestamp)
}

func TestEventLog_AppendDoesNotRewritePriorEntries(t *testing.T) {
	log := newTestEventLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-1", "first"))

	before, err := os.ReadFile(log.path)
	require.NoError(t, err)

	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-2", "second"))

	after, err := os.ReadFile(log.path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)))
}

func TestEventLog_TruncatesLongSummaries(t *testing.T) {
	log := newTestEventLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-1", strings.Repeat("x", 2000)))

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].PayloadSummary, 500)
}

func TestEventLog_ReopenKeepsExistingEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	ctx := context.Background()

	log, err := NewCSVEventLog(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, core.EventTypeScan, "id-1", "first"))

	reopened, err := NewCSVEventLog(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reopened.Append(ctx, core.EventTypeScan, "id-2", "second"))

	events, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "id-1", events[0].RecordID)
	assert.Equal(t, "id-2", events[1].RecordID)
}
