package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/core"
)

// Payload summaries are bounded so a huge email body can never bloat the
// audit trail.
const maxSummaryChars = 500

var eventColumns = []string{"event_type", "timestamp", "record_id", "payload_summary"}

// CSVEventLog is a strictly append-only audit trail backed by a CSV file.
// It holds its own lock, independent of the record store's, and never
// rewrites prior entries.
type CSVEventLog struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCSVEventLog idempotently initializes the event file.
func NewCSVEventLog(path string, logger *zap.Logger) (*CSVEventLog, error) {
	l := &CSVEventLog{path: path, logger: logger}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// Append writes one event with the current timestamp, truncating the
// summary to the bounded length.
func (l *CSVEventLog) Append(ctx context.Context, eventType, recordID, summary string) error {
	if runes := []rune(summary); len(runes) > maxSummaryChars {
		summary = string(runes[:maxSummaryChars])
	}
	row := []string{eventType, utcNowISO(), recordID, summary}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ReadAll returns every event in append order.
func (l *CSVEventLog) ReadAll(ctx context.Context) ([]core.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	var events []core.Event
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		events = append(events, core.Event{
			EventType:      row[0],
			Timestamp:      row[1],
			RecordID:       row[2],
			PayloadSummary: row[3],
		})
	}
	return events, nil
}

func (l *CSVEventLog) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat event log: %w", err)
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to create event log: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(eventColumns); err != nil {
		return fmt.Errorf("failed to write event log header: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// utcNowISO formats the current time the way every persisted timestamp is
// stored: UTC, second precision, trailing Z.
func utcNowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05") + "Z"
}
