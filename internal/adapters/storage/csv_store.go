package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/core"
	"github.com/mailsift/phishing-detector/internal/fingerprint"
)

// recordColumns is the stable persisted field order.
var recordColumns = []string{
	"id",
	"fingerprint",
	"scan_count",
	"first_seen_at",
	"last_seen_at",
	"labeled_at",
	"label_source",
	"subject",
	"body",
	"sender",
	"label",
	"source",
	"ml_score",
	"rule_score",
	"final_score",
}

// CSVStore is a record store holding an ordered list of scan records in
// memory, indexed by fingerprint and id, mirrored to a CSV file that is
// rewritten wholesale on every mutation. A single mutex serializes all
// reads and writes; the in-memory state is only committed after the file
// rewrite succeeds, so readers never see a half-applied mutation.
type CSVStore struct {
	path   string
	events core.EventLog
	logger *zap.Logger

	mu            sync.Mutex
	records       []core.ScanRecord
	byFingerprint map[string]int
	byID          map[string]int
}

// NewCSVStore opens or idempotently initializes the backing file and loads
// the current records into memory.
func NewCSVStore(path string, events core.EventLog, logger *zap.Logger) (*CSVStore, error) {
	s := &CSVStore{
		path:          path,
		events:        events,
		logger:        logger,
		byFingerprint: make(map[string]int),
		byID:          make(map[string]int),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeRecordsFile(path, nil); err != nil {
			return nil, fmt.Errorf("failed to initialize records file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat records file: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	logger.Info("Opened record store",
		zap.String("path", path),
		zap.Int("records", len(s.records)))

	return s, nil
}

// UpsertScan records one scan under the store lock, then appends the scan
// event as a separate critical section once the mutation is durable.
func (s *CSVStore) UpsertScan(ctx context.Context, content core.EmailContent, scores core.Scores, predictedLabel string) (core.UpsertResult, error) {
	now := utcNowISO()
	fp := fingerprint.Compute(content.Subject, content.Body, content.Sender)

	result, err := s.applyUpsert(fp, content, scores, now)
	if err != nil {
		return core.UpsertResult{}, err
	}

	summary := fmt.Sprintf("seen_before=%d predicted=%s score=%.3f",
		boolToInt(result.AlreadySeen), predictedLabel, scores.Final)
	s.appendEvent(ctx, core.EventTypeScan, result.RecordID, summary)

	return result, nil
}

func (s *CSVStore) applyUpsert(fp string, content core.EmailContent, scores core.Scores, now string) (core.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byFingerprint[fp]; ok {
		rec := s.records[idx]
		if rec.ScanCount < 1 {
			rec.ScanCount = 1
		}
		rec.ScanCount++
		rec.LastSeenAt = now
		rec.MLScore = scores.ML
		rec.RuleScore = scores.Rule
		rec.FinalScore = scores.Final

		firstSeen := rec.FirstSeenAt
		if firstSeen == "" {
			firstSeen = now
		}

		alreadyLabeled := rec.Labeled()
		labelSource := strings.TrimSpace(rec.LabelSource)
		if alreadyLabeled && labelSource == "" {
			// Labeled rows predate label_source tracking; a set label can
			// only have come from feedback.
			labelSource = core.LabelSourceFeedback
			rec.LabelSource = labelSource
		}
		if labelSource == "" {
			labelSource = core.LabelSourceModel
		}

		if err := s.commitAt(idx, rec); err != nil {
			return core.UpsertResult{}, err
		}

		return core.UpsertResult{
			RecordID:       rec.ID,
			AlreadySeen:    true,
			AlreadyLabeled: alreadyLabeled,
			LabelSource:    labelSource,
			ScanCount:      rec.ScanCount,
			FirstSeenAt:    firstSeen,
			LastSeenAt:     now,
		}, nil
	}

	rec := core.ScanRecord{
		ID:          uuid.New().String(),
		Fingerprint: fp,
		ScanCount:   1,
		FirstSeenAt: now,
		LastSeenAt:  now,
		LabelSource: core.LabelSourceModel,
		Subject:     content.Subject,
		Body:        content.Body,
		Sender:      content.Sender,
		Source:      content.Source,
		MLScore:     scores.ML,
		RuleScore:   scores.Rule,
		FinalScore:  scores.Final,
	}

	if err := s.commitAppend(rec); err != nil {
		return core.UpsertResult{}, err
	}

	return core.UpsertResult{
		RecordID:    rec.ID,
		AlreadySeen: false,
		LabelSource: core.LabelSourceModel,
		ScanCount:   1,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}, nil
}

// UpdateLabel applies a ground-truth label by record id. Unknown ids are a
// non-error Success=false outcome.
func (s *CSVStore) UpdateLabel(ctx context.Context, recordID string, trueLabel int, labelSource string) (core.UpdateLabelResult, error) {
	now := utcNowISO()

	result, err := s.applyLabel(recordID, trueLabel, labelSource, now)
	if err != nil {
		return core.UpdateLabelResult{}, err
	}
	if !result.Success {
		return result, nil
	}

	summary := fmt.Sprintf("prev=%s new=%d newly_labeled=%d",
		labelString(result.PreviousLabel), trueLabel, boolToInt(result.NewlyLabeled))
	s.appendEvent(ctx, core.EventTypeFeedback, recordID, summary)

	return result, nil
}

func (s *CSVStore) applyLabel(recordID string, trueLabel int, labelSource, now string) (core.UpdateLabelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[recordID]
	if !ok {
		return core.UpdateLabelResult{Success: false}, nil
	}

	rec := s.records[idx]

	var previous *int
	if rec.Labeled() {
		v := *rec.Label
		previous = &v
	}

	label := trueLabel
	rec.Label = &label
	rec.LabelSource = labelSource
	rec.LabeledAt = now

	if err := s.commitAt(idx, rec); err != nil {
		return core.UpdateLabelResult{}, err
	}

	return core.UpdateLabelResult{
		Success:       true,
		NewlyLabeled:  previous == nil,
		PreviousLabel: previous,
	}, nil
}

// LoadAll returns a snapshot of the current records.
func (s *CSVStore) LoadAll(ctx context.Context) ([]core.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]core.ScanRecord, len(s.records))
	copy(snapshot, s.records)
	for i := range snapshot {
		if snapshot[i].Label != nil {
			v := *snapshot[i].Label
			snapshot[i].Label = &v
		}
	}
	return snapshot, nil
}

// commitAt persists the full record list with rec replacing position idx,
// committing to memory only after the file rewrite succeeds.
func (s *CSVStore) commitAt(idx int, rec core.ScanRecord) error {
	next := make([]core.ScanRecord, len(s.records))
	copy(next, s.records)
	next[idx] = rec

	if err := writeRecordsFile(s.path, next); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}

	s.records = next
	return nil
}

// commitAppend persists the record list with rec appended.
func (s *CSVStore) commitAppend(rec core.ScanRecord) error {
	next := make([]core.ScanRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)

	if err := writeRecordsFile(s.path, next); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}

	s.records = next
	idx := len(next) - 1
	s.byFingerprint[rec.Fingerprint] = idx
	s.byID[rec.ID] = idx
	return nil
}

// appendEvent reports the already-durable mutation to the audit trail. A
// failed append leaves the store authoritative and the log lagging.
func (s *CSVStore) appendEvent(ctx context.Context, eventType, recordID, summary string) {
	if err := s.events.Append(ctx, eventType, recordID, summary); err != nil {
		s.logger.Error("Failed to append audit event",
			zap.Error(err),
			zap.String("event_type", eventType),
			zap.String("record_id", recordID))
	}
}

func (s *CSVStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read records file: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		colIdx[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for _, row := range rows[1:] {
		rec := core.ScanRecord{
			ID:          field(row, "id"),
			Fingerprint: field(row, "fingerprint"),
			ScanCount:   parseScanCount(field(row, "scan_count")),
			FirstSeenAt: field(row, "first_seen_at"),
			LastSeenAt:  field(row, "last_seen_at"),
			LabeledAt:   field(row, "labeled_at"),
			LabelSource: field(row, "label_source"),
			Subject:     field(row, "subject"),
			Body:        field(row, "body"),
			Sender:      field(row, "sender"),
			Label:       parseLabel(field(row, "label")),
			Source:      field(row, "source"),
			MLScore:     parseScore(field(row, "ml_score")),
			RuleScore:   parseScore(field(row, "rule_score")),
			FinalScore:  parseScore(field(row, "final_score")),
		}
		if rec.ID == "" || rec.Fingerprint == "" {
			continue
		}
		s.records = append(s.records, rec)
		idx := len(s.records) - 1
		s.byFingerprint[rec.Fingerprint] = idx
		s.byID[rec.ID] = idx
	}

	return nil
}

// writeRecordsFile rewrites the backing file atomically: a temp file in the
// same directory is fully written and synced, then renamed over the target.
func writeRecordsFile(path string, records []core.ScanRecord) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(recordColumns); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	for i := range records {
		if err := writer.Write(recordToRow(&records[i])); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func recordToRow(rec *core.ScanRecord) []string {
	return []string{
		rec.ID,
		rec.Fingerprint,
		strconv.Itoa(rec.ScanCount),
		rec.FirstSeenAt,
		rec.LastSeenAt,
		rec.LabeledAt,
		rec.LabelSource,
		rec.Subject,
		rec.Body,
		rec.Sender,
		labelColumn(rec.Label),
		rec.Source,
		formatScore(rec.MLScore),
		formatScore(rec.RuleScore),
		formatScore(rec.FinalScore),
	}
}

// labelColumn is the persisted form: empty when unset.
func labelColumn(label *int) string {
	if label == nil {
		return ""
	}
	return strconv.Itoa(*label)
}

// labelString is the event summary form: "none" when unset.
func labelString(label *int) string {
	if label == nil {
		return "none"
	}
	return strconv.Itoa(*label)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseLabel(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "none" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	label := int(v)
	if label != 0 && label != 1 {
		return nil
	}
	return &label
}

func parseScanCount(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 1 {
		return 1
	}
	return int(v)
}

func parseScore(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
