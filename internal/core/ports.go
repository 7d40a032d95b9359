package core

import (
	"context"
)

// RecordStore owns the durable, deduplicated scan records. Implementations
// serialize all reads and writes with a single lock so a fingerprint can
// never map to two records, and must never expose a half-applied mutation.
type RecordStore interface {
	// UpsertScan records one scan: increments an existing record for the
	// content's fingerprint or creates a fresh one, then appends the scan
	// event once the mutation is durable.
	UpsertScan(ctx context.Context, content EmailContent, scores Scores, predictedLabel string) (UpsertResult, error)

	// UpdateLabel applies a ground-truth label to a record by id.
	// An unknown id yields Success=false, not an error.
	UpdateLabel(ctx context.Context, recordID string, trueLabel int, labelSource string) (UpdateLabelResult, error)

	// LoadAll returns a snapshot of every record.
	LoadAll(ctx context.Context) ([]ScanRecord, error)
}

// EventLog is the append-only audit trail, locked independently of the
// record store. Entries are never rewritten.
type EventLog interface {
	Append(ctx context.Context, eventType, recordID, summary string) error
}

// Classifier is the pluggable statistical classifier. Predict degrades to
// a neutral 0.5 when untrained rather than failing a scan.
type Classifier interface {
	Predict(ctx context.Context, cleanedText string) float64
	Retrain(ctx context.Context, corpus []LabeledExample) error
}
