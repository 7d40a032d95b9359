package core

import (
	"github.com/mailsift/phishing-detector/internal/scoring"
)

// ScanRecord is one persisted detection record, keyed by fingerprint.
// Timestamps are UTC ISO-8601 strings with second precision. Label is nil
// until ground truth is known.
type ScanRecord struct {
	ID          string
	Fingerprint string
	ScanCount   int
	FirstSeenAt string
	LastSeenAt  string
	LabeledAt   string
	LabelSource string
	Subject     string
	Body        string
	Sender      string
	Label       *int
	Source      string
	MLScore     float64
	RuleScore   float64
	FinalScore  float64
}

// Labeled reports whether the record carries a valid 0/1 ground-truth label.
func (r *ScanRecord) Labeled() bool {
	return r.Label != nil && (*r.Label == 0 || *r.Label == 1)
}

// Label origins.
const (
	LabelSourceModel    = "model"
	LabelSourceFeedback = "user_feedback"
	LabelSourceSeed     = "seed"
)

// Event is one immutable audit trail entry.
type Event struct {
	EventType      string
	Timestamp      string
	RecordID       string
	PayloadSummary string
}

// Event types.
const (
	EventTypeScan     = "scan"
	EventTypeFeedback = "feedback"
)

// EmailContent is the submitted content of one scan.
type EmailContent struct {
	Subject string
	Body    string
	Sender  string
	Source  string
}

// Scores carries the three signals persisted with a scan.
type Scores struct {
	ML    float64
	Rule  float64
	Final float64
}

// UpsertResult describes the outcome of a scan upsert.
type UpsertResult struct {
	RecordID       string
	AlreadySeen    bool
	AlreadyLabeled bool
	LabelSource    string
	ScanCount      int
	FirstSeenAt    string
	LastSeenAt     string
}

// UpdateLabelResult describes the outcome of a feedback label update.
// PreviousLabel is nil when the record had no valid label before.
type UpdateLabelResult struct {
	Success       bool
	NewlyLabeled  bool
	PreviousLabel *int
}

// LabeledExample is one normalized training sample for the classifier.
type LabeledExample struct {
	Text  string
	Label int
}

// AuditInfo is the store-derived portion of a scan response.
type AuditInfo struct {
	AlreadySeen    bool
	AlreadyLabeled bool
	LabelSource    string
	ScanCount      int
	FirstSeenAt    string
	LastSeenAt     string
}

// ClassifiedEmail is the full result of one scan.
type ClassifiedEmail struct {
	RecordID   string
	Prediction scoring.PredictionResult
	Audit      AuditInfo
}

// RetrainPolicy decides when accumulated feedback warrants retraining.
type RetrainPolicy struct {
	MinLabeled int
	BatchSize  int
}
