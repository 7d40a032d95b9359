package core

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/heuristics"
	"github.com/mailsift/phishing-detector/internal/scoring"
	"github.com/mailsift/phishing-detector/internal/textproc"
)

// ML scores substituted when the exact normalized text was previously
// labeled: strong but not absolute, so downstream consumers still see a
// probability rather than a hard 0/1.
const (
	overrideScorePhishing = 0.95
	overrideScoreSafe     = 0.05
)

// DetectionService orchestrates one scan or feedback request across the
// heuristic engine, classifier, scoring engine, record store and audit
// trail. The classifier is an injected handle, never shared implicit state,
// so concurrent service instances stay independent.
type DetectionService struct {
	store      RecordStore
	classifier Classifier
	logger     *zap.Logger
	policy     RetrainPolicy

	mu       sync.RWMutex
	override *OverrideIndex
}

// NewDetectionService creates a detection service and builds the historical
// override index. An index build failure degrades the override check to
// unavailable; it never fails startup.
func NewDetectionService(
	store RecordStore,
	classifier Classifier,
	logger *zap.Logger,
	policy RetrainPolicy,
) *DetectionService {
	s := &DetectionService{
		store:      store,
		classifier: classifier,
		logger:     logger,
		policy:     policy,
		override:   NewUnavailableOverrideIndex(),
	}

	records, err := store.LoadAll(context.Background())
	if err != nil {
		logger.Warn("Historical records unavailable, override check disabled", zap.Error(err))
		return s
	}
	s.override = BuildOverrideIndex(records, textproc.NormalizeEmailText)
	logger.Info("Built override index", zap.Int("labeled_texts", s.override.Size()))

	return s
}

// Scan classifies submitted email content, upserts the scan record and
// returns the combined verdict with its audit fields.
func (s *DetectionService) Scan(ctx context.Context, subject, body, sender, source string) (ClassifiedEmail, error) {
	normalized := textproc.NormalizeEmailText(subject + " " + body)

	mlScore := 0.5
	overrideActive := false

	s.mu.RLock()
	if label, ok := s.override.Lookup(normalized); ok {
		if label == 1 {
			mlScore = overrideScorePhishing
		} else {
			mlScore = overrideScoreSafe
		}
		overrideActive = true
	}
	s.mu.RUnlock()

	if overrideActive {
		s.logger.Debug("Exact match in labeled history, overriding classifier",
			zap.Float64("ml_score", mlScore))
	} else {
		mlScore = s.classifier.Predict(ctx, normalized)
	}

	sig := heuristics.Analyze(subject, body, sender)
	prediction := scoring.Combine(mlScore, sig.RuleScore, overrideActive, sig)

	upsert, err := s.store.UpsertScan(ctx,
		EmailContent{Subject: subject, Body: body, Sender: sender, Source: source},
		Scores{ML: prediction.MLScore, Rule: prediction.RuleScore, Final: prediction.FinalScore},
		prediction.Label,
	)
	if err != nil {
		return ClassifiedEmail{}, err
	}

	s.logger.Info("Scanned email",
		zap.String("record_id", upsert.RecordID),
		zap.String("label", prediction.Label),
		zap.Float64("final_score", prediction.FinalScore),
		zap.Bool("already_seen", upsert.AlreadySeen))

	return ClassifiedEmail{
		RecordID:   upsert.RecordID,
		Prediction: prediction,
		Audit: AuditInfo{
			AlreadySeen:    upsert.AlreadySeen,
			AlreadyLabeled: upsert.AlreadyLabeled,
			LabelSource:    upsert.LabelSource,
			ScanCount:      upsert.ScanCount,
			FirstSeenAt:    upsert.FirstSeenAt,
			LastSeenAt:     upsert.LastSeenAt,
		},
	}, nil
}

// Feedback applies a ground-truth label to a previously scanned record.
// Returns false when the record id is unknown. A retrain that the label
// triggers runs inline and its failure never rolls back the label.
func (s *DetectionService) Feedback(ctx context.Context, recordID string, isPhishing bool) (bool, error) {
	trueLabel := 0
	if isPhishing {
		trueLabel = 1
	}

	res, err := s.store.UpdateLabel(ctx, recordID, trueLabel, LabelSourceFeedback)
	if err != nil {
		return false, err
	}
	if !res.Success {
		return false, nil
	}

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		// The old index is stale now that a label changed; a stale
		// exact match must not outrank the fresher label, so the
		// override check degrades to unavailable until the next
		// successful rebuild.
		s.logger.Error("Failed to reload records after feedback, override check disabled", zap.Error(err))
		s.mu.Lock()
		s.override = NewUnavailableOverrideIndex()
		s.mu.Unlock()
		return true, nil
	}

	// The labeled corpus changed, so the override index is stale either way.
	s.mu.Lock()
	s.override = BuildOverrideIndex(records, textproc.NormalizeEmailText)
	s.mu.Unlock()

	if !res.NewlyLabeled {
		return true, nil
	}

	labeledCount := 0
	for i := range records {
		if records[i].Labeled() {
			labeledCount++
		}
	}

	if labeledCount < s.policy.MinLabeled || labeledCount%s.policy.BatchSize != 0 {
		return true, nil
	}

	corpus := LabeledCorpus(records)
	if err := s.classifier.Retrain(ctx, corpus); err != nil {
		s.logger.Error("Classifier retrain failed after feedback",
			zap.Error(err),
			zap.Int("labeled_count", labeledCount))
		return true, nil
	}

	s.logger.Info("Classifier retrained after feedback",
		zap.Int("labeled_count", labeledCount),
		zap.Int("corpus_size", len(corpus)))

	return true, nil
}

// LabeledCorpus extracts the normalized training corpus from records,
// keeping only valid 0/1 labels.
func LabeledCorpus(records []ScanRecord) []LabeledExample {
	corpus := make([]LabeledExample, 0, len(records))
	for i := range records {
		rec := &records[i]
		if !rec.Labeled() {
			continue
		}
		corpus = append(corpus, LabeledExample{
			Text:  textproc.NormalizeEmailText(rec.Subject + " " + rec.Body),
			Label: *rec.Label,
		})
	}
	return corpus
}
