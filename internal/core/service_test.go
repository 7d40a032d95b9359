package core_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/adapters/storage"
	"github.com/mailsift/phishing-detector/internal/core"
)

// fakeClassifier records retrain activity and returns a fixed score.
type fakeClassifier struct {
	score       float64
	retrains    int
	corpusSizes []int
	retrainErr  error
}

func (c *fakeClassifier) Predict(ctx context.Context, text string) float64 { return c.score }

func (c *fakeClassifier) Retrain(ctx context.Context, corpus []core.LabeledExample) error {
	if c.retrainErr != nil {
		return c.retrainErr
	}
	c.retrains++
	c.corpusSizes = append(c.corpusSizes, len(corpus))
	return nil
}

func newTestService(t *testing.T, classifier core.Classifier, policy core.RetrainPolicy) *core.DetectionService {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	events, err := storage.NewCSVEventLog(filepath.Join(dir, "events.csv"), logger)
	require.NoError(t, err)
	store, err := storage.NewCSVStore(filepath.Join(dir, "emails.csv"), events, logger)
	require.NoError(t, err)

	return core.NewDetectionService(store, classifier, logger, policy)
}

func defaultPolicy() core.RetrainPolicy {
	return core.RetrainPolicy{MinLabeled: 6, BatchSize: 3}
}

func TestScan_NewEmail(t *testing.T) {
	svc := newTestService(t, &fakeClassifier{score: 0.5}, defaultPolicy())

	res, err := svc.Scan(context.Background(),
		"You Won The Lottery", "Click here to claim your prize money now", "winner@lottery-intl.xyz", "gmail_addon")
	require.NoError(t, err)

	assert.NotEmpty(t, res.RecordID)
	assert.False(t, res.Audit.AlreadySeen)
	assert.False(t, res.Audit.AlreadyLabeled)
	assert.Equal(t, 1, res.Audit.ScanCount)
	assert.Equal(t, 0.5, res.Prediction.MLScore)
	assert.Greater(t, res.Prediction.RuleScore, 0.0)
}

func TestScan_RepeatIncrementsScanCount(t *testing.T) {
	svc := newTestService(t, &fakeClassifier{score: 0.5}, defaultPolicy())
	ctx := context.Background()

	first, err := svc.Scan(ctx, "Hello", "Just checking in", "friend@example.com", "gmail_addon")
	require.NoError(t, err)
	second, err := svc.Scan(ctx, "Hello", "Just checking in", "friend@example.com", "gmail_addon")
	require.NoError(t, err)

	assert.Equal(t, first.RecordID, second.RecordID)
	assert.True(t, second.Audit.AlreadySeen)
	assert.Equal(t, 2, second.Audit.ScanCount)
}

func TestFeedback_UnknownRecordID(t *testing.T) {
	svc := newTestService(t, &fakeClassifier{score: 0.5}, defaultPolicy())

	ok, err := svc.Feedback(context.Background(), "no-such-id", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeedback_ActivatesOverrideOnRescan(t *testing.T) {
	classifier := &fakeClassifier{score: 0.2}
	svc := newTestService(t, classifier, defaultPolicy())
	ctx := context.Background()

	first, err := svc.Scan(ctx, "Invoice attached", "Please review the attached invoice", "billing@example.com", "gmail_addon")
	require.NoError(t, err)

	ok, err := svc.Feedback(ctx, first.RecordID, true)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := svc.Scan(ctx, "Invoice attached", "Please review the attached invoice", "billing@example.com", "gmail_addon")
	require.NoError(t, err)

	// Exact match in labeled history bypasses the classifier entirely.
	assert.Equal(t, 0.95, second.Prediction.MLScore)
	assert.Equal(t, second.Prediction.MLScore, second.Prediction.FinalScore)
	assert.Equal(t, "Phishing", second.Prediction.Label)
	assert.True(t, second.Audit.AlreadyLabeled)
	assert.Equal(t, core.LabelSourceFeedback, second.Audit.LabelSource)
}

func TestFeedback_SafeOverrideScore(t *testing.T) {
	classifier := &fakeClassifier{score: 0.9}
	svc := newTestService(t, classifier, defaultPolicy())
	ctx := context.Background()

	first, err := svc.Scan(ctx, "Team lunch", "Are you coming to lunch on Friday?", "colleague@example.com", "gmail_addon")
	require.NoError(t, err)

	ok, err := svc.Feedback(ctx, first.RecordID, false)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := svc.Scan(ctx, "Team lunch", "Are you coming to lunch on Friday?", "colleague@example.com", "gmail_addon")
	require.NoError(t, err)

	assert.Equal(t, 0.05, second.Prediction.MLScore)
	assert.Equal(t, second.Prediction.MLScore, second.Prediction.FinalScore)
	assert.Equal(t, "Safe", second.Prediction.Label)
}

func TestFeedback_RetrainCadence(t *testing.T) {
	classifier := &fakeClassifier{score: 0.5}
	svc := newTestService(t, classifier, defaultPolicy())
	ctx := context.Background()

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		res, err := svc.Scan(ctx,
			fmt.Sprintf("Subject number %d", i),
			fmt.Sprintf("Body text for message number %d with enough words", i),
			"sender@example.com", "gmail_addon")
		require.NoError(t, err)
		ids = append(ids, res.RecordID)
	}

	wantRetrains := map[int]int{6: 1, 9: 2, 12: 3}
	expected := 0
	for i, id := range ids {
		ok, err := svc.Feedback(ctx, id, i%2 == 0)
		require.NoError(t, err)
		require.True(t, ok)

		if n, hit := wantRetrains[i+1]; hit {
			expected = n
		}
		assert.Equal(t, expected, classifier.retrains, "after label %d", i+1)
	}

	// Each retrain saw every labeled record available at that point.
	assert.Equal(t, []int{6, 9, 12}, classifier.corpusSizes)
}

func TestFeedback_RelabelDoesNotRetrain(t *testing.T) {
	classifier := &fakeClassifier{score: 0.5}
	svc := newTestService(t, classifier, core.RetrainPolicy{MinLabeled: 2, BatchSize: 1})
	ctx := context.Background()

	first, err := svc.Scan(ctx, "One", "First message body", "a@example.com", "gmail_addon")
	require.NoError(t, err)
	second, err := svc.Scan(ctx, "Two", "Second message body", "b@example.com", "gmail_addon")
	require.NoError(t, err)

	_, err = svc.Feedback(ctx, first.RecordID, true)
	require.NoError(t, err)
	_, err = svc.Feedback(ctx, second.RecordID, false)
	require.NoError(t, err)
	require.Equal(t, 1, classifier.retrains)

	// Flipping an existing label updates the record but is not newly labeled.
	ok, err := svc.Feedback(ctx, first.RecordID, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, classifier.retrains)

	rescan, err := svc.Scan(ctx, "One", "First message body", "a@example.com", "gmail_addon")
	require.NoError(t, err)
	assert.Equal(t, 0.05, rescan.Prediction.MLScore)
}

func TestFeedback_RetrainFailureKeepsLabel(t *testing.T) {
	classifier := &fakeClassifier{score: 0.5, retrainErr: errors.New("model disk full")}
	svc := newTestService(t, classifier, core.RetrainPolicy{MinLabeled: 1, BatchSize: 1})
	ctx := context.Background()

	res, err := svc.Scan(ctx, "Broken", "Retrain will fail for this one", "x@example.com", "gmail_addon")
	require.NoError(t, err)

	ok, err := svc.Feedback(ctx, res.RecordID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	rescan, err := svc.Scan(ctx, "Broken", "Retrain will fail for this one", "x@example.com", "gmail_addon")
	require.NoError(t, err)
	assert.True(t, rescan.Audit.AlreadyLabeled)
	assert.Equal(t, 0.95, rescan.Prediction.MLScore)
}

func TestLabeledCorpus_FiltersUnlabeled(t *testing.T) {
	one := 1
	zero := 0
	records := []core.ScanRecord{
		{Subject: "Spam offer", Body: "Buy now", Label: &one},
		{Subject: "Unlabeled", Body: "No label yet"},
		{Subject: "Newsletter", Body: "Monthly update", Label: &zero},
	}

	corpus := core.LabeledCorpus(records)
	require.Len(t, corpus, 2)
	assert.Equal(t, 1, corpus[0].Label)
	assert.Equal(t, 0, corpus[1].Label)
	assert.Contains(t, corpus[0].Text, "spam offer")
}

// flakyStore delegates to a real store but can be made to fail reloads.
type flakyStore struct {
	core.RecordStore
	failLoadAll bool
}

func (s *flakyStore) LoadAll(ctx context.Context) ([]core.ScanRecord, error) {
	if s.failLoadAll {
		return nil, errors.New("records file unreadable")
	}
	return s.RecordStore.LoadAll(ctx)
}

func TestFeedback_ReloadFailureDisablesOverride(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	events, err := storage.NewCSVEventLog(filepath.Join(dir, "events.csv"), logger)
	require.NoError(t, err)
	inner, err := storage.NewCSVStore(filepath.Join(dir, "emails.csv"), events, logger)
	require.NoError(t, err)
	store := &flakyStore{RecordStore: inner}

	classifier := &fakeClassifier{score: 0.2}
	svc := core.NewDetectionService(store, classifier, logger, defaultPolicy())
	ctx := context.Background()

	first, err := svc.Scan(ctx, "Reset your password", "Follow this link to reset", "it@example.com", "gmail_addon")
	require.NoError(t, err)

	store.failLoadAll = true
	ok, err := svc.Feedback(ctx, first.RecordID, true)
	require.NoError(t, err)
	require.True(t, ok)

	// The label landed but the index rebuild failed, so the stale index
	// must not serve exact matches; the classifier decides instead.
	second, err := svc.Scan(ctx, "Reset your password", "Follow this link to reset", "it@example.com", "gmail_addon")
	require.NoError(t, err)
	assert.Equal(t, 0.2, second.Prediction.MLScore)
	assert.True(t, second.Audit.AlreadyLabeled)

	// The next successful rebuild restores the override.
	store.failLoadAll = false
	ok, err = svc.Feedback(ctx, first.RecordID, true)
	require.NoError(t, err)
	require.True(t, ok)

	third, err := svc.Scan(ctx, "Reset your password", "Follow this link to reset", "it@example.com", "gmail_addon")
	require.NoError(t, err)
	assert.Equal(t, 0.95, third.Prediction.MLScore)
}
