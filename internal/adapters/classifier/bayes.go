package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/core"
)

// neutralScore is returned whenever no trained parameters are available.
const neutralScore = 0.5

// bayesParams is the serialized model: per-class document counts and token
// frequencies over the normalized training corpus.
type bayesParams struct {
	ClassDocs   [2]int            `json:"class_docs"`
	TokenCounts [2]map[string]int `json:"token_counts"`
	TotalTokens [2]int            `json:"total_tokens"`
	Vocabulary  int               `json:"vocabulary"`
}

// NaiveBayes is a multinomial naive Bayes text classifier with Laplace
// smoothing. Parameters persist as a JSON blob at a fixed path and are
// loaded at startup if present. It implements core.Classifier.
type NaiveBayes struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	params *bayesParams
}

// NewNaiveBayes opens the classifier, loading persisted parameters when a
// model file exists. A corrupt or unreadable file leaves the classifier
// untrained rather than failing startup.
func NewNaiveBayes(path string, logger *zap.Logger) *NaiveBayes {
	nb := &NaiveBayes{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read model file, starting untrained", zap.Error(err))
		} else {
			logger.Info("No pre-trained model found")
		}
		return nb
	}

	var params bayesParams
	if err := json.Unmarshal(data, &params); err != nil {
		logger.Warn("Failed to parse model file, starting untrained", zap.Error(err))
		return nb
	}

	nb.params = &params
	logger.Info("Loaded classifier model",
		zap.String("path", path),
		zap.Int("vocabulary", params.Vocabulary),
		zap.Int("samples", params.ClassDocs[0]+params.ClassDocs[1]))
	return nb
}

// Trained reports whether model parameters are available.
func (nb *NaiveBayes) Trained() bool {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.params != nil
}

// Predict returns the phishing probability for cleaned text, or 0.5 when
// untrained. It never fails a scan.
func (nb *NaiveBayes) Predict(ctx context.Context, cleanedText string) float64 {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	p := nb.params
	if p == nil {
		return neutralScore
	}

	tokens := tokenize(cleanedText)
	if len(tokens) == 0 {
		return neutralScore
	}

	totalDocs := p.ClassDocs[0] + p.ClassDocs[1]
	if totalDocs == 0 {
		return neutralScore
	}

	logProb := [2]float64{}
	for class := 0; class < 2; class++ {
		// Smooth the class prior as well so a single-class corpus still
		// yields finite probabilities.
		logProb[class] = math.Log(float64(p.ClassDocs[class]+1) / float64(totalDocs+2))
		denom := float64(p.TotalTokens[class] + p.Vocabulary + 1)
		for _, token := range tokens {
			count := 0
			if p.TokenCounts[class] != nil {
				count = p.TokenCounts[class][token]
			}
			logProb[class] += math.Log(float64(count+1) / denom)
		}
	}

	// P(phishing) via the log-odds to avoid underflow on long texts.
	return 1.0 / (1.0 + math.Exp(logProb[0]-logProb[1]))
}

// Retrain replaces the model parameters from the labeled corpus and
// persists them before committing, so a failed persist keeps the previous
// model serving.
func (nb *NaiveBayes) Retrain(ctx context.Context, corpus []core.LabeledExample) error {
	if len(corpus) == 0 {
		return errors.New("empty training corpus")
	}

	params := &bayesParams{
		TokenCounts: [2]map[string]int{make(map[string]int), make(map[string]int)},
	}
	vocab := make(map[string]struct{})

	for _, example := range corpus {
		if example.Label != 0 && example.Label != 1 {
			continue
		}
		params.ClassDocs[example.Label]++
		for _, token := range tokenize(example.Text) {
			params.TokenCounts[example.Label][token]++
			params.TotalTokens[example.Label]++
			vocab[token] = struct{}{}
		}
	}
	params.Vocabulary = len(vocab)

	if params.ClassDocs[0]+params.ClassDocs[1] == 0 {
		return errors.New("no valid labeled examples in corpus")
	}

	if err := nb.persist(params); err != nil {
		return err
	}

	nb.mu.Lock()
	nb.params = params
	nb.mu.Unlock()

	nb.logger.Info("Classifier retrained",
		zap.Int("samples", params.ClassDocs[0]+params.ClassDocs[1]),
		zap.Int("vocabulary", params.Vocabulary))

	return nil
}

func (nb *NaiveBayes) persist(params *bayesParams) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(nb.path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp := nb.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, nb.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace model file: %w", err)
	}

	return nil
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,;:!?\"'()[]{}<>")
		if len(token) > 1 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
