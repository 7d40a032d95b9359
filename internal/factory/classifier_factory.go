package factory

import (
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/adapters/classifier"
	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
)

// ClassifierFactory creates the statistical classifier from configuration
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{cfg: cfg, logger: logger}
}

// CreateClassifier creates the classifier, loading any persisted model
func (f *ClassifierFactory) CreateClassifier() core.Classifier {
	return classifier.NewNaiveBayes(f.cfg.GetModel().Path, f.logger)
}
