package di

import (
	"go.uber.org/dig"

	"github.com/mailsift/phishing-detector/internal/adapters/httpapi"
	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
	"github.com/mailsift/phishing-detector/internal/factory"
	"github.com/mailsift/phishing-detector/internal/logging"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}

	// Register event log
	if err := container.Provide(func(f *factory.StorageFactory) (core.EventLog, error) {
		return f.CreateEventLog()
	}); err != nil {
		return nil, err
	}

	// Register record store
	if err := container.Provide(func(f *factory.StorageFactory, events core.EventLog) (core.RecordStore, error) {
		return f.CreateRecordStore(events)
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) core.Classifier {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register retrain policy
	if err := container.Provide(func(cfg *config.Config) core.RetrainPolicy {
		retrain := cfg.GetRetrain()
		return core.RetrainPolicy{
			MinLabeled: retrain.MinLabeled,
			BatchSize:  retrain.BatchSize,
		}
	}); err != nil {
		return nil, err
	}

	// Register detection service
	if err := container.Provide(core.NewDetectionService); err != nil {
		return nil, err
	}
	if err := container.Provide(func(svc *core.DetectionService) httpapi.Service {
		return svc
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(cfg *config.Config) config.ServerConfig {
		return cfg.GetServer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(httpapi.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
