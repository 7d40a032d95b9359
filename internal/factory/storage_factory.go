package factory

import (
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/adapters/storage"
	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
)

// StorageFactory creates the record store and event log from configuration
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{cfg: cfg, logger: logger}
}

// CreateEventLog creates the append-only audit trail
func (f *StorageFactory) CreateEventLog() (core.EventLog, error) {
	return storage.NewCSVEventLog(f.cfg.GetStorage().EventsPath(), f.logger)
}

// CreateRecordStore creates the scan record store wired to the event log
func (f *StorageFactory) CreateRecordStore(events core.EventLog) (core.RecordStore, error) {
	return storage.NewCSVStore(f.cfg.GetStorage().RecordsPath(), events, f.logger)
}
