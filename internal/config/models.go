package config

import "path/filepath"

// ServerConfig represents the configuration for the HTTP API
type ServerConfig struct {
	ListenAddress   string
	DefaultSource   string
	MaxSubjectChars int
	MaxBodyChars    int
	MaxSenderChars  int
}

// StorageConfig represents the configuration for the record store and event log
type StorageConfig struct {
	DataDir     string
	RecordsFile string
	EventsFile  string
}

// RecordsPath returns the full path of the records file
func (c StorageConfig) RecordsPath() string {
	return filepath.Join(c.DataDir, c.RecordsFile)
}

// EventsPath returns the full path of the event log file
func (c StorageConfig) EventsPath() string {
	return filepath.Join(c.DataDir, c.EventsFile)
}

// ModelConfig represents the configuration for classifier persistence
type ModelConfig struct {
	Path string
}

// RetrainConfig represents the retrain trigger policy
type RetrainConfig struct {
	MinLabeled int
	BatchSize  int
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		DefaultSource:   c.GetString("server.default_source"),
		MaxSubjectChars: c.GetInt("server.max_subject_chars"),
		MaxBodyChars:    c.GetInt("server.max_body_chars"),
		MaxSenderChars:  c.GetInt("server.max_sender_chars"),
	}
}

// GetStorage returns the storage configuration
func (c *Config) GetStorage() StorageConfig {
	return StorageConfig{
		DataDir:     c.GetString("storage.data_dir"),
		RecordsFile: c.GetString("storage.records_file"),
		EventsFile:  c.GetString("storage.events_file"),
	}
}

// GetModel returns the classifier persistence configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Path: c.GetString("model.path"),
	}
}

// GetRetrain returns the retrain trigger policy
func (c *Config) GetRetrain() RetrainConfig {
	return RetrainConfig{
		MinLabeled: c.GetInt("retrain.min_labeled"),
		BatchSize:  c.GetInt("retrain.batch_size"),
	}
}
