package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
	"github.com/mailsift/phishing-detector/internal/factory"
	"github.com/mailsift/phishing-detector/internal/logging"
)

var (
	dataDir   = flag.String("data-dir", "", "Data directory (overrides config)")
	modelPath = flag.String("model-path", "", "Classifier model path (overrides config)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

// seedEmail is one bootstrap training sample.
type seedEmail struct {
	subject string
	body    string
	sender  string
	label   int
}

// seedCorpus gives the classifier something to learn from on a fresh
// install, before any real feedback has accumulated.
var seedCorpus = []seedEmail{
	{"Win a Lottery Now!", "Click here to claim your prize urgent", "lottery@winner-lucky.xyz", 1},
	{"Security Alert", "Your account is compromised verify now", "security@paypa1.com", 1},
	{"Meeting Updates", "See you at 10:00 AM in the conference room", "boss@company.com", 0},
	{"Lunch?", "Do you want to grab pizza later?", "friend@gmail.com", 0},
	{"Invoice 1023", "Attached is the invoice for your recent purchase", "billing@amazon-support-fake.com", 1},
	{"Project Plan", "Here is the roadmap for Q4", "pm@upwind.io", 0},
}

// Seeding is skipped once this many labeled records already exist.
const seedSkipThreshold = 5

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *dataDir != "" {
		cfg.GetViper().Set("storage.data_dir", *dataDir)
	}
	if *modelPath != "" {
		cfg.GetViper().Set("model.path", *modelPath)
	}

	ctx := context.Background()

	storageFactory := factory.NewStorageFactory(cfg, logger)
	events, err := storageFactory.CreateEventLog()
	if err != nil {
		logger.Fatal("Failed to open event log", zap.Error(err))
	}
	store, err := storageFactory.CreateRecordStore(events)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}

	clf := factory.NewClassifierFactory(cfg, logger).CreateClassifier()

	if err := ensureSeedData(ctx, store, logger); err != nil {
		logger.Fatal("Failed to seed training data", zap.Error(err))
	}

	records, err := store.LoadAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load records", zap.Error(err))
	}

	corpus := core.LabeledCorpus(records)
	logger.Info("Training classifier", zap.Int("samples", len(corpus)))

	if err := clf.Retrain(ctx, corpus); err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}

	logger.Info("Training complete, model persisted",
		zap.String("model_path", cfg.GetModel().Path))
}

// ensureSeedData injects the seed corpus when too few labeled records
// exist for a useful first model.
func ensureSeedData(ctx context.Context, store core.RecordStore, logger *zap.Logger) error {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}

	labeled := 0
	for i := range records {
		if records[i].Labeled() {
			labeled++
		}
	}
	if labeled >= seedSkipThreshold {
		logger.Info("Found existing labeled records, skipping seed data",
			zap.Int("labeled", labeled))
		return nil
	}

	logger.Info("Injecting seed data", zap.Int("seeds", len(seedCorpus)))
	for _, seed := range seedCorpus {
		upsert, err := store.UpsertScan(ctx,
			core.EmailContent{Subject: seed.subject, Body: seed.body, Sender: seed.sender, Source: "seed"},
			core.Scores{},
			"Seed",
		)
		if err != nil {
			return err
		}
		if _, err := store.UpdateLabel(ctx, upsert.RecordID, seed.label, core.LabelSourceSeed); err != nil {
			return err
		}
	}

	return nil
}
