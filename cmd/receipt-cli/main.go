// Command receipt-cli extracts structured data from a local receipt
// image and optionally persists it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/lromero/receipt-bot/internal/agent"
	"github.com/lromero/receipt-bot/internal/config"
	"github.com/lromero/receipt-bot/internal/db"
	"github.com/lromero/receipt-bot/internal/logger"
	"github.com/lromero/receipt-bot/internal/receipt"
	"github.com/lromero/receipt-bot/internal/store"
)

func main() {
	save := flag.Bool("save", false, "persist the extracted receipt to the database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-save] <receipt-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0), *save))
}

func run(path string, save bool) int {
	log := logger.Log

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("cannot read receipt file")
		return 1
	}

	cfg, err := config.Get()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	logger.SetLevel(cfg.LogLevel)

	extractor, err := agent.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to create extraction agent")
		return 1
	}

	result, err := extractor.Extract(context.Background(), agent.ImageBytes(data, "image/png"), "")
	if err != nil {
		log.Error().Err(err).Msg("receipt extraction failed")
		return 1
	}

	if result.Verdict == agent.VerdictInvalid {
		fmt.Println(receipt.InvalidReceiptReply)
		return 0
	}

	encoded, err := json.MarshalIndent(result.Receipt, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode receipt")
		return 1
	}
	fmt.Println(string(encoded))

	if save {
		return saveReceipt(cfg, result.Receipt)
	}
	return 0
}

func saveReceipt(cfg *config.Config, data *receipt.ReceiptData) int {
	log := logger.Log

	database, err := db.Connect(cfg.DatabaseURL, cfg.DatabaseOptions)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	if err := db.Migrate(database); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		return 1
	}

	row, err := store.NewReceiptStore(database).Save(context.Background(), data)
	if err != nil {
		log.Error().Err(err).Msg("failed to save receipt")
		return 1
	}

	log.Info().Uint("id", row.ID).Msg("receipt saved")
	return 0
}
