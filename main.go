package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spendlens/pipeline/internal/config"
	"github.com/spendlens/pipeline/internal/models"
	"github.com/spendlens/pipeline/internal/pipeline"
)

func main() {
	// A .env file is optional; variables set in the environment win
	_ = godotenv.Load()

	// Log format can be explicitly set.
	// If it is not set, it defaults to JSON
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if ok && logFormat == "human" {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if _, ok := os.LookupEnv("DEBUG"); ok {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = log.Output(output).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Create the directory for the database
	err = os.MkdirAll(filepath.Dir(cfg.Output.DatabaseFile), os.ModePerm)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Connect to the database
	err = models.Connect(cfg.Output.DatabaseFile)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	err = pipeline.Run(cfg)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
}
