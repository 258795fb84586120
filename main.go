package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/anshulj/wa-checker/api"
	"github.com/anshulj/wa-checker/config"
	"github.com/anshulj/wa-checker/database"
	"github.com/anshulj/wa-checker/phone"
	"github.com/anshulj/wa-checker/server"
	"github.com/anshulj/wa-checker/store"
	"github.com/anshulj/wa-checker/utils"
	"github.com/anshulj/wa-checker/whatsapp"
)

func main() {
	cfg := config.LoadConfig()
	utils.Init(cfg.LogLevel)

	formatter := phone.NewFormatter(cfg.CountryCode)
	credentials := store.NewCredentialStore(cfg.SessionDBPath)
	supervisor := whatsapp.NewSupervisor(credentials, cfg.ConnectTimeout, cfg.ReconnectInterval, cfg.MaxReconnectAttempts)

	// Optional outbound message audit log
	var history *database.HistoryDB
	if cfg.HistoryEnabled {
		var err error
		history, err = database.NewHistoryDB(cfg.MSSQLServer, cfg.MSSQLDatabase, cfg.MSSQLUsername, cfg.MSSQLPassword)
		if err != nil {
			utils.Logger.Fatal().Err(err).Msg("Failed to initialize history database")
		}
		defer history.Close()
	}

	checker := whatsapp.NewChecker(supervisor, formatter)
	var historyStore whatsapp.HistoryStore
	if history != nil {
		historyStore = history
	}
	sender := whatsapp.NewSender(supervisor, formatter, historyStore)

	var apiHistory api.History
	if history != nil {
		apiHistory = history
	}
	handler := api.NewHandler(supervisor, checker, sender, apiHistory)
	apiServer := server.NewServer(handler)

	go func() {
		if err := apiServer.Start(cfg.APIPort); err != nil {
			utils.Logger.Fatal().Err(err).Msg("API server stopped")
		}
	}()

	// Establish the WhatsApp session in the background. The server keeps
	// serving /status and /health even when this fails.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		utils.Logger.Info().Msg("Initializing WhatsApp session")
		if _, err := supervisor.Acquire(ctx); err != nil {
			utils.Logger.Warn().Err(err).Msg("WhatsApp session not established; scan the QR code or retry via the API")
			return
		}
		utils.Logger.Info().Msg("WhatsApp session established")
	}()

	utils.Logger.Info().Str("port", cfg.APIPort).Msg("WhatsApp number checker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	utils.Logger.Info().Msg("Shutting down")
	supervisor.Shutdown()
}
