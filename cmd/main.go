package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"convo-core/contract"
	"convo-core/internal"
	"convo-core/moderation"
	"convo-core/observability"
	"convo-core/repositories"
	"convo-core/search"
	"convo-core/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and
// centralizes error reporting so deferred cleanups (database, index)
// always execute before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.LoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Engine wiring
	clock := contract.SystemClock{}
	users := repositories.NewUserRepository(db, clock)
	conversations := repositories.NewConversationRepository(db, users, clock, log)
	messages := repositories.NewMessageRepository(db, clock, log, config.LimitMessages)
	index := search.NewMessageIndex(blugeWriter, log, config.IndexFlushEvery, config.SearchPageSize)

	moderator, err := buildModerator(config, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	service := services.NewConversationService(conversations, messages, index, moderator, log)
	_ = service // handed to the transport adapter of the deployment

	// 4. Debug inspector
	monitor := observability.NewMonitor(log, db)
	internal.StartDebugServer(db, config.DebugPort, "/inspect", storeMapper, monitor.Stats)
	log.Info("Inspector started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))

	// 5. Wait for stop
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("Engine ready", "at", time.Now().UTC())
	<-ctx.Done()

	log.Info("Shutting down gracefully...")
	if err := index.Flush(); err != nil {
		log.Error("Final index flush failed", "err", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

// buildModerator is optional wiring: without a dictionary the service
// runs with moderation disabled.
func buildModerator(config internal.Config, log *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredTermsPath == "" {
		return nil, nil
	}
	terms, err := moderation.ReadTermsFile(config.CensoredTermsPath)
	if err != nil {
		return nil, err
	}
	mask := []rune(config.ModerationMask)
	if len(mask) != 1 {
		return nil, fmt.Errorf("MODERATION_MASK must be a single character, got %q", config.ModerationMask)
	}
	return moderation.NewModerator(terms, mask[0], log)
}

// storeMapper decodes any of the three record families for the inspector.
func storeMapper(key string, val []byte) internal.InspectRow {
	switch {
	case strings.HasPrefix(key, repositories.ConversationKeyPrefix):
		conv, err := repositories.DecodeConversation(val)
		if err != nil {
			return internal.DefaultMapper(key, val)
		}
		return internal.InspectRow{
			Key:          key,
			Type:         "CONVERSATION",
			Timestamp:    conv.LastActivity.Format(time.RFC3339),
			Conversation: conv.ID.String(),
			Detail:       fmt.Sprintf("%d participants, %d messages", len(conv.Participants), conv.MessageCount),
		}
	case strings.HasPrefix(key, repositories.MessageKeyPrefix):
		msg, err := repositories.DecodeMessage(val)
		if err != nil {
			return internal.DefaultMapper(key, val)
		}
		return internal.InspectRow{
			Key:          key,
			Type:         "MESSAGE",
			Timestamp:    msg.CreatedAt.Format(time.RFC3339),
			Conversation: msg.ConversationID.String(),
			Sender:       msg.SenderID,
			Detail:       msg.Body,
		}
	case strings.HasPrefix(key, repositories.UserKeyPrefix):
		user, err := repositories.DecodeUser(val)
		if err != nil {
			return internal.DefaultMapper(key, val)
		}
		return internal.InspectRow{
			Key:       key,
			Type:      "USER",
			Timestamp: user.CreatedAt.Format(time.RFC3339),
			Sender:    user.ID,
			Detail:    user.DisplayName,
		}
	default:
		return internal.DefaultMapper(key, val)
	}
}
