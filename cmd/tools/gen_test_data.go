package main

import (
	"context"
	"fmt"
	"os"

	"convo-core/contract"
	"convo-core/domain"
	"convo-core/internal"
	"convo-core/repositories"
	"convo-core/search"
	"convo-core/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
)

// Seeds a local store with a few users and a populated conversation so
// the inspector and the debug page have something to show.
func main() {
	badgerPath := envOr("BADGER_FILEPATH", "/tmp/convo-core/badger")
	blugePath := envOr("BLUGE_FILEPATH", "/tmp/convo-core/bluge")

	fmt.Println("Seeding test data into", badgerPath)

	db, err := badger.Open(badger.DefaultOptions(badgerPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		panic(fmt.Sprintf("opening badger: %v", err))
	}
	defer db.Close()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(blugePath))
	if err != nil {
		panic(fmt.Sprintf("opening bluge: %v", err))
	}
	defer writer.Close()

	log := internal.LoggerFromString("INFO")
	clock := contract.SystemClock{}
	users := repositories.NewUserRepository(db, clock)
	conversations := repositories.NewConversationRepository(db, users, clock, log)
	messages := repositories.NewMessageRepository(db, clock, log, nil)
	index := search.NewMessageIndex(writer, log, 10, 10)
	service := services.NewConversationService(conversations, messages, index, nil, log)

	ctx := context.Background()

	alice, err := users.CreateUser("Alice")
	must(err)
	bob, err := users.CreateUser("Bob")
	must(err)
	carol, err := users.CreateUser("Carol")
	must(err)
	fmt.Printf("Users: %s %s %s\n", alice.ID, bob.ID, carol.ID)

	summary, err := service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      alice.ID,
		ParticipantIDs: []string{bob.ID, carol.ID},
	})
	must(err)
	fmt.Println("Conversation:", summary.ID)

	bodies := []struct {
		sender string
		body   string
	}{
		{alice.ID, "Welcome everyone, kicking off the planning thread."},
		{bob.ID, "Thanks! I'll gather the numbers by Friday."},
		{carol.ID, "Bonjour tout le monde, je m'occupe de la partie design."},
		{alice.ID, "Great. Reminder: status update every Monday morning."},
	}
	for _, m := range bodies {
		msg, err := service.PostMessage(ctx, domain.PostMessageCommand{
			ConversationID: summary.ID,
			SenderID:       m.sender,
			Body:           m.body,
		})
		must(err)
		fmt.Printf("  #%d [%s] %s: %s\n", msg.Position, msg.Lang, msg.SenderID, msg.Body)
	}

	must(index.Flush())
	fmt.Println("Done.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
