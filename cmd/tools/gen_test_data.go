package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/domain/chat"
	"marketplace-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

const demoPassword = "Demo-Password-1!"

var openers = []string{
	"Hi, is it still available?",
	"Would you accept a lower price?",
	"Can I see it this weekend?",
	"Does it come with the original invoice?",
	"Yes, it is still for sale.",
	"I can do a small discount if you pick it up.",
}

// Seeds a database with demo accounts and conversations for the inspector and the CLI client.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	numUsers := flag.Int("users", 4, "Number of demo accounts")
	numListings := flag.Int("listings", 3, "Number of listings discussed")
	perThread := flag.Int("messages", 6, "Messages per conversation")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.WARNING).WithSyncWrites(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := logs.GetLoggerFromLevel(slog.LevelWarn)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, logger, nil)

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(color.Cyan.Render("Creating demo accounts..."))
	ids := make([]chat.Identity, 0, *numUsers)
	for i := 0; i < *numUsers; i++ {
		email := fmt.Sprintf("demo%d@example.com", i)
		rawID, err := users.CreateUser(email, hash)
		if err != nil {
			if user, getErr := users.GetUserByEmail(email); getErr == nil {
				rawID = user.ID
			} else {
				log.Fatalf("Unable to create %s: %v", email, err)
			}
		}
		id, ok := chat.ParseIdentifier(rawID)
		if !ok {
			log.Fatalf("Corrupted identity for %s: %q", email, rawID)
		}
		ids = append(ids, id)
		fmt.Printf("  %s  %s  password=%s\n", color.Green.Render(email), rawID, demoPassword)
	}
	if len(ids) < 2 {
		log.Fatal("At least two accounts are needed for a conversation")
	}

	fmt.Println(color.Cyan.Render("Writing conversations..."))
	start := time.Now().UTC().Add(-24 * time.Hour)
	count := 0
	for l := 0; l < *numListings; l++ {
		listingID := uuid.New()
		seller := ids[l%len(ids)]
		buyer := ids[(l+1)%len(ids)]
		for i := 0; i < *perThread; i++ {
			sender, recipient := buyer, seller
			if i%2 == 1 {
				sender, recipient = seller, buyer
			}
			err := messages.Append(context.Background(), chat.Message{
				ID:          uuid.New(),
				SenderID:    sender,
				RecipientID: recipient,
				ListingID:   listingID,
				Body:        openers[i%len(openers)],
				CreatedAt:   start.Add(time.Duration(count) * time.Minute),
			})
			if err != nil {
				log.Fatal(err)
			}
			count++
		}
		fmt.Printf("  listing %s: %d messages\n", color.Yellow.Render(listingID.String()), *perThread)
	}
	fmt.Println(color.Green.Render(fmt.Sprintf("Done: %d accounts, %d messages", len(ids), count)))
}
