package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"convo-core/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "/tmp/convo-core/badger", "Path to badger DB")
	prefix := flag.String("prefix", repositories.ConversationKeyPrefix, "Prefix to scan (conv:, msg:, user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf(" Scanning %q in %s ", *prefix, *dbPath))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Conversation", "Sender", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary indexes carry no payload worth rendering.
			if strings.HasPrefix(key, "idx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				row, err := decodeRow(key, v)
				if err != nil {
					// Log and keep scanning instead of aborting the whole dump.
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func decodeRow(key string, val []byte) ([]string, error) {
	switch {
	case strings.HasPrefix(key, repositories.ConversationKeyPrefix):
		conv, err := repositories.DecodeConversation(val)
		if err != nil {
			return nil, err
		}
		return []string{
			key,
			"CONVERSATION",
			conv.LastActivity.Format("15:04:05"),
			shortID(conv.ID.String()),
			"",
			fmt.Sprintf("%v (%d messages)", conv.Participants, conv.MessageCount),
		}, nil
	case strings.HasPrefix(key, repositories.MessageKeyPrefix):
		msg, err := repositories.DecodeMessage(val)
		if err != nil {
			return nil, err
		}
		return []string{
			key,
			"MESSAGE",
			msg.CreatedAt.Format("15:04:05"),
			shortID(msg.ConversationID.String()),
			msg.SenderID,
			msg.Body,
		}, nil
	case strings.HasPrefix(key, repositories.UserKeyPrefix):
		user, err := repositories.DecodeUser(val)
		if err != nil {
			return nil, err
		}
		return []string{
			key,
			"USER",
			user.CreatedAt.Format("15:04:05"),
			"",
			user.ID,
			user.DisplayName,
		}, nil
	default:
		return []string{key, "RAW", "", "", "", fmt.Sprintf("%d bytes", len(val))}, nil
	}
}

// shortID keeps dumps readable, 8 chars is enough to tell rows apart.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
