package moderation

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// Test_Moderation_LargeDictionary measures the startup cost of a dictionary kept in Badger keys.
func Test_Moderation_LargeDictionary(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	const wordCount = 20_000
	prefix := []byte("blacklist:")

	// Given a dictionary seeded in Badger
	startSeed := time.Now()
	wb := db.NewWriteBatch()
	for i := 0; i < wordCount; i++ {
		req.NoError(wb.Set([]byte(fmt.Sprintf("blacklist:scamword%d", i)), nil))
	}
	req.NoError(wb.Set([]byte("blacklist:wiretransfer"), nil))
	req.NoError(wb.Flush())
	t.Logf("seeding %d words: %v", wordCount, time.Since(startSeed))

	// When it is loaded from the keys
	startLoad := time.Now()
	var words []string
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			words = append(words, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	req.NoError(err)
	req.Len(words, wordCount+1)

	// And the automaton is built
	mod, err := NewModerator(words, '*', slog.New(slog.DiscardHandler))
	req.NoError(err)
	t.Logf("loading and building: %v", time.Since(startLoad))

	// Then it censors as expected
	content, found := mod.Censor("Pay by wire-transfer only")
	req.Equal("Pay by ************* only", content)
	req.Equal([]string{"wiretransfer"}, found)
}
