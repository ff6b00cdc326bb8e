package internal

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace-chat/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const (
	defaultPrefix = "msg:"
	maxRows       = 500
)

type InspectRow struct {
	Key          string
	Type         string
	Timestamp    string
	EntityID     string
	Namespace    string
	Participants string
	Detail       string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// NewInspectHandler serves an HTML page listing the Badger entries under ?prefix=.
// Values go through mapper, user records never expose their password hash.
func NewInspectHandler(db *badger.DB, log *slog.Logger, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = DefaultMapper
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(data.Items) < maxRows; it.Next() {
				item := it.Item()
				key := string(item.Key())
				if strings.HasPrefix(key, "user:") {
					data.Items = append(data.Items, userRow(key))
					continue
				}
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(key, val))
					return nil
				})
			}
			return nil
		})
		if err != nil {
			log.Error("Inspection failed", "prefix", prefix, "error", err)
			http.Error(w, "inspection failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Unable to render inspection page", "error", err)
		}
	})
}

func userRow(key string) InspectRow {
	return InspectRow{
		Key:          key,
		Type:         "USER",
		Timestamp:    "--:--:--",
		EntityID:     "--------",
		Namespace:    "accounts",
		Participants: "-",
		Detail:       strings.TrimPrefix(key, "user:"),
	}
}

// DefaultMapper decodes the layout of message keys:
// msg:{listing}:{low_user}:{high_user}:{timestamp_padded}:{uuid}
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:          key,
		Type:         "RAW",
		Timestamp:    "--:--:--",
		EntityID:     "--------",
		Namespace:    "default",
		Participants: "-",
		Detail:       "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	if len(parts) == 6 {
		row.Type = "MESSAGE"
		row.Namespace = short(parts[1])
		row.Participants = short(parts[2]) + " / " + short(parts[3])
		if tsNano, err := strconv.ParseInt(parts[4], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format("2006-01-02 15:04:05")
		}
		row.EntityID = short(parts[5])
	}
	return row
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// MessageMapper shows the decoded body of message records.
func MessageMapper(key string, val []byte) InspectRow {
	row := DefaultMapper(key, val)
	if row.Type != "MESSAGE" {
		return row
	}
	msg, err := repositories.DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: decoding failed"
		return row
	}
	row.Detail = msg.Body
	return row
}
