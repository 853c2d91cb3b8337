// Package internal holds development-only tooling. The key inspector is a
// small HTML view over the relay's badger keyspace, served on a dedicated
// port only when DEBUG_INSPECT_PORT is set. It must never be exposed beyond
// a developer machine: it renders raw keys, including user documents.
package internal

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one keyspace entry prepared for rendering.
type InspectRow struct {
	Key       string
	Family    string
	Timestamp string
	Entity    string
	Detail    string
}

// StatsProvider supplies the live counters shown above the key table.
type StatsProvider func() map[string]any

type pageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// Inspector serves the key table for any prefix of the relay's keyspace
// (msg:, inbox:, last:, unread:, user:, userid:).
type Inspector struct {
	db    *badger.DB
	stats StatsProvider
	tmpl  *template.Template
	mux   chi.Router
}

func NewInspector(db *badger.DB, stats StatsProvider) *Inspector {
	i := &Inspector{
		db:    db,
		stats: stats,
		tmpl:  template.Must(template.ParseFS(templatesFS, "inspect.html")),
	}
	mux := chi.NewRouter()
	mux.Get("/inspect", i.handleInspect)
	i.mux = mux
	return i
}

func (i *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.mux.ServeHTTP(w, r)
}

func (i *Inspector) handleInspect(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "msg:"
	}

	data := pageData{Prefix: prefix, Stats: map[string]any{}}
	if i.stats != nil {
		data.Stats = i.stats()
	}

	_ = i.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			_ = item.Value(func(val []byte) error {
				data.Items = append(data.Items, MapKey(string(item.Key()), val))
				return nil
			})
		}
		return nil
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = i.tmpl.Execute(w, data)
}

// MapKey decomposes one key by its family. Index entries show the key they
// point at; unknown shapes fall back to a raw row rather than being hidden.
func MapKey(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Family:    "raw",
		Timestamp: "--:--:--",
		Entity:    "--------",
		Detail:    byteSize(val),
	}

	switch parts[0] {
	case "msg":
		if len(parts) == 5 {
			row.Family = "message"
			row.Timestamp = nanosClock(parts[3])
			row.Entity = shortID(parts[4])
			row.Detail = parts[1] + " <-> " + parts[2] + ", " + byteSize(val)
		}
	case "inbox":
		if len(parts) == 4 {
			row.Family = "inbox index"
			row.Timestamp = nanosClock(parts[2])
			row.Entity = shortID(parts[3])
			row.Detail = "-> " + string(val)
		}
	case "last":
		if len(parts) == 3 {
			row.Family = "chat-list index"
			row.Entity = parts[1]
			row.Detail = parts[2] + " -> " + string(val)
		}
	case "unread":
		if len(parts) == 4 {
			row.Family = "unread index"
			row.Entity = shortID(parts[3])
			row.Detail = parts[2] + " -> " + parts[1]
		}
	case "user":
		if len(parts) == 2 {
			row.Family = "user document"
			row.Entity = parts[1]
		}
	case "userid":
		if len(parts) == 2 {
			row.Family = "user id index"
			row.Entity = shortID(parts[1])
			row.Detail = "-> " + string(val)
		}
	}
	return row
}

func nanosClock(padded string) string {
	nanos, err := strconv.ParseInt(padded, 10, 64)
	if err != nil {
		return "--:--:--"
	}
	return time.Unix(0, nanos).UTC().Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func byteSize(val []byte) string {
	return strconv.Itoa(len(val)) + " bytes"
}
