package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"estate-backend/internal/collections"
	"estate-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const channelPrefix = "changes:"

// Loader reads the full result set of a collection.
type Loader func(ctx context.Context, db *gorm.DB) ([]collections.Document, error)

// Table loads every row of T in the given order.
func Table[T collections.Identified](order string) Loader {
	return func(ctx context.Context, db *gorm.DB) ([]collections.Document, error) {
		var rows []T
		if err := db.WithContext(ctx).Order(order).Find(&rows).Error; err != nil {
			return nil, err
		}
		return collections.ToDocuments(rows)
	}
}

// DefaultLoaders covers every published collection.
func DefaultLoaders() map[string]Loader {
	return map[string]Loader{
		domain.CollectionListings:     Table[domain.Listing](`"createdAt" DESC`),
		domain.CollectionAppointments: Table[domain.Appointment](`"createdAt" DESC`),
		domain.CollectionMessages:     Table[domain.UserMessage](`"createdAt" DESC`),
		domain.CollectionAdmins:       Table[domain.Admin](`"createdAt" ASC`),
	}
}

// Notifier announces that collections changed after a committed write.
type Notifier interface {
	Changed(ctx context.Context, names ...string)
}

// Feed is a realtime snapshot source: writers publish change notices on Redis and every
// open listener re-reads its collection from the database and pushes the full result.
type Feed struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Loaders map[string]Loader
}

// New creates a Feed with the default loaders.
func New(db *gorm.DB, rdb *redis.Client) *Feed {
	return &Feed{DB: db, Rdb: rdb, Loaders: DefaultLoaders()}
}

// Changed publishes a change notice per collection. Failures are logged; the next notice heals.
func (f *Feed) Changed(ctx context.Context, names ...string) {
	for _, name := range names {
		if err := f.Rdb.Publish(ctx, channelPrefix+name, time.Now().UnixMilli()).Err(); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("publish change notice failed")
		}
	}
}

// Open implements collections.Source.
func (f *Feed) Open(collection string, onSnapshot func([]collections.Document), onError func(error)) (func(), error) {
	load, ok := f.Loaders[collection]
	if !ok {
		return nil, fmt.Errorf("feed: unknown collection %q", collection)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ps := f.Rdb.Subscribe(ctx, channelPrefix+collection)
	// Wait for the subscription so no notice published after the first read is missed.
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("feed: subscribe %s: %w", collection, err)
	}
	notices := ps.Channel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		emit := func() bool {
			docs, err := load(ctx, f.DB)
			if err != nil {
				if ctx.Err() == nil {
					onError(fmt.Errorf("feed: load %s: %w", collection, err))
				}
				return false
			}
			onSnapshot(docs)
			return true
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
				drainNotices(notices)
				if !emit() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
			<-done
		})
	}, nil
}

// A burst of notices needs one re-read.
func drainNotices(ch <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Nop is a Notifier that does nothing.
type Nop struct{}

func (Nop) Changed(context.Context, ...string) {}
