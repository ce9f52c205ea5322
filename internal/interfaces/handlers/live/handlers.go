package live

import (
	"bufio"
	"fmt"
	"time"

	"estate-backend/internal/collections"
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// collection -> permission needed to watch it
var readPermission = map[string]string{
	domain.CollectionListings:     constants.ViewListings,
	domain.CollectionAppointments: constants.ViewAppointments,
	domain.CollectionMessages:     constants.ViewMessages,
	domain.CollectionAdmins:       constants.ViewAdmins,
}

// Handlers streams collection snapshots as server-sent events.
type Handlers struct {
	Store   *collections.Store
	Checker middleware.PermissionChecker
	// MaxDuration ends a stream so clients reconnect; 0 keeps it open until the client leaves.
	MaxDuration time.Duration
	// Heartbeat is the comment interval that keeps idle proxies from closing the stream.
	Heartbeat time.Duration
}

// Event is the payload of one "snapshot" event.
type Event struct {
	Collection string                 `json:"collection"`
	Version    uint64                 `json:"version"`
	Loading    bool                   `json:"loading"`
	Error      string                 `json:"error,omitempty"`
	Docs       []collections.Document `json:"docs"`
}

func toEvent(s collections.Snapshot) Event {
	ev := Event{Collection: s.Collection, Version: s.Version, Loading: s.Loading, Docs: s.Docs}
	if ev.Docs == nil {
		ev.Docs = []collections.Document{}
	}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	return ev
}

func writeEvent(w *bufio.Writer, s collections.Snapshot) error {
	b, err := json.Marshal(toEvent(s))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}

// Stream GET /api/console/live/:collection
// Sends the cached snapshot at once and then every change.
func (h *Handlers) Stream(c *fiber.Ctx) error {
	name := c.Params("collection")
	perm, ok := readPermission[name]
	if !ok {
		return response.Error(c, fiber.StatusNotFound, "UNKNOWN_COLLECTION", "Unknown collection", nil)
	}
	admin := middleware.GetAdmin(c)
	if admin == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if !h.Checker.Allowed(admin.Role, perm) {
		return response.Forbidden(c, "PERMISSION_DENIED", "User is Forbidden from performing this action")
	}

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	var deadline <-chan time.Time
	if h.MaxDuration > 0 {
		deadline = time.After(h.MaxDuration)
	}
	sub, snap := h.Store.Subscribe(name)
	uid := admin.UID

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		if err := writeEvent(w, snap); err != nil {
			return
		}
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case s, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := writeEvent(w, s); err != nil {
					log.Debug().Err(err).Str("collection", name).Str("uid", uid).Msg("live stream closed by client")
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-deadline:
				return
			}
		}
	})
	return nil
}
