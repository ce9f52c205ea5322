package console

import (
	"context"

	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
)

// MessagesPage manages contact-form messages.
type MessagesPage struct {
	page
	svc MessageWriter
}

func NewMessagesPage(d Deps) *MessagesPage {
	return &MessagesPage{
		page: newPage(d.Store, domain.CollectionMessages, d.Toaster),
		svc:  d.Messages,
	}
}

// List returns cached messages, optionally only the unviewed ones.
func (p *MessagesPage) List(unviewedOnly bool) ([]domain.UserMessage, error) {
	snap := p.Snapshot()
	if snap.Err != nil {
		return nil, snap.Err
	}
	all, err := collections.Decode[domain.UserMessage](snap)
	if err != nil {
		return nil, err
	}
	if !unviewedOnly {
		return all, nil
	}
	out := all[:0]
	for _, m := range all {
		if !m.Viewed {
			out = append(out, m)
		}
	}
	return out, nil
}

func (p *MessagesPage) MarkViewed(ctx context.Context, id string, viewed bool) error {
	return p.optimistic(collections.SetFields(id, map[string]interface{}{"viewed": viewed}), func() error {
		return p.svc.SetViewed(ctx, id, viewed)
	}, "Message updated", "Could not update message")
}

func (p *MessagesPage) Delete(ctx context.Context, id string) error {
	return p.optimistic(collections.Remove(id), func() error {
		return p.svc.Delete(ctx, id)
	}, "Message deleted", "Could not delete message")
}
