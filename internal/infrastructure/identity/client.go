package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoCurrentUser is returned when a token is requested while signed out.
var ErrNoCurrentUser = errors.New("no user is signed in")

// refresh this long before expiry
const tokenRefreshMargin = 5 * time.Minute

// Authenticator is the part of the Provider a Client talks to.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

// Client holds one signed-in session and broadcasts auth state changes.
type Client struct {
	auth Authenticator
	now  func() time.Time

	mu       sync.Mutex
	session  *Tokens
	watchers map[uint64]chan *User
	nextID   uint64
}

// NewClient creates a signed-out client.
func NewClient(auth Authenticator) *Client {
	return &Client{auth: auth, now: time.Now, watchers: make(map[uint64]chan *User)}
}

// SignIn authenticates and makes the user current.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	t, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = t
	u := t.User
	c.broadcast(&u)
	return &u, nil
}

// SignOut forgets the session.
func (c *Client) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.session = nil
	c.broadcast(nil)
}

// CurrentUser returns the signed-in user or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	u := c.session.User
	return &u
}

// AuthStates streams the current user (nil when signed out), first the present state and then
// every change. Only the latest undelivered state is kept. The channel closes when ctx ends.
func (c *Client) AuthStates(ctx context.Context) <-chan *User {
	ch := make(chan *User, 1)
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = ch
	var current *User
	if c.session != nil {
		u := c.session.User
		current = &u
	}
	ch <- current
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

// broadcast must be called with c.mu held.
func (c *Client) broadcast(u *User) {
	for _, ch := range c.watchers {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// IDToken returns a valid id token, refreshing it when it is close to expiry or when forced.
// A refresh token the backend no longer accepts signs the client out.
func (c *Client) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && c.now().Before(s.ExpiresAt.Add(-tokenRefreshMargin)) {
		c.mu.Unlock()
		return s.IDToken, nil
	}
	c.mu.Unlock()

	t, err := c.auth.Refresh(ctx, s.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserDisabled) {
			c.mu.Lock()
			if c.session == s {
				c.session = nil
				c.broadcast(nil)
			}
			c.mu.Unlock()
		}
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s {
		return "", ErrNoCurrentUser
	}
	c.session = t
	return t.IDToken, nil
}
