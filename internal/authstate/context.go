package authstate

import (
	"context"
	"sync"

	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"

	"github.com/rs/zerolog/log"
)

// AuthClient is the signed-in session the Context follows.
type AuthClient interface {
	AuthStates(ctx context.Context) <-chan *identity.User
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
}

// PermissionChecker answers role/permission lookups.
type PermissionChecker interface {
	Allowed(role, permission string) bool
}

// State is a point-in-time view of the session.
type State struct {
	User    *identity.User
	Role    string
	Loading bool
}

// Context tracks the current identity and its admin role document.
type Context struct {
	auth  AuthClient
	store *collections.Store
	perms PermissionChecker

	mu      sync.RWMutex
	user    *identity.User
	role    string
	loading bool
	roleSub *collections.Subscription

	ready     chan struct{}
	readyOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Context in the loading state. Call Start to begin following auth changes.
func New(auth AuthClient, store *collections.Store, perms PermissionChecker) *Context {
	return &Context{
		auth:    auth,
		store:   store,
		perms:   perms,
		loading: true,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start consumes the auth state stream until ctx ends or Close is called.
func (c *Context) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	states := c.auth.AuthStates(ctx)
	go func() {
		defer close(c.done)
		for u := range states {
			c.setUser(u)
		}
		c.mu.Lock()
		if c.roleSub != nil {
			c.roleSub.Close()
			c.roleSub = nil
		}
		c.mu.Unlock()
	}()
}

// Close stops following auth changes and releases the role subscription.
func (c *Context) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Ready is closed once the first auth state has been applied.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

func (c *Context) setUser(u *identity.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := ""
	if c.user != nil {
		prev = c.user.UID
	}
	next := ""
	if u != nil {
		next = u.UID
	}
	c.user = u
	c.loading = false
	c.readyOnce.Do(func() { close(c.ready) })

	if prev == next {
		return
	}
	if c.roleSub != nil {
		c.roleSub.Close()
		c.roleSub = nil
	}
	c.role = ""
	if u == nil {
		return
	}

	// The role is read from the shared admins listener, filtered by uid. Admin changes re-read the
	// whole (small) table, but sessions never open listeners of their own.
	sub, snap := c.store.Subscribe(domain.CollectionAdmins)
	c.roleSub = sub
	c.role = roleOf(snap, next)
	go c.followRole(sub, next)
}

func (c *Context) followRole(sub *collections.Subscription, uid string) {
	for snap := range sub.Events() {
		c.mu.Lock()
		if c.roleSub == sub {
			c.role = roleOf(snap, uid)
		}
		c.mu.Unlock()
	}
}

func roleOf(snap collections.Snapshot, uid string) string {
	doc, ok := snap.Find(uid)
	if !ok {
		return ""
	}
	admin, err := collections.DecodeOne[domain.Admin](snap.Collection, doc)
	if err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("ignoring malformed admin document")
		return ""
	}
	return admin.Role
}

// State returns the current session state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{User: c.user, Role: c.role, Loading: c.loading}
}

// HasPermission looks the current role up in the static table. No role means no permission.
func (c *Context) HasPermission(permission string) bool {
	c.mu.RLock()
	role := c.role
	c.mu.RUnlock()
	return c.perms.Allowed(role, permission)
}

// GetIDToken returns the current id token, or "" when there is none. Failures are logged.
func (c *Context) GetIDToken(ctx context.Context, forceRefresh bool) string {
	token, err := c.auth.IDToken(ctx, forceRefresh)
	if err != nil {
		log.Warn().Err(err).Bool("force_refresh", forceRefresh).Msg("could not obtain id token")
		return ""
	}
	return token
}
