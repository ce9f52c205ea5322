package authstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"estate-backend/internal/authz"
	"estate-backend/internal/collections"
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mu      sync.Mutex
	docs    map[string][]collections.Document
	pushers map[string]func([]collections.Document)
	opens   int
}

func (m *memorySource) Open(name string, onSnapshot func([]collections.Document), onError func(error)) (func(), error) {
	m.mu.Lock()
	m.opens++
	m.pushers[name] = onSnapshot
	docs := m.docs[name]
	m.mu.Unlock()
	onSnapshot(docs)
	return func() {}, nil
}

func (m *memorySource) push(name string, docs []collections.Document) {
	m.mu.Lock()
	m.docs[name] = docs
	p := m.pushers[name]
	m.mu.Unlock()
	if p != nil {
		p(docs)
	}
}

type fakeAuth struct {
	states chan *identity.User
	token  string
	err    error
}

func (f *fakeAuth) AuthStates(ctx context.Context) <-chan *identity.User {
	out := make(chan *identity.User)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-f.states:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (f *fakeAuth) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	return f.token, f.err
}

func adminDoc(uid, role string) collections.Document {
	return collections.Document{"id": uid, "uid": uid, "email": uid + "@estate.test", "role": role}
}

func setupContext(t *testing.T) (*Context, *fakeAuth, *memorySource) {
	src := &memorySource{docs: map[string][]collections.Document{}, pushers: map[string]func([]collections.Document){}}
	store := collections.NewStore(src)
	auth := &fakeAuth{states: make(chan *identity.User)}
	c := New(auth, store, authz.MustNew())
	c.Start(context.Background())
	t.Cleanup(c.Close)
	return c, auth, src
}

func TestContext_LoadingUntilFirstAuthState(t *testing.T) {
	c, auth, _ := setupContext(t)
	assert.True(t, c.State().Loading)
	assert.False(t, c.HasPermission(constants.ViewDashboard))

	auth.states <- nil
	<-c.Ready()
	st := c.State()
	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Role)
}

func TestContext_TracksRoleDocument(t *testing.T) {
	c, auth, src := setupContext(t)
	src.docs[domain.CollectionAdmins] = []collections.Document{adminDoc("u1", constants.Moderator)}

	auth.states <- &identity.User{UID: "u1"}
	require.Eventually(t, func() bool { return c.State().Role == constants.Moderator }, time.Second, 5*time.Millisecond)
	assert.True(t, c.HasPermission(constants.EditListing))
	assert.False(t, c.HasPermission(constants.DeleteListing))

	src.push(domain.CollectionAdmins, []collections.Document{adminDoc("u1", constants.Admin)})
	require.Eventually(t, func() bool { return c.HasPermission(constants.DeleteListing) }, time.Second, 5*time.Millisecond)
}

func TestContext_SignOutClearsRole(t *testing.T) {
	c, auth, src := setupContext(t)
	src.docs[domain.CollectionAdmins] = []collections.Document{adminDoc("u1", constants.SuperAdmin)}

	auth.states <- &identity.User{UID: "u1"}
	require.Eventually(t, func() bool { return c.HasPermission(constants.ManageAdmins) }, time.Second, 5*time.Millisecond)

	auth.states <- nil
	require.Eventually(t, func() bool { return c.State().User == nil }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.State().Role)
	assert.False(t, c.HasPermission(constants.ViewDashboard))
}

func TestContext_UnknownOrMalformedRoleFailsClosed(t *testing.T) {
	c, auth, src := setupContext(t)
	src.docs[domain.CollectionAdmins] = []collections.Document{adminDoc("u1", "owner")}

	auth.states <- &identity.User{UID: "u1"}
	require.Eventually(t, func() bool { return c.State().User != nil }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.State().Role)
	for _, p := range constants.AllPermissions() {
		assert.False(t, c.HasPermission(p))
	}
}

func TestContext_SignedInWithoutAdminDocument(t *testing.T) {
	c, auth, _ := setupContext(t)
	auth.states <- &identity.User{UID: "stranger"}
	require.Eventually(t, func() bool { return c.State().User != nil }, time.Second, 5*time.Millisecond)
	assert.False(t, c.HasPermission(constants.ViewListings))
}

func TestGetIDToken_EmptyOnFailure(t *testing.T) {
	c, auth, _ := setupContext(t)
	auth.token = "tok"
	assert.Equal(t, "tok", c.GetIDToken(context.Background(), false))

	auth.token = ""
	auth.err = identity.ErrNoCurrentUser
	assert.Equal(t, "", c.GetIDToken(context.Background(), true))
}

func TestContext_SessionsShareOneAdminsListener(t *testing.T) {
	src := &memorySource{docs: map[string][]collections.Document{
		domain.CollectionAdmins: {adminDoc("u1", constants.Viewer), adminDoc("u2", constants.Admin)},
	}, pushers: map[string]func([]collections.Document){}}
	store := collections.NewStore(src)
	t.Cleanup(store.Close)

	var sessions []*Context
	for _, uid := range []string{"u1", "u2"} {
		auth := &fakeAuth{states: make(chan *identity.User)}
		c := New(auth, store, authz.MustNew())
		c.Start(context.Background())
		t.Cleanup(c.Close)
		auth.states <- &identity.User{UID: uid}
		sessions = append(sessions, c)
	}

	require.Eventually(t, func() bool {
		return sessions[0].State().Role == constants.Viewer && sessions[1].State().Role == constants.Admin
	}, time.Second, 5*time.Millisecond)
	src.mu.Lock()
	assert.Equal(t, 1, src.opens)
	src.mu.Unlock()

	src.push(domain.CollectionAdmins, []collections.Document{adminDoc("u1", constants.Moderator), adminDoc("u2", constants.Admin)})
	require.Eventually(t, func() bool { return sessions[0].State().Role == constants.Moderator }, time.Second, 5*time.Millisecond)
	assert.Equal(t, constants.Admin, sessions[1].State().Role)
}
