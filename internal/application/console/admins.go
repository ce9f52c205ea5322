package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/collections"
	"estate-backend/internal/domain"

	json "github.com/goccy/go-json"
)

// ErrNoToken is returned when an admin action is attempted without a signed-in session.
var ErrNoToken = errors.New("You must be signed in to manage admins")

// APIError is a rejected admin route call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// AdminsPage lists admins from the cache and drives the privileged admin routes.
type AdminsPage struct {
	page
	tokens  TokenSource
	baseURL string
	client  *http.Client
}

func NewAdminsPage(d Deps) *AdminsPage {
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &AdminsPage{
		page:    newPage(d.Store, domain.CollectionAdmins, d.Toaster),
		tokens:  d.Tokens,
		baseURL: strings.TrimRight(d.APIBaseURL, "/"),
		client:  client,
	}
}

// List returns cached admins.
func (p *AdminsPage) List() ([]domain.Admin, error) {
	snap := p.Snapshot()
	if snap.Err != nil {
		return nil, snap.Err
	}
	return collections.Decode[domain.Admin](snap)
}

// Create asks the server to provision a new admin and returns its uid.
func (p *AdminsPage) Create(ctx context.Context, in admins.CreateInput) (string, error) {
	var out struct {
		UID     string `json:"uid"`
		Message string `json:"message"`
	}
	if err := p.call(ctx, "/api/admin/create", in, &out); err != nil {
		p.toast.Error(fmt.Sprintf("Could not create admin: %v", err))
		return "", err
	}
	p.toast.Success(fmt.Sprintf("Admin %s created", in.Email))
	return out.UID, nil
}

// Delete hides the admin at once and restores it if the server refuses.
func (p *AdminsPage) Delete(ctx context.Context, uid string) error {
	return p.optimistic(collections.Remove(uid), func() error {
		return p.call(ctx, "/api/admin/delete", map[string]string{"adminId": uid}, nil)
	}, "Admin deleted", "Could not delete admin")
}

// ChangeRole shows the new role at once and reverts it if the server refuses.
func (p *AdminsPage) ChangeRole(ctx context.Context, uid, role string) error {
	return p.optimistic(collections.SetFields(uid, map[string]interface{}{"role": role}), func() error {
		return p.call(ctx, "/api/admin/update-role", map[string]string{"adminId": uid, "newRole": role}, nil)
	}, "Role updated", "Could not change role")
}

func (p *AdminsPage) call(ctx context.Context, path string, body, out interface{}) error {
	if p.tokens == nil {
		return ErrNoToken
	}
	token := p.tokens.GetIDToken(ctx, false)
	if token == "" {
		return ErrNoToken
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("admin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
