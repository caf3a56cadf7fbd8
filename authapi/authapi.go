package authapi

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-erp-client/session"
)

// Backend auth endpoint paths
const (
	loginPath  = "/auth/login/"
	logoutPath = "/auth/logout/"
	mePath     = "/auth/me/"
	renewPath  = "/auth/refresh/"
)

// Doer is the slice of the request pipeline the auth API needs.
type Doer interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
}

// Client talks to the backend auth endpoints through the resilient request
// pipeline. Credential renewal lives on TokenClient instead, which bypasses
// the pipeline - a renewal that triggered renewal would recurse.
type Client struct {
	doer Doer
}

// New creates an auth API client on top of the request pipeline.
func New(doer Doer) (*Client, error) {
	if doer == nil {
		return nil, errors.New("[authapi.New] doer is required")
	}
	return &Client{doer: doer}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User    userPayload `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
}

// userPayload mirrors the backend's user shape; the nested school object is
// flattened into the Principal's tenant-scoping fields.
type userPayload struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Role      session.Role   `json:"role"`
	School    *schoolPayload `json:"school"`
}

type schoolPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (u userPayload) principal() session.Principal {
	principal := session.Principal{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
	if u.School != nil {
		principal.SchoolID = u.School.ID
		principal.SchoolName = u.School.Name
	}
	return principal
}

// Login exchanges credentials for a Principal and a full Credential pair.
func (c *Client) Login(ctx context.Context, username, password string) (session.Principal, session.Credential, error) {
	var resp loginResponse
	if err := c.doer.PostJSON(ctx, loginPath, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return session.Principal{}, session.Credential{}, errors.Wrap(err, "[Client.Login]")
	}

	credential := session.Credential{AccessToken: resp.Access, RefreshToken: resp.Refresh}
	if !credential.Complete() {
		return session.Principal{}, session.Credential{}, errors.New("[Client.Login] backend returned incomplete token pair")
	}
	return resp.User.principal(), credential, nil
}

// Logout tells the backend to invalidate the session. Best effort: failures
// are logged and swallowed, local logout proceeds regardless.
func (c *Client) Logout(ctx context.Context) {
	if err := c.doer.PostJSON(ctx, logoutPath, struct{}{}, nil); err != nil {
		log.Debug().Err(err).Msg("backend logout failed, continuing with local logout")
	}
}

// Me fetches the current principal for an identity refresh.
func (c *Client) Me(ctx context.Context) (session.Principal, error) {
	var user userPayload
	if err := c.doer.GetJSON(ctx, mePath, &user); err != nil {
		return session.Principal{}, errors.Wrap(err, "[Client.Me]")
	}
	return user.principal(), nil
}
