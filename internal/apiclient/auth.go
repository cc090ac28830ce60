package apiclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/me/gestion/pkg/model"
)

// Endpoints used by the session lifecycle.
const (
	LoginPath  = "/auth/login"
	SignupPath = "/auth/signup"
	ProbePath  = "/protected"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Role      model.UserRole // defaults to RoleUser
}

func (r SignupRequest) payload() map[string]any {
	role := r.Role
	if strings.TrimSpace(string(role)) == "" {
		role = model.RoleUser
	}
	return map[string]any{
		"firstname": strings.TrimSpace(r.Firstname),
		"lastname":  strings.TrimSpace(r.Lastname),
		"email":     strings.TrimSpace(r.Email),
		"password":  r.Password,
		"role":      string(role),
	}
}

func (r SignupRequest) complete() bool {
	return strings.TrimSpace(r.Firstname) != "" &&
		strings.TrimSpace(r.Lastname) != "" &&
		strings.TrimSpace(r.Email) != "" &&
		r.Password != ""
}

// Login authenticates with email and password. On success the returned
// token is persisted to the session store.
func (c *Client) Login(ctx context.Context, email, password string) model.Result {
	res := c.Post(ctx, LoginPath, map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	return c.adoptToken(ctx, res)
}

// Signup registers a new account. Missing required fields fail locally
// without a request. On success the returned token is persisted.
func (c *Client) Signup(ctx context.Context, req SignupRequest) model.Result {
	if !req.complete() {
		return model.Failure(model.KindClient, 0, "all fields are required")
	}
	res := c.Post(ctx, SignupPath, req.payload())
	return c.adoptToken(ctx, res)
}

// Probe asks the server whether it accepts the current token.
func (c *Client) Probe(ctx context.Context) model.Result {
	return c.Get(ctx, ProbePath)
}

// adoptToken stores the token carried by a successful auth response.
func (c *Client) adoptToken(ctx context.Context, res model.Result) model.Result {
	if !res.OK {
		return res
	}
	token := res.String("token")
	if token == "" {
		fail := model.Failure(model.KindClient, res.Status, "no token received")
		fail.RequestID = res.RequestID
		return fail
	}
	if c.Session == nil {
		return res
	}
	if err := c.Session.Set(ctx, token); err != nil {
		fail := model.Failure(model.KindClient, res.Status, fmt.Sprintf("store session: %v", err))
		fail.RequestID = res.RequestID
		return fail
	}
	c.Logger.Info("session started", "request_id", res.RequestID)
	return res
}
