// Package guard decides whether a console screen may render.
//
// Public screens are always allowed. Protected screens require a stored
// token that the server still accepts, verified with a probe request. Any
// failed probe clears the token and sends the user to the login screen;
// the cause of the failure is logged but does not change the outcome.
package guard

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/me/gestion/internal/logging"
	"github.com/me/gestion/pkg/model"
)

// DefaultRedirectDelay is how long a failed probe waits before navigating,
// so the failure message can be shown first.
const DefaultRedirectDelay = 500 * time.Millisecond

// publicPages is the closed allow-list of screens that need no session.
var publicPages = map[model.Page]bool{
	model.PageIndex:    true,
	model.PageLogin:    true,
	model.PageRegister: true,
}

// IsPublic reports whether page renders without a session.
func IsPublic(page model.Page) bool {
	return publicPages[page]
}

// Session is the token state the guard reads and clears.
type Session interface {
	Get(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Prober validates the current token against the server.
type Prober interface {
	Probe(ctx context.Context) model.Result
}

// Guard runs the per-screen access check.
type Guard struct {
	session Session
	prober  Prober
	nav     Navigator
	delay   time.Duration
	logger  *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithRedirectDelay sets the pause between a failed probe and navigation.
func WithRedirectDelay(d time.Duration) Option {
	return func(g *Guard) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithLogger sets the guard's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Guard.
func New(sess Session, prober Prober, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		session: sess,
		prober:  prober,
		nav:     nav,
		delay:   DefaultRedirectDelay,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "guard")
	return g
}

// Check runs the access state machine for page and navigates on redirect.
func (g *Guard) Check(ctx context.Context, page model.Page) model.Decision {
	logger := g.logger.With("page", page)

	if IsPublic(page) {
		logger.Debug("public page")
		return model.Decision{Page: page, Outcome: model.OutcomeAllowed}
	}
	return g.verify(ctx, logger, page)
}

// Verify runs the protected branch of Check regardless of page: the
// stored token must exist and pass the probe.
func (g *Guard) Verify(ctx context.Context) model.Decision {
	return g.verify(ctx, g.logger, "")
}

func (g *Guard) verify(ctx context.Context, logger *slog.Logger, page model.Page) model.Decision {
	if _, ok := g.session.Get(ctx); !ok {
		g.clear(ctx, logger)
		logger.Info("no session, redirecting", "target", model.PageLogin)
		return g.redirect(ctx, page, "no session")
	}

	res := g.prober.Probe(ctx)
	if res.OK {
		logger.Debug("session accepted", "request_id", res.RequestID)
		return model.Decision{Page: page, Outcome: model.OutcomeAllowed}
	}
	if res.Kind == model.KindTransport && ctx.Err() != nil {
		// The caller gave up before the server answered; the token stays.
		logger.Debug("session check abandoned", "error", ctx.Err())
		return g.redirect(ctx, page, ctx.Err().Error())
	}

	logger.Warn("session rejected",
		"kind", res.Kind, "status", res.Status, "error", res.Error, "request_id", res.RequestID)
	g.clear(ctx, logger)

	select {
	case <-ctx.Done():
	case <-time.After(g.delay):
	}
	d := g.redirect(ctx, page, res.Error)
	d.Cause = res.Err()
	return d
}

// Enter starts Check in the background. Screen code must Wait on the
// returned gate before issuing any request that needs a session.
func (g *Guard) Enter(ctx context.Context, page model.Page) *Gate {
	gate := &Gate{done: make(chan struct{})}
	go func() {
		defer close(gate.done)
		gate.decision = g.Check(ctx, page)
	}()
	return gate
}

// Logout clears the session and navigates to the login screen. It never
// contacts the server.
func (g *Guard) Logout(ctx context.Context) model.Decision {
	g.clear(ctx, g.logger)
	g.logger.Info("logged out")
	g.nav.Navigate(ctx, model.PageLogin)
	return model.Decision{Page: model.PageLogin, Outcome: model.OutcomeRedirected, Target: model.PageLogin, Reason: "logout"}
}

// RedirectIfSignedIn is used by the login and register screens: when a
// token is already stored it navigates to the home screen.
func (g *Guard) RedirectIfSignedIn(ctx context.Context, page model.Page) model.Decision {
	if _, ok := g.session.Get(ctx); !ok {
		return model.Decision{Page: page, Outcome: model.OutcomeAllowed}
	}
	g.logger.Debug("already signed in", "page", page, "target", model.PageIndex)
	g.nav.Navigate(ctx, model.PageIndex)
	return model.Decision{Page: page, Outcome: model.OutcomeRedirected, Target: model.PageIndex, Reason: "already signed in"}
}

func (g *Guard) redirect(ctx context.Context, page model.Page, reason string) model.Decision {
	g.nav.Navigate(ctx, model.PageLogin)
	return model.Decision{Page: page, Outcome: model.OutcomeRedirected, Target: model.PageLogin, Reason: reason}
}

// clear drops the stored token. A storage failure is logged; the redirect
// still happens.
func (g *Guard) clear(ctx context.Context, logger *slog.Logger) {
	if err := g.session.Clear(ctx); err != nil {
		logger.Error("clear session failed", "error", err)
	}
}

// PageFromPath returns the screen identifier for a URL path: its last
// segment, or index.html when the path names a directory.
func PageFromPath(p string) model.Page {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return model.PageIndex
	}
	return model.Page(path.Base(p))
}

// Gate resolves once the guard has decided.
type Gate struct {
	done     chan struct{}
	decision model.Decision
}

// Wait blocks until the decision is available or ctx ends.
func (g *Gate) Wait(ctx context.Context) (model.Decision, error) {
	select {
	case <-g.done:
		return g.decision, nil
	case <-ctx.Done():
		return model.Decision{}, ctx.Err()
	}
}
