package model

import "time"

// Session describes the locally stored credential for one API origin.
// Presence of a token only means the holder believes it is signed in; the
// server decides whether it still accepts it.
type Session struct {
	Origin  string    `json:"origin"`
	Token   string    `json:"-"`
	SavedAt time.Time `json:"saved_at"`
}

// Page identifies a console screen.
type Page string

const (
	PageIndex     Page = "index.html"
	PageLogin     Page = "login.html"
	PageRegister  Page = "register.html"
	PagePersonnel Page = "personnel.html"
	PageSection   Page = "section.html"
	PageUsers     Page = "users.html"
)

// Outcome is the terminal state of a route guard check.
type Outcome string

const (
	OutcomeAllowed    Outcome = "allowed"
	OutcomeRedirected Outcome = "redirected"
)

// Decision is the result of running the route guard for one page.
type Decision struct {
	Page    Page    `json:"page"`
	Outcome Outcome `json:"outcome"`
	Target  Page    `json:"target,omitempty"` // set when redirected
	Reason  string  `json:"reason,omitempty"`
	Cause   error   `json:"-"` // failed probe result, when there was one
}

// Allowed reports whether the page may render.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}
