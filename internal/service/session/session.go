// Package session defines the boundary between this service and
// session-cookie authentication: a thin interface provided through fx, with
// no database-backed implementation shipped here and no HTTP handler in
// this tree calling it. Wiring a
// real session store is deliberately left to the deployment that embeds
// this package — the dispatch core never needs to know how a request was
// authenticated, only that it was.
package session

import "context"

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID  int64
	RealmID int64
}

// Authenticator verifies a request's session cookie and returns the
// identity it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionCookie string) (Identity, error)
}

// ErrNotAuthenticated is returned by an Authenticator when the cookie does
// not name a valid, live session.
type ErrNotAuthenticated struct{}

func (ErrNotAuthenticated) Error() string { return "session: not authenticated" }

// StubAuthenticator rejects every request. It is the Authenticator the
// service module provides by default; a deployment that needs real
// authentication supplies its own Authenticator via fx.Replace.
type StubAuthenticator struct{}

func (StubAuthenticator) Authenticate(ctx context.Context, sessionCookie string) (Identity, error) {
	return Identity{}, ErrNotAuthenticated{}
}
