// Package accessgate is the authorization policy shared by every
// protected route. It composes session resolution with store lookups so
// the ownership check lives in exactly one place.
package accessgate

import "github.com/patric-chuzhbe/tinylinks/internal/models"

// Decision is the three-way outcome of an owner-scoped authorization.
type Decision int

const (
	// DecisionAuthorized means the session resolves to the link's owner.
	DecisionAuthorized Decision = iota

	// DecisionForbidden means the link exists but the session does not
	// resolve to its owner (including anonymous sessions).
	DecisionForbidden

	// DecisionNotFound means no link exists for the token, regardless of
	// session state.
	DecisionNotFound
)

type sessionResolver interface {
	Resolve(handle string) string
}

type userFinder interface {
	FindByID(id string) (models.User, bool)
}

type linkFinder interface {
	Get(token string) (models.ShortLink, bool)
}

// Gate answers the authorization questions of the protected routes.
type Gate struct {
	sessions sessionResolver
	users    userFinder
	links    linkFinder
}

// New returns a Gate over the given session manager and stores.
func New(sessions sessionResolver, users userFinder, links linkFinder) *Gate {
	return &Gate{
		sessions: sessions,
		users:    users,
		links:    links,
	}
}

// RequireAuthenticated resolves handle to a live user. A handle whose
// embedded ID no longer references an existing user is treated as
// anonymous.
func (g *Gate) RequireAuthenticated(handle string) (string, bool) {
	userID := g.sessions.Resolve(handle)
	if userID == "" {
		return "", false
	}
	if _, exists := g.users.FindByID(userID); !exists {
		return "", false
	}

	return userID, true
}

// AuthorizeOwnerAction decides whether the session behind handle may
// act on the link behind token. Absence of the link wins over any
// session state; an existing link owned by someone else (or viewed
// anonymously) is Forbidden, never NotFound.
func (g *Gate) AuthorizeOwnerAction(handle, token string) (Decision, models.ShortLink) {
	link, found := g.links.Get(token)
	if !found {
		return DecisionNotFound, models.ShortLink{}
	}

	userID, ok := g.RequireAuthenticated(handle)
	if !ok || userID != link.OwnerID {
		return DecisionForbidden, models.ShortLink{}
	}

	return DecisionAuthorized, link
}
