package api

import (
	"net/http"
	"strings"

	"github.com/xraph/ecoseed"
)

// DefaultMemberHeader carries the authenticated member reference when
// the API sits behind an authenticating gateway.
const DefaultMemberHeader = "X-Member-Ref"

// IdentityResolver returns the acting member for a request, or an error
// wrapping ecoseed.ErrUnauthenticated.
type IdentityResolver interface {
	ResolveMember(r *http.Request) (string, error)
}

// IdentityFunc adapts a function to IdentityResolver.
type IdentityFunc func(r *http.Request) (string, error)

// ResolveMember implements IdentityResolver.
func (f IdentityFunc) ResolveMember(r *http.Request) (string, error) { return f(r) }

// HeaderIdentity trusts a header set by an upstream authenticator.
type HeaderIdentity struct {
	Header string
}

// ResolveMember implements IdentityResolver.
func (h HeaderIdentity) ResolveMember(r *http.Request) (string, error) {
	name := h.Header
	if name == "" {
		name = DefaultMemberHeader
	}
	ref := strings.TrimSpace(r.Header.Get(name))
	if ref == "" {
		return "", ecoseed.ErrUnauthenticated
	}
	return ref, nil
}
