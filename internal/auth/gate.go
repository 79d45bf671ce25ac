// Package auth decides which callers may act on which resources.
package auth

import (
	"sort"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// Gate answers authorization questions against a fixed admin set.
// It is immutable after construction and safe for concurrent use.
type Gate struct {
	admins map[string]struct{}
}

// NewGate builds a gate from the configured admin ids. Blank ids are ignored.
func NewGate(admins []string) *Gate {
	g := &Gate{admins: make(map[string]struct{}, len(admins))}
	for _, id := range admins {
		if id != "" {
			g.admins[id] = struct{}{}
		}
	}
	return g
}

// IsAdmin reports whether caller is in the admin set.
func (g *Gate) IsAdmin(caller string) bool {
	if caller == "" {
		return false
	}
	_, ok := g.admins[caller]
	return ok
}

// CanDeploy reports whether caller may create resources.
func (g *Gate) CanDeploy(caller string) bool {
	return g.IsAdmin(caller)
}

// CanManage reports whether caller may act on rec: the owner and every
// admin may.
func (g *Gate) CanManage(caller string, rec *session.Record) bool {
	if caller == "" {
		return false
	}
	if g.IsAdmin(caller) {
		return true
	}
	return rec != nil && rec.OwnerID == caller
}

// Admins returns the admin ids in sorted order.
func (g *Gate) Admins() []string {
	out := make([]string, 0, len(g.admins))
	for id := range g.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
