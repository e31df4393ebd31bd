package authz

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// State is the terminal outcome of the authorization gate.
type State string

const (
	StateAuthorized      State = "authorized"
	StateForbidden       State = "forbidden"
	StateAccountNotFound State = "account_not_found"
	StateInternalError   State = "internal_error"
)

// Decision carries the gate outcome plus the resolved account for handlers
// that need it. It lives only for the request.
type Decision struct {
	State     State
	Principal string
	Tool      string
	Account   Account
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.State == StateAuthorized
}

// Guard is the process-wide mutual-exclusion region around the account
// backend. The backend is not safe for concurrent use, so account
// resolution and every dynamic servlet body run one at a time behind it.
// A thread-safe backend disables it through config and the methods become
// no-ops.
type Guard struct {
	mu      sync.Mutex
	enabled bool
}

// NewGuard builds a guard; pass serialize=false only when the account
// backend is known to be thread-safe.
func NewGuard(serialize bool) *Guard {
	return &Guard{enabled: serialize}
}

func (g *Guard) Lock() {
	if g.enabled {
		g.mu.Lock()
	}
}

func (g *Guard) Unlock() {
	if g.enabled {
		g.mu.Unlock()
	}
}

// GateOptions configures the authorization gate.
type GateOptions struct {
	Resolver AccountResolver
	Logger   *logrus.Logger
	Guard    *Guard

	// RootTool is the administrative tool whose "develop" privilege grants
	// access everywhere.
	RootTool string

	// PublicTools are reachable by any resolvable account without an
	// explicit grant (the common assets tool and the active theme).
	PublicTools []string
}

// Gate decides, per request, whether a principal may use a tool. It runs
// before any handler logic.
type Gate struct {
	resolver    AccountResolver
	logger      *logrus.Logger
	guard       *Guard
	rootTool    string
	publicTools map[string]struct{}
}

// NewGate builds the gate.
func NewGate(opts GateOptions) *Gate {
	public := make(map[string]struct{}, len(opts.PublicTools))
	for _, tool := range opts.PublicTools {
		if tool != "" {
			public[tool] = struct{}{}
		}
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewGuard(false)
	}
	return &Gate{
		resolver:    opts.Resolver,
		logger:      opts.Logger,
		guard:       guard,
		rootTool:    opts.RootTool,
		publicTools: public,
	}
}

// Guard exposes the shared mutual-exclusion region so dynamic dispatch can
// hold it for the duration of a servlet call.
func (g *Gate) Guard() *Guard {
	return g.guard
}

// Check resolves the principal's account and decides access to the tool.
// "unauthorized" and "nonexistent account" produce the same response shape
// but distinct audit logs.
func (g *Gate) Check(principal, tool string) Decision {
	decision := Decision{Principal: principal, Tool: tool}

	g.guard.Lock()
	account, err := g.resolver.ResolveAccount(principal)
	g.guard.Unlock()

	if err != nil {
		decision.State = StateInternalError
		g.logger.WithError(err).WithFields(logrus.Fields{
			"action":    "authorize",
			"principal": principal,
			"tool":      tool,
		}).Error("account resolution failed")
		return decision
	}

	if account == nil {
		decision.State = StateAccountNotFound
		g.logger.WithFields(logrus.Fields{
			"action":    "authorize",
			"principal": principal,
			"tool":      tool,
			"reason":    "nonexistent account",
		}).Warn("access denied")
		return decision
	}

	decision.Account = account
	if g.permits(account, tool) {
		decision.State = StateAuthorized
		return decision
	}

	decision.State = StateForbidden
	g.logger.WithFields(logrus.Fields{
		"action":    "authorize",
		"principal": principal,
		"tool":      tool,
		"reason":    "unauthorized",
	}).Warn("access denied")
	return decision
}

func (g *Gate) permits(account Account, tool string) bool {
	if _, ok := g.publicTools[tool]; ok {
		return true
	}
	g.guard.Lock()
	defer g.guard.Unlock()
	if account.HasPermission(PrivilegeAccess, tool) {
		return true
	}
	return g.rootTool != "" && account.HasPermission(PrivilegeDevelop, g.rootTool)
}
