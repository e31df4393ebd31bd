package authz

import (
	"strings"

	"github.com/intraweb/intraweb/internal/config"
)

// Privileges known to the permission model.
const (
	PrivilegeAccess  = "access-tool"
	PrivilegeDevelop = "develop"
)

// Account is the narrow view of the external account collaborator this core
// needs: an identity plus a permission check.
type Account interface {
	Name() string
	HasPermission(privilege, tool string) bool
}

// AccountResolver resolves a remote principal to an account. A nil account
// with a nil error means the principal is unknown; errors are backend
// failures only.
type AccountResolver interface {
	ResolveAccount(principal string) (Account, error)
}

// StaticDirectory is the config-backed resolver used by standalone
// deployments and tests. Directory-service integrations implement
// AccountResolver elsewhere.
type StaticDirectory struct {
	accounts map[string]*staticAccount
}

// NewStaticDirectory indexes the configured accounts by lowercase name.
func NewStaticDirectory(accounts []config.AccountConfig) *StaticDirectory {
	dir := &StaticDirectory{accounts: make(map[string]*staticAccount, len(accounts))}
	for _, ac := range accounts {
		name := strings.ToLower(strings.TrimSpace(ac.Name))
		if name == "" {
			continue
		}
		grants := make(map[string]struct{}, len(ac.Permissions))
		for _, perm := range ac.Permissions {
			grants[perm.Privilege+":"+perm.Tool] = struct{}{}
		}
		dir.accounts[name] = &staticAccount{name: name, grants: grants}
	}
	return dir
}

func (d *StaticDirectory) ResolveAccount(principal string) (Account, error) {
	principal = strings.ToLower(strings.TrimSpace(principal))
	if principal == "" {
		return nil, nil
	}
	account, ok := d.accounts[principal]
	if !ok {
		return nil, nil
	}
	return account, nil
}

type staticAccount struct {
	name   string
	grants map[string]struct{}
}

func (a *staticAccount) Name() string {
	return a.name
}

func (a *staticAccount) HasPermission(privilege, tool string) bool {
	key := strings.ToLower(privilege) + ":" + strings.ToLower(tool)
	_, ok := a.grants[key]
	return ok
}
