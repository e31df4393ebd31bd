package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var knownPrivileges = map[string]struct{}{
	"access-tool": {},
	"develop":     {},
	"moderate":    {},
}

const knownPrivilegeList = "access-tool|develop|moderate"

// Validate performs semantic checks so an invalid config never starts the
// server.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "must be within 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "unknown log level "+g.LogLevel)
	}
	if g.CacheRoot == "" {
		return newFieldError("Global.CacheRoot", "must not be empty")
	}
	if g.WebRoot == "" {
		return newFieldError("Global.WebRoot", "must not be empty")
	}
	if g.Theme == "" {
		return newFieldError("Global.Theme", "must not be empty")
	}
	if g.GzipMinSize < 0 {
		return newFieldError("Global.GzipMinSize", "must not be negative")
	}
	if g.GzipLevel < 1 || g.GzipLevel > 9 {
		return newFieldError("Global.GzipLevel", "must be within 1-9")
	}

	seenNames := map[string]struct{}{}
	for _, account := range c.Accounts {
		if account.Name == "" {
			return newFieldError(accountField("", "Name"), "must not be empty")
		}
		// The account directory indexes names lowercased, so a duplicate
		// check on the raw name would let one account shadow another.
		key := strings.ToLower(account.Name)
		if _, exists := seenNames[key]; exists {
			return newFieldError(accountField(account.Name, "Name"), "duplicate account name")
		}
		seenNames[key] = struct{}{}

		for _, perm := range account.Permissions {
			if _, ok := knownPrivileges[perm.Privilege]; !ok {
				return newFieldError(accountField(account.Name, "Permissions"),
					"unknown privilege "+perm.Privilege+", want "+knownPrivilegeList)
			}
		}
	}

	for path, rev := range c.TemplateRevisions {
		if !strings.HasPrefix(path, "/") {
			return newFieldError("TemplateRevisions", "path "+path+" must start with /")
		}
		if !isLowerHex(rev) {
			return newFieldError("TemplateRevisions", "revision for "+path+" must be lowercase hex")
		}
	}

	return nil
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
