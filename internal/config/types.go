package config

import (
	"fmt"
	"strings"
)

// Permission is a single granted privilege scoped to one tool, written in
// config as "privilege:tool", e.g. "access-tool:bboard" or "develop:admin".
type Permission struct {
	Privilege string
	Tool      string
}

// ParsePermission splits the "privilege:tool" config form.
func ParsePermission(raw string) (Permission, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, fmt.Errorf("invalid permission %q, want privilege:tool", raw)
	}
	return Permission{
		Privilege: strings.ToLower(parts[0]),
		Tool:      strings.ToLower(parts[1]),
	}, nil
}

func (p Permission) String() string {
	return p.Privilege + ":" + p.Tool
}

// GlobalConfig describes process-wide runtime behavior shared by every tool.
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// CacheRoot anchors the on-disk object cache; entries live under
	// <CacheRoot>/<tool>/<key>.
	CacheRoot string `mapstructure:"CacheRoot"`

	// WebRoot is the base static tree. SiteRoot, when set, is an override
	// tree searched first so a deployment can shadow shipped assets.
	WebRoot  string `mapstructure:"WebRoot"`
	SiteRoot string `mapstructure:"SiteRoot"`

	// Theme names the active theme directory; "$theme/..." asset paths and
	// the public-tool list resolve against it.
	Theme string `mapstructure:"Theme"`

	// AssetsTool/RootTool name the always-public common-assets tool and the
	// administrative tool whose "develop" privilege grants everything.
	AssetsTool string `mapstructure:"AssetsTool"`
	RootTool   string `mapstructure:"RootTool"`

	GzipMinSize int `mapstructure:"GzipMinSize"`
	GzipLevel   int `mapstructure:"GzipLevel"`

	// SerializeAccounts keeps account resolution and dynamic dispatch behind
	// one process-wide mutex. Required while the account backend is not safe
	// for concurrent use; a thread-safe backend may switch it off.
	SerializeAccounts bool `mapstructure:"SerializeAccounts"`
}

// AccountConfig declares one principal of the built-in static directory.
type AccountConfig struct {
	Name        string       `mapstructure:"Name"`
	Permissions []Permission `mapstructure:"Permissions"`
}

// Config is the full structure mapped from the TOML file.
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Accounts []AccountConfig `mapstructure:"Account"`

	// TemplateRevisions pins a declared revision for template-backed
	// resources whose freshness is not derivable from file mtimes.
	TemplateRevisions map[string]string `mapstructure:"TemplateRevisions"`
}

// PublicTools returns the tools every request may reach without an explicit
// grant: the common assets tool and the active theme.
func (g GlobalConfig) PublicTools() []string {
	return []string{strings.ToLower(g.AssetsTool), strings.ToLower(g.Theme)}
}

// IsPublicTool reports whether tool is reachable without a permission grant.
func (g GlobalConfig) IsPublicTool(tool string) bool {
	tool = strings.ToLower(tool)
	for _, public := range g.PublicTools() {
		if public != "" && public == tool {
			return true
		}
	}
	return false
}
