package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads and parses the TOML config file, injecting defaults before the
// unmarshal and running semantic validation after it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(permissionDecodeHook())); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	normalizeAccounts(cfg.Accounts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, field := range []struct {
		name  string
		value *string
	}{
		{"CacheRoot", &cfg.Global.CacheRoot},
		{"WebRoot", &cfg.Global.WebRoot},
		{"SiteRoot", &cfg.Global.SiteRoot},
	} {
		if *field.value == "" {
			continue
		}
		abs, err := filepath.Abs(*field.value)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", field.name, err)
		}
		*field.value = abs
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheRoot", "./cache")
	v.SetDefault("WebRoot", "./web")
	v.SetDefault("SiteRoot", "")
	v.SetDefault("Theme", "default")
	v.SetDefault("AssetsTool", "assets")
	v.SetDefault("RootTool", "admin")
	v.SetDefault("GzipMinSize", 256)
	v.SetDefault("GzipLevel", 6)
	v.SetDefault("SerializeAccounts", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if g.Theme == "" {
		g.Theme = "default"
	}
	if g.AssetsTool == "" {
		g.AssetsTool = "assets"
	}
	if g.RootTool == "" {
		g.RootTool = "admin"
	}
	if g.GzipMinSize == 0 {
		g.GzipMinSize = 256
	}
	if g.GzipLevel == 0 {
		g.GzipLevel = 6
	}
	g.Theme = strings.ToLower(strings.TrimSpace(g.Theme))
	g.AssetsTool = strings.ToLower(strings.TrimSpace(g.AssetsTool))
	g.RootTool = strings.ToLower(strings.TrimSpace(g.RootTool))
}

func normalizeAccounts(accounts []AccountConfig) {
	for i := range accounts {
		accounts[i].Name = strings.TrimSpace(accounts[i].Name)
	}
}

// permissionDecodeHook lets viper map the "privilege:tool" string form onto
// the Permission struct.
func permissionDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Permission{})

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}
		raw, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ParsePermission(raw)
	}
}
