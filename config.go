package monitor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "MONITOR_"

// Config holds the settings rules are built from.
type Config struct {
	// CommandStart lists the markers a command may start with. An empty
	// string allows bare commands.
	CommandStart []string `koanf:"command_start"`

	// CommandSep lists the separators between parts of a nested command.
	CommandSep []string `koanf:"command_sep"`

	// BotName is the handle ToMe looks for in group messages.
	BotName string `koanf:"bot_name"`

	// LogLevel is a zerolog level name used by the CLI.
	LogLevel string `koanf:"log_level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		CommandStart: []string{"/", ""},
		CommandSep:   []string{"."},
		LogLevel:     "info",
	}
}

// LoadConfig layers the defaults, the file at path (toml or yaml by
// extension; skipped when path is empty) and MONITOR_* environment
// variables. List values given as strings are split on commas.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	def := DefaultConfig()
	defaults := map[string]any{
		"command_start": def.CommandStart,
		"command_sep":   def.CommandSep,
		"bot_name":      def.BotName,
		"log_level":     def.LogLevel,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}
