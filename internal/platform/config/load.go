package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix        = "APP_"
	databaseURLEnv   = "DATABASE_URL"
	defaultConfigDir = "configs"
)

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	configDir string
}

// WithConfigDir sets the directory holding base.yaml and the profile files.
// Defaults to "configs" relative to the working directory.
func WithConfigDir(dir string) Option {
	return func(o *loadOptions) {
		o.configDir = dir
	}
}

// layer is one source in the configuration stack. Layers are applied in
// order, later ones overriding earlier ones key by key.
type layer struct {
	name string
	load func(k *koanf.Koanf) error
}

// Load resolves the configuration for profile from, lowest precedence first:
//
//  1. built-in defaults
//  2. {configDir}/base.yaml
//  3. {configDir}/{profile}.yaml
//  4. DATABASE_URL, as storage.database_url
//  5. APP_* environment variables
//
// APP_ variables are matched against the keys already loaded, so underscores
// inside a field name survive:
//
//	APP_SERVER_READ_TIMEOUT                  -> server.read_timeout
//	APP_STORAGE_BACKEND                      -> storage.backend
//	APP_STORAGE_CIRCUIT_BREAKER_MAX_FAILURES -> storage.circuit_breaker.max_failures
//
// The result is validated before it is returned.
func Load(profile string, opts ...Option) (*Config, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	o := &loadOptions{configDir: defaultConfigDir}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")
	for _, l := range layers(o.configDir, profile) {
		if err := l.load(k); err != nil {
			return nil, fmt.Errorf("loading %s: %w", l.name, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func layers(dir, profile string) []layer {
	yamlFile := func(path string) layer {
		return layer{name: path, load: func(k *koanf.Koanf) error {
			return k.Load(file.Provider(path), yaml.Parser())
		}}
	}

	return []layer{
		{name: "defaults", load: func(k *koanf.Koanf) error {
			return k.Load(confmap.Provider(defaults(), "."), nil)
		}},
		yamlFile(filepath.Join(dir, "base.yaml")),
		yamlFile(filepath.Join(dir, profile+".yaml")),
		{name: databaseURLEnv, load: func(k *koanf.Koanf) error {
			return k.Load(env.Provider(".", env.Opt{
				Prefix:        databaseURLEnv,
				TransformFunc: databaseURLKey,
			}), nil)
		}},
		{name: envPrefix + "* environment", load: func(k *koanf.Koanf) error {
			return k.Load(env.Provider(".", env.Opt{
				Prefix:        envPrefix,
				TransformFunc: envKeyMapper(k.Keys()),
			}), nil)
		}},
	}
}

// databaseURLKey keeps only the exact DATABASE_URL variable; the prefix
// match would otherwise also pick up DATABASE_URL_* variables.
func databaseURLKey(key, value string) (string, any) {
	if key != databaseURLEnv {
		return "", nil
	}
	return "storage.database_url", value
}

// envKeyMapper maps APP_ variable names onto the known dotted keys. Unknown
// names fall back to replacing every underscore with a dot.
func envKeyMapper(known []string) func(key, value string) (string, any) {
	lookup := make(map[string]string, len(known))
	for _, key := range known {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if dotted, ok := lookup[key]; ok {
			return dotted, value
		}
		return strings.ReplaceAll(key, "_", "."), value
	}
}

// validateProfile rejects empty profile names and names that would escape
// the config directory.
func validateProfile(profile string) error {
	switch {
	case strings.TrimSpace(profile) == "":
		return errors.New("profile must not be empty")
	case strings.ContainsAny(profile, `/\`):
		return fmt.Errorf("profile must not contain path separators, got %q", profile)
	case strings.Contains(profile, ".."):
		return fmt.Errorf("profile must not contain path traversal, got %q", profile)
	}
	return nil
}
