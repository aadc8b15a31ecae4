package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// Load reads the config file at path (YAML or JSON5, resolving `$include`/
// `include` directives and expanding environment variables), decodes it
// strictly into a Config, then applies the environment-variable overlay
// from §6's configuration-inputs contract.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateVersion(cfg.SchemaVersion); err != nil {
		return nil, err
	}

	applyEnvOverlay(cfg)
	return cfg, nil
}

// LoadRaw reads path and every file it `$include`s, merging them into one
// map. Exported so tools (e.g. a `doctor` subcommand) can inspect the
// resolved configuration before it is decoded into a Config.
func LoadRaw(path string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	return loadRawRecursive(abs, map[string]bool{})
}

func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	if seen[path] {
		return nil, fmt.Errorf("config include cycle at %s", path)
	}
	seen[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	raw, err := parseRawBytes(path, []byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	includes := extractIncludes(raw)
	dir := filepath.Dir(path)

	merged := map[string]any{}
	for _, inc := range includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		incMap, err := loadRawRecursive(incPath, seen)
		if err != nil {
			return nil, err
		}
		mergeMaps(merged, incMap)
	}
	mergeMaps(merged, raw)
	return merged, nil
}

func parseRawBytes(path string, data []byte) (map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" || ext == ".json5" {
		var out map[string]any
		if err := json5.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		if err == io.EOF {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("config file must be a single YAML document")
	}
	return out, nil
}

func extractIncludes(raw map[string]any) []string {
	var out []string
	for _, key := range []string{"$include", "include"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
		delete(raw, key)
	}
	return out
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			valueMap, valueIsMap := v.(map[string]any)
			if existingIsMap && valueIsMap {
				mergeMaps(existingMap, valueMap)
				continue
			}
		}
		dst[k] = v
	}
}

func decodeRawConfig(raw map[string]any) (*Config, error) {
	b, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-marshal merged config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverlay applies §6's environment-settings contract on top of the
// file-derived Config: per-provider keys <PROVIDER>_API_KEY[_N], MODEL_TIER,
// an optional proxy URL, and an optional projects-base-dir.
func applyEnvOverlay(cfg *Config) {
	if tier := os.Getenv("MODEL_TIER"); tier != "" {
		cfg.LLM.ModelTier = tier
	}
	if proxy := os.Getenv("PROXY_URL"); proxy != "" {
		cfg.LLM.ProxyURL = proxy
	}
	if dir := os.Getenv("PROJECTS_BASE_DIR"); dir != "" {
		cfg.Session.ProjectsDir = dir
	}

	providers := make(map[string]bool, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		providers[name] = true
	}
	for _, env := range os.Environ() {
		name, ok := providerFromKeyEnv(env)
		if !ok {
			continue
		}
		providers[name] = true
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		keys := providerKeysFromEnv(name)
		if len(keys) == 0 {
			continue
		}
		pc := cfg.LLM.Providers[name]
		pc.APIKeys = keys
		if cfg.LLM.Providers == nil {
			cfg.LLM.Providers = map[string]LLMProviderConfig{}
		}
		cfg.LLM.Providers[name] = pc
	}
}

// providerFromKeyEnv reports whether env is one of this provider's
// <PROVIDER>_API_KEY[_N] variables and, if so, the lowercased provider name.
func providerFromKeyEnv(env string) (string, bool) {
	parts := strings.SplitN(env, "=", 2)
	if len(parts) != 2 {
		return "", false
	}
	key := parts[0]
	const suffix = "_API_KEY"
	idx := strings.Index(key, suffix)
	if idx == -1 {
		return "", false
	}
	rest := key[idx+len(suffix):]
	if rest != "" && !isNumericSuffix(rest) {
		return "", false
	}
	return strings.ToLower(key[:idx]), true
}

func isNumericSuffix(s string) bool {
	if len(s) < 2 || s[0] != '_' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

// providerKeysFromEnv reads <PROVIDER>_API_KEY, <PROVIDER>_API_KEY_2, ... in
// order until a gap, feeding retry.NewProviderKeyManager's seed map.
func providerKeysFromEnv(provider string) []string {
	base := strings.ToUpper(provider) + "_API_KEY"
	var keys []string
	if v := os.Getenv(base); v != "" {
		keys = append(keys, v)
	}
	for n := 2; ; n++ {
		v := os.Getenv(fmt.Sprintf("%s_%d", base, n))
		if v == "" {
			break
		}
		keys = append(keys, v)
	}
	return keys
}
