package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CARBON_"

// Load builds a Config from defaults, the file at path and the process
// environment. A missing file is not an error. An empty path skips the file.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Environ())
}

// LoadWithEnv is Load with an explicit environment in KEY=VALUE form.
func LoadWithEnv(path string, environ []string) (Config, error) {
	layers := make([]map[string]any, 0, 2)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			m, err := parseTOML(path, data)
			if err != nil {
				return Config{}, err
			}
			layers = append(layers, m)
		}
	}
	layers = append(layers, envLayer(environ))

	merged := make(map[string]any)
	for _, l := range layers {
		merged = DeepMerge(merged, l)
	}
	return decode(path, merged)
}

// Parse decodes TOML data over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	m, err := parseTOML("<input>", data)
	if err != nil {
		return Config{}, err
	}
	return decode("<input>", m)
}

func parseTOML(path string, data []byte) (map[string]any, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, wrapTOMLError(path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

func decode(path string, m map[string]any) (Config, error) {
	cfg := Default()
	if len(m) > 0 {
		data, err := toml.Marshal(m)
		if err != nil {
			return Config{}, fmt.Errorf("encode merged config: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, wrapTOMLError(path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func wrapTOMLError(path string, err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		line, col := derr.Position()
		return &ParseError{Path: path, Line: line, Column: col, Message: derr.Error(), Err: err}
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) {
		return &ParseError{Path: path, Message: "unknown key: " + strings.TrimSpace(serr.String()), Err: err}
	}
	return &ParseError{Path: path, Message: err.Error(), Err: err}
}

// envLayer converts CARBON_SECTION_KEY variables into a nested map.
func envLayer(environ []string) map[string]any {
	out := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		path := envToPath(key)
		if path == "" {
			continue
		}
		setByPath(out, path, parseValue(value))
	}
	return out
}

var sections = map[string]bool{
	"history":     true,
	"tree":        true,
	"transaction": true,
	"log":         true,
	"schema":      true,
}

// envToPath converts CARBON_HISTORY_MAX_ENTRIES to history.max_entries.
// Keys outside the known sections are ignored.
func envToPath(key string) string {
	rest := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || !sections[section] || field == "" {
		return ""
	}
	return section + "." + field
}

func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func setByPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// DeepMerge merges src into dst recursively. Values in src win; nested
// tables are merged key by key. dst is modified and returned.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for k, sv := range src {
		if sm, ok := sv.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = DeepMerge(dm, sm)
				continue
			}
			dst[k] = DeepMerge(make(map[string]any), sm)
			continue
		}
		dst[k] = sv
	}
	return dst
}
