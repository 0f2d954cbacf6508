package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultEnvFile = ".env"

type Option func(*loaderOptions)

type loaderOptions struct {
	envFile               string
	envMap                map[string]string
	useSystemEnv          bool
	secret                SecretResolver
	requiredSecrets       []string
	panicOnMissingSecrets bool
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithEnvFile reads local overrides from path instead of .env. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// EnvironmentValues returns the merged key/value view Load would see. main uses it to set
// up the secret fetcher before the configuration itself can be loaded.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	env, err := newEnvSource(newLoaderOptions(opts))
	if err != nil {
		return nil, err
	}
	return env.values, nil
}

// envSource is a flattened snapshot of every configuration source.
type envSource struct {
	values map[string]string
}

func newEnvSource(options loaderOptions) (envSource, error) {
	values, err := readDotEnv(options.envFile)
	if err != nil {
		return envSource{}, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if key = strings.TrimSpace(key); ok && key != "" {
				values[key] = value
			}
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return envSource{values: values}, nil
}

func (e envSource) str(key, fallback string) string {
	if value := e.values[key]; value != "" {
		return value
	}
	return fallback
}

func (e envSource) lower(key, fallback string) string {
	return strings.ToLower(e.str(key, fallback))
}

func (e envSource) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.values[key]); err == nil {
		return d
	}
	return fallback
}

func (e envSource) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(e.values[key])); err == nil {
		return n
	}
	return fallback
}

func (e envSource) boolean(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(e.values[key])) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// list splits a comma-separated value, dropping blanks.
func (e envSource) list(key string) []string {
	out := []string{}
	for _, part := range strings.Split(e.values[key], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pairs parses "prod=a,staging=b" into a map with lower-cased keys.
func (e envSource) pairs(key string) map[string]string {
	out := make(map[string]string)
	for _, entry := range e.list(key) {
		name, value, ok := strings.Cut(entry, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if ok && name != "" && value != "" {
			out[name] = value
		}
	}
	return out
}

// readDotEnv parses KEY=VALUE lines. A missing file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}
