// Package config reads percona-toolkit style config files.
//
// Every line is key=value or a bare key, which enables a flag. Empty lines and lines
// starting with # are ignored. Files read later override keys of files read before.
package config

import (
	"bufio"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type value struct {
	raw   string
	typed interface{}
}

type Config struct {
	options map[string]value
	files   []string
}

// GetString returns the value of key as written in the file, or "" if key is not set.
// Bare keys return "".
func (c *Config) GetString(key string) string {
	return c.options[key].raw
}

func (c *Config) GetInt64(key string) int64 {
	if v, ok := c.options[key].typed.(int64); ok {
		return v
	}
	return 0
}

func (c *Config) GetFloat64(key string) float64 {
	switch v := c.options[key].typed.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (c *Config) GetBool(key string) bool {
	if v, ok := c.options[key].typed.(bool); ok {
		return v
	}
	return false
}

func (c *Config) HasKey(key string) bool {
	_, ok := c.options[key]
	return ok
}

// Files returns the files the config was read from, in order.
func (c *Config) Files() []string {
	return c.files
}

func DefaultConfigFiles(toolName string) ([]string, error) {
	user, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "cannot get the current user")
	}

	files := []string{
		"/etc/percona-toolkit/percona-toolkit.conf",
		"/etc/percona-toolkit/${TOOLNAME}.conf",
		"${HOME}/.percona-toolkit.conf",
		"${HOME}/.${TOOLNAME}.conf",
	}

	r := strings.NewReplacer("${TOOLNAME}", toolName, "${HOME}", user.HomeDir)
	for i := range files {
		files[i] = r.Replace(files[i])
	}

	return files, nil
}

// DefaultConfig reads the default config files of toolName.
func DefaultConfig(toolName string) (*Config, error) {
	files, err := DefaultConfigFiles(toolName)
	if err != nil {
		return nil, err
	}
	return NewConfig(files...)
}

// NewConfig reads files in order. Missing files are skipped.
func NewConfig(files ...string) (*Config, error) {
	config := &Config{
		options: make(map[string]value),
	}
	for _, filename := range files {
		if _, err := os.Stat(filename); err != nil {
			continue
		}
		if err := read(filename, config.options); err != nil {
			return nil, errors.Wrapf(err, "cannot read config file %s", filename)
		}
		config.files = append(config.files, filename)
	}
	return config, nil
}

func read(filename string, opts map[string]value) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(m[0])

		if len(m) == 1 {
			opts[key] = value{typed: true}
			continue
		}

		opts[key] = parse(strings.TrimSpace(m[1]))
	}

	return scanner.Err()
}

func parse(val string) value {
	switch strings.ToLower(val) {
	case "true", "yes":
		return value{raw: val, typed: true}
	case "false", "no":
		return value{raw: val, typed: false}
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return value{raw: val, typed: val}
	}
	if f == float64(int64(f)) {
		return value{raw: val, typed: int64(f)}
	}
	return value{raw: val, typed: f}
}
