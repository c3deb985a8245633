package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type envKind int

const (
	envString envKind = iota
	envInt
	envBool
)

type envSpec struct {
	EnvVar      string
	Description string
	Default     string
	Kind        envKind
	apply       func(c *Config, value string) error
}

var envSpecs = []envSpec{
	{
		EnvVar:      "DDS5250_LISTEN",
		Description: "Address the display-file server listens on",
		Default:     ":8080",
		apply:       func(c *Config, v string) error { c.Listen = v; return nil },
	},
	{
		EnvVar:      "DDS5250_DATASET",
		Description: "TOML file with the subfile records (empty: built-in sample)",
		apply:       func(c *Config, v string) error { c.Dataset = v; return nil },
	},
	{
		EnvVar:      "DDS5250_PAGE_SIZE",
		Description: "Records per subfile page",
		Default:     "10",
		Kind:        envInt,
		apply: func(c *Config, v string) error {
			return setPositive(&c.Subfile.PageSize, v)
		},
	},
	{
		EnvVar:      "DDS5250_FOLD_KEY",
		Description: "AID key that toggles fold/drop",
		Default:     "PF11",
		apply:       func(c *Config, v string) error { c.Subfile.FoldKey = v; return nil },
	},
	{
		EnvVar:      "DDS5250_ROW_KIND",
		Description: "Subfile row markup: table or grid",
		Default:     "table",
		apply:       func(c *Config, v string) error { c.Subfile.RowKind = v; return nil },
	},
	{
		EnvVar:      "DDS5250_ALLOWS_AJAX",
		Description: "Page subfiles in place instead of submitting the form",
		Default:     "true",
		Kind:        envBool,
		apply: func(c *Config, v string) error {
			on := parseBool(v)
			c.Subfile.AllowsAjax = &on
			return nil
		},
	},
	{
		EnvVar:      "DDS5250_SHOW_SUBFILE_END",
		Description: "Show the end-of-data cue under the subfile",
		Default:     "true",
		Kind:        envBool,
		apply:       func(c *Config, v string) error { c.Subfile.ShowSubfileEnd = parseBool(v); return nil },
	},
	{
		EnvVar:      "DDS5250_JOB_CAPACITY",
		Description: "Maximum number of live jobs before the oldest is evicted",
		Default:     "256",
		Kind:        envInt,
		apply: func(c *Config, v string) error {
			return setPositive(&c.JobCapacity, v)
		},
	},
	{
		EnvVar:      "DDS5250_TN3270",
		Description: "Also serve the subfile listing over tn3270",
		Default:     "false",
		Kind:        envBool,
		apply:       func(c *Config, v string) error { c.TN3270.Enabled = parseBool(v); return nil },
	},
	{
		EnvVar:      "DDS5250_TN3270_ADDRESS",
		Description: "Address of the tn3270 listener",
		Default:     ":3270",
		apply:       func(c *Config, v string) error { c.TN3270.Address = v; return nil },
	},
	{
		EnvVar:      "DDS5250_LOG_FILE",
		Description: "Log file (empty: next to the binary)",
		apply:       func(c *Config, v string) error { c.LogFile = v; return nil },
	},
}

// EnsureDotEnv writes a default .env file if none exists.
func EnsureDotEnv(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(buildDotEnvContent()), 0644)
}

// LoadDotEnv loads environment variables from a .env file without overriding
// variables that are already set.
func LoadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
	return scanner.Err()
}

// ApplyEnv overrides cfg with every DDS5250_* variable that is set and not
// empty. All variables are applied; the first malformed one is reported.
func ApplyEnv(cfg *Config) error {
	var firstErr error
	for _, spec := range envSpecs {
		value := strings.TrimSpace(os.Getenv(spec.EnvVar))
		if value == "" {
			continue
		}
		if err := spec.apply(cfg, value); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", spec.EnvVar, err)
		}
	}
	return firstErr
}

func buildDotEnvContent() string {
	var buf bytes.Buffer
	buf.WriteString("# 5250Web display-file server options (.env overrides).\n")
	buf.WriteString("# Empty values keep the XML configuration.\n\n")
	for _, spec := range envSpecs {
		def := spec.Default
		if def == "" {
			def = "(none)"
		}
		fmt.Fprintf(&buf, "# %s (default: %s)\n", spec.Description, def)
		fmt.Fprintf(&buf, "%s=\n\n", spec.EnvVar)
	}
	return buf.String()
}

func parseEnvLine(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if unquoted, err := strconv.Unquote(value); err == nil {
		return key, unquoted, true
	}
	return key, value, true
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func setPositive(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	*dst = n
	return nil
}
