package config

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Config is the display-file server configuration.
type Config struct {
	Listen      string        `xml:"listen"`
	Dataset     string        `xml:"dataset"`
	Subfile     SubfileConfig `xml:"subfile"`
	JobCapacity int           `xml:"job-capacity"`
	TN3270      TN3270Config  `xml:"tn3270"`
	LogFile     string        `xml:"log-file"`
}

// SubfileConfig shapes the subfile the server renders.
type SubfileConfig struct {
	PageSize       int    `xml:"page-size"`
	FoldKey        string `xml:"fold-key"`
	RowKind        string `xml:"row-kind"`
	AllowsAjax     *bool  `xml:"allows-ajax"`
	ShowSubfileEnd bool   `xml:"show-subfile-end"`
	Folded         bool   `xml:"folded"`
}

// TN3270Config configures the terminal listing of the same data.
type TN3270Config struct {
	Enabled bool   `xml:"enabled,attr"`
	Address string `xml:",chardata"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from an XML file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads configuration from r and fills in defaults.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := xml.NewDecoder(r)
	// ISO-8859-1 config files are read as-is; only the ASCII subset matters.
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Subfile.PageSize <= 0 {
		c.Subfile.PageSize = 10
	}
	if c.Subfile.FoldKey == "" {
		c.Subfile.FoldKey = "PF11"
	}
	if c.Subfile.RowKind == "" {
		c.Subfile.RowKind = "table"
	}
	if c.Subfile.AllowsAjax == nil {
		on := true
		c.Subfile.AllowsAjax = &on
	}
	if c.JobCapacity <= 0 {
		c.JobCapacity = 256
	}
	c.TN3270.Address = strings.TrimSpace(c.TN3270.Address)
	if c.TN3270.Address == "" {
		c.TN3270.Address = ":3270"
	}
}
