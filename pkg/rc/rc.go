// Package rc loads the configuration file of calcsh and works out the paths
// used by the shell and the daemon.
package rc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"src.calc.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[rc] ")

// Config is the content of rc.yaml. Empty fields take their default values.
type Config struct {
	// Path to the database.
	DB string `yaml:"db"`
	// Path to the daemon socket.
	Sock string `yaml:"sock"`
	// "light" or "dark".
	ColourMode string `yaml:"colour-mode"`
	// Address the daemon serves websocket clients and metrics on. Only used
	// when the daemon is spawned by the shell.
	WSAddr string `yaml:"ws-addr"`
	// A websocket URL of a remote daemon. When set, the shell talks to it
	// instead of the local daemon.
	Remote string `yaml:"remote"`
	// Whether the shell spawns the daemon when it is not running. Defaults
	// to true.
	SpawnDaemon *bool `yaml:"spawn-daemon"`
}

// ShouldSpawnDaemon returns the value of SpawnDaemon, or true if it is unset.
func (c *Config) ShouldSpawnDaemon() bool {
	return c.SpawnDaemon == nil || *c.SpawnDaemon
}

// Load reads the config file at path. A missing file is not an error and
// results in an empty Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Println("no config file at", path)
		return &Config{}, nil
	} else if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses the content of a config file. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the default path of rc.yaml.
func Path() (string, error) {
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "calcsh", "rc.yaml"), nil
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func dataHome() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
