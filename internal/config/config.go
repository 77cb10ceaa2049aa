// Package config reads process configuration for the meshctl/meshd
// commands: listen address for the networked cluster communicator,
// checkpoint storage location and backend, log level, and a default
// refinement level field.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// DefaultBaseDirectoryPath is where meshctl/meshd look for a config
	// file and store checkpoints, unless overridden by -base. It
	// defaults to $MESH_BASE if set, otherwise $HOME/lib/t8mesh.
	DefaultBaseDirectoryPath string
)

func init() {
	if base := os.Getenv("MESH_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/t8mesh")
	}
}

// C holds the parsed configuration.
type C struct {
	// ListenNet/ListenAddr are where the rank coordinator started by
	// "meshctl cluster" listens, e.g. "tcp" / "localhost:7670".
	ListenNet  string
	ListenAddr string

	// CheckpointDir is where DiskStore checkpoints are written, if the
	// disk backend is selected. Relative paths are resolved against
	// the base directory.
	CheckpointDir string

	// CheckpointStorage selects the checkpoint backend: "disk",
	// "memory", or "s3".
	CheckpointStorage string

	// S3Region/S3Bucket/S3Profile only make sense if CheckpointStorage
	// is "s3".
	S3Region  string
	S3Bucket  string
	S3Profile string

	// DefaultRefinementLevel is 0 by default. No config-file key sets
	// it, and meshctl's -level flag does not read it.
	DefaultRefinementLevel int

	// LogLevel is a logrus level name, e.g. "info", "debug".
	LogLevel string

	base string
}

// Load loads configuration from the file called "config" within base. A
// missing file yields a C with the built-in defaults below.
func Load(base string) (*C, error) {
	c := defaults()
	c.base = base
	filename := filepath.Join(base, "config")
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return applyDerived(c), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := load(f, c); err != nil {
		return nil, fmt.Errorf("config.Load %q: %w", filename, err)
	}
	return applyDerived(c), nil
}

func defaults() *C {
	return &C{
		ListenNet:              "tcp",
		ListenAddr:             "localhost:7670",
		CheckpointDir:          "checkpoints",
		CheckpointStorage:      "disk",
		DefaultRefinementLevel: 0,
		LogLevel:               "info",
	}
}

func applyDerived(c *C) *C {
	if c.CheckpointDir != "" && !filepath.IsAbs(c.CheckpointDir) {
		c.CheckpointDir = filepath.Clean(filepath.Join(c.base, c.CheckpointDir))
	}
	return c
}

func load(f io.Reader, c *C) error {
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i == -1 {
			return fmt.Errorf("load: no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		switch key {
		case "listen-net":
			c.ListenNet = val
		case "listen-addr":
			c.ListenAddr = val
		case "checkpoint-dir":
			c.CheckpointDir = val
		case "checkpoint-storage":
			c.CheckpointStorage = val
		case "s3-region":
			c.S3Region = val
		case "s3-bucket":
			c.S3Bucket = val
		case "s3-profile":
			c.S3Profile = val
		case "log-level":
			c.LogLevel = val
		default:
			return fmt.Errorf("load: unrecognized key %q", key)
		}
	}
	return s.Err()
}

// Base returns the base directory this configuration was loaded from.
func (c *C) Base() string { return c.base }
