package rc

import (
	"os"
	"path/filepath"
)

// Paths keeps the paths needed to reach or spawn the daemon.
type Paths struct {
	DB   string
	Sock string
	// Directory for the socket and the daemon log files.
	RunDir string
}

// ResolvePaths works out the paths of the database and the socket. Non-empty
// arguments, which come from command-line flags, take precedence over cfg,
// which takes precedence over the defaults. The directories of the default
// paths are created.
func ResolvePaths(db, sock string, cfg *Config) (*Paths, error) {
	runDir, err := secureRunDir()
	if err != nil {
		return nil, err
	}
	if sock == "" {
		sock = cfg.Sock
	}
	if sock == "" {
		sock = filepath.Join(runDir, "sock")
	}

	if db == "" {
		db = cfg.DB
	}
	if db == "" {
		dir, err := dataHome()
		if err != nil {
			return nil, err
		}
		db = filepath.Join(dir, "calcsh", "db.bolt")
		if err := os.MkdirAll(filepath.Dir(db), 0700); err != nil {
			return nil, err
		}
	}
	return &Paths{DB: db, Sock: sock, RunDir: runDir}, nil
}
