package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jcolombo/paymo/internal/config"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named account profile.
type Remote struct {
	URL         string `toml:"url"`
	Key         string `toml:"key,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func remoteConfigPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var rc RemotesConfig
	if _, err := toml.DecodeFile(path, &rc); err != nil {
		if os.IsNotExist(err) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if rc.Remotes == nil {
		rc.Remotes = map[string]Remote{}
	}
	return rc, nil
}

func saveRemotesConfig(rc RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(rc)
}

// applyRemote overlays the named remote, or the active one when name is
// empty, onto c. Empty remote fields leave c untouched.
func applyRemote(c *config.Config, name string) error {
	rc, err := loadRemotesConfig()
	if err != nil {
		return fmt.Errorf("loading remotes: %w", err)
	}
	if name == "" {
		name = rc.Active
	}
	if name == "" {
		return nil
	}
	r, ok := rc.Remotes[name]
	if !ok {
		return fmt.Errorf("remote %q not found", name)
	}
	if r.URL != "" {
		c.API.URL = r.URL
	}
	if r.Key != "" {
		c.API.Key = r.Key
	}
	if r.NATSURL != "" {
		c.Events.NATSURL = r.NATSURL
	}
	return nil
}

func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-2:]
	}
	return "****"
}
