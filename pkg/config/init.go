package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoShare Configuration File
#
# Every key can be overridden with an environment variable named after its
# path, e.g. DITTOSHARE_LOGGING_LEVEL=DEBUG or DITTOSHARE_SHARE_ROOT=/srv/docs.
#
# metadata.type: sqlite | postgres | badger | memory
# blob.type:     fs | s3 | memory

`

// InitConfig writes a sample configuration to the default path and
// returns that path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Share.Root = filepath.Join(home, "dittoshare")
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
