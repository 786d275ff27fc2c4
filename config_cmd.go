package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# log level: debug, info, warn or error
log:
  level: "info"
  # write logs to the lingocast cache directory instead of stderr
  file: false

# audio service (lingocast serve)
server:
  addr: ":8000"
  # staging directory for uploaded CSV files
  upload_dir: "uploads"
  max_upload_mb: 20
  cors_origins: ["*"]
  # generation requests per minute per client IP, 0 disables
  rate_limit: 30
  # jobs generated at once, and how many may wait
  max_jobs: 2
  max_waiting: 16

audio:
  sample_rate: 24000
  bitrate: "128k"
  # silence at the start of every CSV track
  lead_in: "1s"

tts:
  # gtts (Google Translate TTS through gtts-cli) or mock
  engine: "gtts"
  slow: false
  requests_per_minute: 50
  timeout: "30s"
  # concurrent synthesis calls per job
  workers: 2

# synthesized sentence cache
cache:
  enabled: true
  # dir: "/path/to/segments"
  memory_mb: 64
  disk_mb: 512
  ttl: "168h"

storage:
  # local or s3
  backend: "local"
  output_dir: "outputs"
  s3:
    endpoint: ""
    access_key: ""
    secret_key: ""
    bucket: ""
    region: ""
    prefix: ""
    secure: true

# job history database
history:
  enabled: true
  # sqlite or postgres; an empty sqlite dsn uses the lingocast data directory
  driver: "sqlite"
  dsn: ""

# lingocast submit, files, text, jobs
client:
  api_base: "http://localhost:8000"
  timeout: "0s"

# retention of generated files, 0 keeps everything
cleanup:
  schedule: "@hourly"
  retention: "0s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the lingocast config file",
	Long:    paragraph(fmt.Sprintf("\n%s the lingocast config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("lingocast config\nlingocast config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("lingocast", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// create all necessary directories and write the default config
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
