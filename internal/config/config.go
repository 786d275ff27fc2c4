// Package config loads lingocast settings from the YAML config file, the
// environment and command line flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/cache"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/httpapi"
	"github.com/dgnsrekt/lingocast/internal/service"
	"github.com/dgnsrekt/lingocast/internal/storage"
	"github.com/dgnsrekt/lingocast/internal/tts"
)

// AppName scopes config, cache and data directories.
const AppName = "lingocast"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LINGOCAST"

// Config is the full application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Audio   AudioConfig   `mapstructure:"audio"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	History HistoryConfig `mapstructure:"history"`
	Client  ClientConfig  `mapstructure:"client"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

// LogConfig controls the global logger. File writes logfmt to the cache
// directory instead of stderr.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
}

// ServerConfig holds the HTTP listener and job admission limits for serve.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	UploadDir   string   `mapstructure:"upload_dir"`
	MaxUploadMB int64    `mapstructure:"max_upload_mb"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateLimit   int      `mapstructure:"rate_limit"`
	MaxJobs     int      `mapstructure:"max_jobs"`
	MaxWaiting  int      `mapstructure:"max_waiting"`
}

// AudioConfig describes the PCM format tracks are assembled in and the MP3
// bitrate they are encoded at.
type AudioConfig struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Bitrate    string        `mapstructure:"bitrate"`
	LeadIn     time.Duration `mapstructure:"lead_in"`
}

// TTSConfig selects the speech engine (gtts or mock) and bounds its calls.
type TTSConfig struct {
	Engine            string        `mapstructure:"engine"`
	Slow              bool          `mapstructure:"slow"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Workers           int           `mapstructure:"workers"`
}

// CacheConfig sizes the synthesized segment cache. An empty Dir places the
// disk tier under the user cache directory.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	MemoryMB int64         `mapstructure:"memory_mb"`
	DiskMB   int64         `mapstructure:"disk_mb"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig picks where generated MP3s live: "local" or "s3".
type StorageConfig struct {
	Backend   string   `mapstructure:"backend"`
	OutputDir string   `mapstructure:"output_dir"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config mirrors storage.S3Config.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	Secure    bool   `mapstructure:"secure"`
}

// HistoryConfig selects the job history database. Driver is sqlite or
// postgres; an empty sqlite DSN uses history.db in the data directory.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// ClientConfig is used by the commands that talk to a running server.
type ClientConfig struct {
	APIBase string        `mapstructure:"api_base"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CleanupConfig schedules retention. A zero Retention keeps every file.
type CleanupConfig struct {
	Schedule  string        `mapstructure:"schedule"`
	Retention time.Duration `mapstructure:"retention"`
}

// legacyEnv maps keys to the plain variable names the audio service has
// always honoured, next to their LINGOCAST_ names.
var legacyEnv = map[string]string{
	"server.upload_dir":  "UPLOAD_DIR",
	"storage.output_dir": "OUTPUT_DIR",
	"client.api_base":    "LINGOCAST_API_BASE",
}

// SetDefaults registers every key with its default. Keys unknown to viper
// are invisible to environment overrides, so every field has one.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", false)

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.max_jobs", 2)
	v.SetDefault("server.max_waiting", 16)

	v.SetDefault("audio.sample_rate", audio.DefaultFormat().SampleRate)
	v.SetDefault("audio.bitrate", "128k")
	v.SetDefault("audio.lead_in", time.Second)

	v.SetDefault("tts.engine", "gtts")
	v.SetDefault("tts.slow", false)
	v.SetDefault("tts.requests_per_minute", 50)
	v.SetDefault("tts.timeout", 30*time.Second)
	v.SetDefault("tts.workers", 2)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.memory_mb", 64)
	v.SetDefault("cache.disk_mb", 512)
	v.SetDefault("cache.ttl", 7*24*time.Hour)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.output_dir", "outputs")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.secure", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "")

	v.SetDefault("client.api_base", "http://localhost:8000")
	v.SetDefault("client.timeout", time.Duration(0))

	v.SetDefault("cleanup.schedule", "@hourly")
	v.SetDefault("cleanup.retention", time.Duration(0))
}

// BindEnv enables LINGOCAST_SECTION_KEY overrides plus the legacy names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		auto := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, auto, name)
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error and variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.Debug("Loaded environment file", "path", f)
		}
	}
}

// Dirs returns the directories searched for lingocast.yml, most specific
// first.
func Dirs(getenv func(string) string) ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	if c := getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := getenv("LINGOCAST_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// CacheDir is where synthesized segments and the log file live by default.
func CacheDir() (string, error) {
	return gap.NewScope(gap.User, AppName).CacheDir()
}

// DataDir holds the default job history database.
func DataDir() (string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).DataDirs()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", errors.New("no data directory available")
	}
	return dirs[0], nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	if err := c.expandPaths(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// expandPaths resolves a leading ~ in directory settings.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Server.UploadDir, &c.Storage.OutputDir, &c.Cache.Dir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	if c.History.Driver == "sqlite" {
		expanded, err := homedir.Expand(c.History.DSN)
		if err != nil {
			return fmt.Errorf("unable to expand %q: %w", c.History.DSN, err)
		}
		c.History.DSN = expanded
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.TTS.Engine) {
	case "gtts", "google", "mock":
	default:
		errs = append(errs, fmt.Errorf("tts.engine must be gtts or mock, got %q", c.TTS.Engine))
	}
	if c.TTS.Workers < 1 || c.TTS.Workers > 16 {
		errs = append(errs, fmt.Errorf("tts.workers must be between 1 and 16, got %d", c.TTS.Workers))
	}
	if c.TTS.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("tts.requests_per_minute must be positive, got %d", c.TTS.RequestsPerMinute))
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3 needs an endpoint and a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend))
	}
	switch c.History.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("history.driver must be sqlite or postgres, got %q", c.History.Driver))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be between 8000 and 48000, got %d", c.Audio.SampleRate))
	}
	return errors.Join(errs...)
}

// Format is the PCM format tracks are assembled in.
func (c Config) Format() audio.Format {
	f := audio.DefaultFormat()
	f.SampleRate = c.Audio.SampleRate
	return f
}

// Engine returns the TTS engine settings.
func (c Config) Engine() tts.Config {
	return tts.Config{
		Engine:            c.TTS.Engine,
		Slow:              c.TTS.Slow,
		RequestsPerMinute: c.TTS.RequestsPerMinute,
		Timeout:           c.TTS.Timeout,
		Format:            c.Format(),
	}
}

// SegmentCache returns the cache settings, with the disk level under the
// user cache directory unless cache.dir is set.
func (c Config) SegmentCache() (cache.Config, error) {
	cc := cache.DefaultConfig()
	cc.MemoryCapacity = c.Cache.MemoryMB << 20
	cc.DiskCapacity = c.Cache.DiskMB << 20
	cc.TTL = c.Cache.TTL
	cc.DiskPath = c.Cache.Dir
	if cc.DiskPath == "" && cc.DiskCapacity > 0 {
		dir, err := CacheDir()
		if err != nil {
			return cache.Config{}, err
		}
		cc.DiskPath = filepath.Join(dir, "segments")
	}
	return cc, nil
}

// S3 returns the object storage settings.
func (c Config) S3() storage.S3Config {
	s := c.Storage.S3
	return storage.S3Config{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		Region:    s.Region,
		Prefix:    s.Prefix,
		Secure:    s.Secure,
	}
}

// JobHistory returns the history settings. An empty sqlite DSN points at
// the user data directory.
func (c Config) JobHistory() (history.Config, error) {
	hc := history.Config{
		Enabled: c.History.Enabled,
		Driver:  c.History.Driver,
		DSN:     c.History.DSN,
	}
	if hc.Enabled && hc.Driver == "sqlite" && hc.DSN == "" {
		dir, err := DataDir()
		if err != nil {
			return history.Config{}, err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return history.Config{}, fmt.Errorf("unable to create data directory: %w", err)
		}
		hc.DSN = filepath.Join(dir, "history.db")
	}
	return hc, nil
}

// Service returns the audio service settings.
func (c Config) Service() service.Config {
	sc := service.DefaultConfig()
	sc.UploadDir = c.Server.UploadDir
	sc.LeadIn = c.Audio.LeadIn
	sc.Workers = c.TTS.Workers
	sc.Format = c.Format()
	sc.Retention = c.Cleanup.Retention
	return sc
}

// HTTP returns the HTTP server settings.
func (c Config) HTTP() httpapi.Config {
	return httpapi.Config{
		Addr:        c.Server.Addr,
		MaxUploadMB: c.Server.MaxUploadMB,
		CORSOrigins: c.Server.CORSOrigins,
		RateLimit:   c.Server.RateLimit,
	}
}
