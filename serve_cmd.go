package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/cache"
	"github.com/dgnsrekt/lingocast/internal/config"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/httpapi"
	"github.com/dgnsrekt/lingocast/internal/proc"
	"github.com/dgnsrekt/lingocast/internal/queue"
	"github.com/dgnsrekt/lingocast/internal/service"
	"github.com/dgnsrekt/lingocast/internal/storage"
	"github.com/dgnsrekt/lingocast/internal/tts"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the audio service",
	Long:    paragraph(fmt.Sprintf("\n%s the HTTP audio service that turns uploaded CSV phrase lists into MP3 tracks.", keyword("Run"))),
	Example: paragraph("lingocast serve\nlingocast serve --addr :9000 --engine mock"),
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("engine", "", "TTS engine: gtts or mock")
	serveCmd.Flags().String("output-dir", "", "directory for generated tracks (local storage)")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("tts.engine", serveCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("storage.output_dir", serveCmd.Flags().Lookup("output-dir"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeAll, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	if ok, missing := svc.CheckTools(ctx); !ok {
		log.Warn("Generation will fail until the missing tools are installed", "missing", missing)
	}

	watchConfig()

	scheduler, err := startCleanup(ctx, svc, cfg.Cleanup)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	return httpapi.New(svc, cfg.HTTP()).ListenAndServe(ctx)
}

// buildService wires the engine, storage and history described by c.
func buildService(ctx context.Context, c config.Config) (*service.AudioService, func(), error) {
	runner := proc.NewExec(0)

	var segments *cache.Manager
	if c.Cache.Enabled && !strings.EqualFold(c.TTS.Engine, "mock") {
		cc, err := c.SegmentCache()
		if err != nil {
			return nil, nil, err
		}
		if segments, err = cache.NewManager(cc); err != nil {
			return nil, nil, fmt.Errorf("unable to open segment cache: %w", err)
		}
	}

	engine, err := tts.New(c.Engine(), runner, segments)
	if err != nil {
		if segments != nil {
			_ = segments.Close()
		}
		return nil, nil, err
	}

	var store storage.Store
	switch c.Storage.Backend {
	case "s3":
		store, err = storage.NewS3Store(ctx, c.S3())
	default:
		store, err = storage.NewLocalStore(c.Storage.OutputDir)
	}
	if err != nil {
		_ = engine.Close()
		return nil, nil, err
	}

	hc, err := c.JobHistory()
	if err != nil {
		_ = engine.Close()
		return nil, nil, err
	}
	hist, err := history.Open(hc)
	if err != nil {
		_ = engine.Close()
		return nil, nil, err
	}

	svc, err := service.New(c.Service(), service.Deps{
		Engine:  engine,
		Store:   store,
		Encoder: audio.NewFFmpegEncoder(runner, c.Audio.Bitrate),
		Runner:  runner,
		History: hist,
		Queue:   queue.New(c.Server.MaxJobs, c.Server.MaxWaiting),
	})
	if err != nil {
		_ = engine.Close()
		_ = hist.Close()
		return nil, nil, err
	}

	log.Info("Audio service ready",
		"engine", engine.Info().Name,
		"storage", c.Storage.Backend,
		"history", hc.Enabled,
		"workers", c.TTS.Workers)

	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Warn("Could not close service", "err", err)
		}
		if err := hist.Close(); err != nil {
			log.Warn("Could not close job history", "err", err)
		}
	}, nil
}

// watchConfig applies log level changes from the config file without a
// restart. Other settings take effect on the next start.
func watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		c, err := config.Load(viper.GetViper())
		if err != nil {
			log.Warn("Ignoring invalid configuration change", "file", e.Name, "err", err)
			return
		}
		if lvl, err := log.ParseLevel(c.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
		log.Info("Configuration reloaded", "file", e.Name, "level", c.Log.Level)
	})
	viper.WatchConfig()
}

// startCleanup schedules the retention pass. The returned scheduler is
// always safe to Stop.
func startCleanup(ctx context.Context, svc *service.AudioService, c config.CleanupConfig) (*cron.Cron, error) {
	scheduler := cron.New()
	if c.Retention <= 0 {
		log.Debug("File retention disabled")
		return scheduler, nil
	}

	_, err := scheduler.AddFunc(c.Schedule, func() {
		rep, err := svc.Cleanup(ctx, time.Now())
		if err != nil {
			log.Error("Cleanup failed", "err", err)
			return
		}
		if rep.Files > 0 || rep.Jobs > 0 {
			log.Info("Removed expired audio", "files", rep.Files, "jobs", rep.Jobs)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", c.Schedule, err)
	}

	scheduler.Start()
	log.Info("File retention enabled", "retention", c.Retention, "schedule", c.Schedule)
	return scheduler, nil
}
