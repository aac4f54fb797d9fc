// Command bolt is the terminal client for the BOLT lip-reading and
// hand-gesture backend.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/bolt/internal/app"
	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/config"
	"github.com/jwulff/bolt/internal/db"
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/history"
	"github.com/jwulff/bolt/internal/logging"
	"github.com/jwulff/bolt/internal/notify"
	"github.com/jwulff/bolt/internal/session"
	"github.com/jwulff/bolt/internal/speech"
	"github.com/jwulff/bolt/internal/video"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		backendURL  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "bolt.yaml", "Path to configuration file")
	flag.StringVar(&backendURL, "backend", "", "Inference backend base URL (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := run(configPath, backendURL); err != nil {
		fmt.Fprintf(os.Stderr, "bolt: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, backendURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(backendURL, "/")
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()
	logger.Info("starting", slog.String("version", version), slog.String("backend", cfg.Backend.BaseURL))

	store, closeStore, err := openHistory(cfg.History, logger)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	notifier := notify.New(cfg.Notify.Desktop, logger)
	sink := app.NewSink(notifier)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout())

	var camera video.Camera
	if cfg.Camera.Enabled {
		cam, err := video.NewFFMPEGCamera(cfg.Camera.Command, cfg.Camera.InputFormat, cfg.Camera.Device)
		if err != nil {
			return err
		}
		camera = cam
	}
	owner := video.NewOwner(camera, client, logger)
	owner.SetObserver(sink.VideoChanged)

	sessCfg := session.Config{PollInterval: cfg.PollInterval(), Warmup: cfg.Warmup()}
	var controllers []*session.Controller
	for _, mode := range domain.Modes() {
		controllers = append(controllers,
			session.NewController(mode, client, owner, store, sink, logger, sessCfg))
	}
	coordinator := session.NewCoordinator(owner, logger, controllers...)

	synth, err := speech.NewExecSynthesizer(cfg.Speech.Command)
	if err != nil {
		return err
	}
	speaker := speech.NewSpeaker(synth, speech.Params{
		Rate:   cfg.Speech.Rate,
		Pitch:  cfg.Speech.Pitch,
		Volume: cfg.Speech.Volume,
	}, logger)
	speaker.OnChange(sink.SpeechChanged)

	model := app.New(app.Deps{
		Sessions:     coordinator,
		History:      store,
		Speech:       speaker,
		Notifier:     notifier,
		Events:       sink.Events(),
		DownloadsDir: cfg.Downloads.Directory,
		Log:          logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()
	sink.Close()
	// A killed program skips the quit path; release the camera regardless.
	owner.Release()
	if runErr != nil {
		return fmt.Errorf("run tui: %w", runErr)
	}
	logger.Info("shutdown complete")
	return nil
}

// openHistory loads persisted history when enabled.
func openHistory(cfg config.HistoryConfig, logger *slog.Logger) (*history.Store, io.Closer, error) {
	if !cfg.Persist {
		return history.New(logger, nil), io.NopCloser(nil), nil
	}

	dbStore, err := db.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	entries, err := dbStore.LoadEntries()
	if err != nil {
		dbStore.Close()
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	logger.Info("history loaded", slog.Int("entries", len(entries)), slog.String("path", cfg.Path))
	return history.New(logger, entries, history.WithPersister(dbStore)), dbStore, nil
}
