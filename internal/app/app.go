package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pulse-analytics/pulse-go/internal/cache"
	"github.com/pulse-analytics/pulse-go/internal/pulseapi"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config

	client *pulseapi.Client
	store  *cache.Store
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, API client, and
// cache store.
func NewApp(outW, errW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	var opts []pulseapi.Option
	if cfg.BaseURL != "" {
		opts = append(opts, pulseapi.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, pulseapi.WithAPIKey(cfg.APIKey))
	}
	client := pulseapi.NewClient(opts...)

	layers := []cache.Layer{cache.NewMemory(0)}
	if cfg.CacheDir != "" {
		disk, err := cache.NewDisk(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open cache directory: %w", err)
		}
		layers = append(layers, disk)
		logger.Debug("Persistent cache enabled.", "dir", cfg.CacheDir)
	}

	return &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: cfg,
		client: client,
		store:  cache.NewStore(layers...),
	}, nil
}

// Close releases the app's remote connections.
func (a *App) Close() error {
	return a.client.Close()
}

// loadDataset reads the default dataset from a text file, one item per
// line, skipping blank lines.
func loadDataset(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			items = append(items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
