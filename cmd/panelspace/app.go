package main

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/internal/models"
	"panelspace/pkg/config"
	"panelspace/pkg/curved"
	"panelspace/pkg/imagecache"
	"panelspace/pkg/layout"
	"panelspace/pkg/mainthread"
	"panelspace/pkg/panel"
	"panelspace/pkg/source"
)

// app holds state shared by all commands.
type app struct {
	logger     *log.Logger
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newApp(w io.Writer) *app {
	return &app{
		logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           log.InfoLevel,
		}),
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "panelspace",
		Short:        "Lay out image panels around a viewer",
		Long:         `panelspace places folders of images on curved grids around a viewer, loads them through a bounded texture cache and bends panels into cylindrical sections.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				a.logger.SetLevel(log.DebugLevel)
			}
			if isConfigCommand(cmd) {
				return nil
			}
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "panelspace.yaml", "configuration file (YAML or TOML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(a.layoutCommand())
	root.AddCommand(a.previewCommand())
	root.AddCommand(a.meshCommand())
	root.AddCommand(a.configCommand())
	return root
}

// viewerFlags describe the viewer frame on the command line.
type viewerFlags struct {
	eyeHeight float64
	heading   float64
}

func (v *viewerFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&v.eyeHeight, "eye-height", 1.6, "viewer eye height in meters")
	cmd.Flags().Float64Var(&v.heading, "heading", 0, "viewer heading in degrees, positive to the right")
}

// frame returns the viewer at the origin looking along +Z turned by heading.
func (v *viewerFlags) frame() models.ViewerFrame {
	forward := r3.Rotate(r3.Vec{Z: 1}, -v.heading*math.Pi/180, models.WorldUp)
	return models.ViewerFrame{Position: r3.Vec{Y: v.eyeHeight}, Forward: forward}
}

// session wires the cache, layout, curvature and panel components.
type session struct {
	queue *mainthread.Queue
	cache *imagecache.Cache
	coord *panel.Coordinator
}

func (a *app) newSession() (*session, error) {
	opts, err := imagecache.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	opts.Logger = a.logger

	queue := mainthread.NewQueue(0)
	cache, err := imagecache.New(queue, opts)
	if err != nil {
		return nil, err
	}

	popts := panel.OptionsFromConfig(a.cfg)
	popts.Logger = a.logger
	coord := panel.NewCoordinator(
		cache,
		layout.NewEngine(layout.GridOptionsFromConfig(a.cfg), a.logger),
		layout.NewTiler(layout.TilingOptionsFromConfig(a.cfg)),
		curved.NewGenerator(curved.OptionsFromConfig(a.cfg)),
		popts,
	)
	return &session{queue: queue, cache: cache, coord: coord}, nil
}

func (r *session) close() {
	r.coord.CloseAll()
	r.cache.Shutdown()
	r.queue.Close()
}

// openFolder lays out dir on the curved grid and waits for every image.
func (a *app) openFolder(ctx context.Context, r *session, dir string, frame models.ViewerFrame) ([]*panel.Panel, error) {
	records, err := source.NewDirectory(dir, a.cfg, a.logger).Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate images: %w", err)
	}
	// every panel keeps its texture while the preview is drawn
	if need := len(records) + len(r.coord.Panels()); need > r.cache.Stats().Capacity {
		if err := r.cache.SetCapacity(need); err != nil {
			return nil, err
		}
		a.logger.Debug("grew texture cache", "capacity", need)
	}
	panels, err := r.coord.OpenFolder(ctx, source.Records(records), frame)
	if err != nil {
		return nil, err
	}
	if err := r.queue.RunUntil(ctx, func() bool { return r.coord.Pending() == 0 }); err != nil {
		return nil, fmt.Errorf("waiting for images: %w", err)
	}

	s := r.cache.Stats()
	a.logger.Debug("cache", "entries", s.Len, "capacity", s.Capacity,
		"loads", s.Loads, "failures", s.Failures, "evictions", s.Evictions, "joined", s.Joined)
	return panels, nil
}
