package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/hualin/rednote-studio/internal/config"
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/service"
	"github.com/hualin/rednote-studio/internal/store"
)

// The export CLI renders a batch of captions from a text file into the same
// ZIP archive the API serves, without needing the LLM at all. Captions in
// the input file are separated by lines holding only --- or ***.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "rednote-export",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	input := flag.String("input", "captions.txt", "Captions file, entries separated by --- or *** lines")
	output := flag.String("output", "rednote-export.zip", "Output archive path")
	layout := flag.String("layout", "standard", "Card layout variant")
	themeName := flag.String("theme", "redbook", "Color theme")
	ratio := flag.String("ratio", "4:5", "Aspect ratio (e.g. 1:1, 4:5, 16:9, custom:7:3)")
	fontFamily := flag.String("font", "sans", "Font family")
	fontSize := flag.String("size", "medium", "Font size (small, medium, large)")
	includeImages := flag.Bool("include-images", false, "Fetch and include original images")
	workers := flag.Int("workers", 4, "Render workers")
	configPath := flag.String("config", "", "Path to config file (for render settings)")
	flag.Parse()

	// Render settings come from the config file when present; flags cover
	// everything else.
	renderOpts := render.Options{}
	if cfg, err := config.Load(*configPath); err == nil {
		renderOpts.BaseWidth = cfg.Render.BaseWidth
		renderOpts.Scale = cfg.Render.Scale
		renderOpts.FontFile = cfg.Render.FontFile
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read captions file")
	}
	captions := splitCaptionFile(string(raw))
	if len(captions) == 0 {
		appLogger.Fatal("Captions file holds no captions")
	}

	results := store.NewResults()
	images := store.NewImages()
	batch := make([]domain.GenerationResult, 0, len(captions))
	for _, caption := range captions {
		batch = append(batch, domain.GenerationResult{
			ID:      uuid.New().String(),
			Content: caption,
		})
	}
	results.ReplaceBatch(batch)

	rasterizer, err := render.New(renderOpts, images)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize rasterizer")
	}
	exportService := service.NewExportService(results, images, rasterizer, nil, *workers)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	style := domain.StyleConfiguration{
		Layout:     domain.ParseLayoutVariant(*layout),
		Theme:      domain.ColorTheme(*themeName),
		Ratio:      domain.ParseAspectRatio(*ratio),
		FontFamily: domain.FontFamily(*fontFamily),
		FontSize:   domain.FontSize(*fontSize),
	}

	data, report, err := exportService.ExportAll(ctx, service.ExportOptions{
		Style:         style,
		IncludeImages: *includeImages,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Export failed")
	}

	if err := os.WriteFile(*output, data, 0o644); err != nil {
		appLogger.WithError(err).Fatal("Failed to write archive")
	}

	appLogger.WithFields(logger.Fields{
		"total":    report.Total,
		"exported": report.Exported,
		"failed":   len(report.Failures),
		"output":   *output,
	}).Info("Export completed")
	for _, failure := range report.Failures {
		appLogger.WithFields(logger.Fields{
			"card":  failure.ID,
			"stage": failure.Stage,
		}).Warn(failure.Error)
	}
}

// splitCaptionFile splits on lines holding only --- or ***, the formats the
// archive's captions.txt and the LLM's raw output use.
func splitCaptionFile(raw string) []string {
	var captions []string
	var current []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			captions = append(captions, text)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" || trimmed == "***" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return captions
}
