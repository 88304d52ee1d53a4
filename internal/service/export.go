package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hualin/rednote-studio/internal/content"
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/layout"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/storage"
	"github.com/hualin/rednote-studio/internal/store"
	"github.com/hualin/rednote-studio/internal/theme"
)

// ExportService renders every card of the working set and packs the batch
// into a ZIP archive: captions as text, rendered cards, and optionally the
// original images. One broken card never sinks the batch.
type ExportService struct {
	results *store.Results
	images  *store.Images
	ras     *render.Rasterizer
	archive storage.ArchiveStore
	client  *resty.Client
	workers int
}

// ExportOptions selects the card style applied to the whole batch and what
// goes into the archive.
type ExportOptions struct {
	Style         domain.StyleConfiguration
	IncludeImages bool
	Upload        bool
}

// ExportFailure records one card that could not be fully exported.
type ExportFailure struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// ExportReport summarizes one export run.
type ExportReport struct {
	Total      int             `json:"total"`
	Exported   int             `json:"exported"`
	Failures   []ExportFailure `json:"failures,omitempty"`
	ArchiveURL string          `json:"archiveUrl,omitempty"`
}

// NewExportService creates the export pipeline. archive may be nil; uploads
// are then skipped even when requested.
func NewExportService(results *store.Results, images *store.Images, ras *render.Rasterizer, archive storage.ArchiveStore, workers int) *ExportService {
	if workers <= 0 {
		workers = 4
	}
	client := resty.New()
	client.SetTimeout(20 * time.Second)
	return &ExportService{
		results: results,
		images:  images,
		ras:     ras,
		archive: archive,
		client:  client,
		workers: workers,
	}
}

// exportItem is the per-card outcome. Slots keep the batch order regardless
// of which worker finishes first.
type exportItem struct {
	result    domain.GenerationResult
	cardData  []byte
	cardExt   string
	imgData   []byte
	imgExt    string
	renderErr error
	imageErr  error
}

// ExportAll renders the whole working set into a ZIP archive. Cards that
// fail to render are reported and skipped; the archive is produced as long
// as at least one card succeeds.
func (s *ExportService) ExportAll(ctx context.Context, opts ExportOptions) ([]byte, ExportReport, error) {
	batch := s.results.List()
	if len(batch) == 0 {
		return nil, ExportReport{}, fmt.Errorf("nothing to export: the working set is empty")
	}

	started := time.Now()
	items := make([]exportItem, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range batch {
		i := i
		items[i].result = batch[i]
		g.Go(func() error {
			s.exportOne(gctx, &items[i], opts)
			return nil
		})
	}
	// Workers record failures per item and never return errors themselves;
	// Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return nil, ExportReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ExportReport{}, err
	}

	data, report, err := s.assemble(batch, items, opts)
	if err != nil {
		return nil, report, err
	}

	if opts.Upload && s.archive != nil {
		key := fmt.Sprintf("exports/rednote-export-%s.zip", time.Now().Format("20060102-150405"))
		if err := s.archive.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/zip"); err != nil {
			logger.CtxWarn(ctx, "Archive upload failed, returning ZIP directly: err=%v", err)
		} else {
			report.ArchiveURL = s.archive.GetURL(key)
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount:      report.Exported,
		logger.FieldSize:       len(data),
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
	}).Info(ctx, "Export finished: total=%d, failed=%d", report.Total, len(report.Failures))

	return data, report, nil
}

// exportOne renders one card and, when requested, fetches its original
// image. Both halves fail independently.
func (s *ExportService) exportOne(ctx context.Context, item *exportItem, opts ExportOptions) {
	res := item.result
	parsed := content.Parse(res.Content)
	tree := layout.Render(opts.Style, layout.Input{
		Content:  parsed,
		Palette:  theme.ResolveColors(opts.Style.Theme),
		Font:     theme.ResolveFont(opts.Style.FontFamily, opts.Style.FontSize),
		ImageURL: res.ImageURL,
	})

	png, err := s.ras.Rasterize(ctx, tree)
	switch {
	case err == nil:
		item.cardData = png
		item.cardExt = "png"
	case res.ImageURL != "":
		// Capture fallback chain: a failed full-card raster degrades to the
		// card's raw image bytes before it becomes a reported failure.
		data, ext, fetchErr := s.fetchOriginal(ctx, res.ImageURL)
		if fetchErr != nil {
			item.renderErr = err
			logger.CtxWarn(ctx, "Card render failed during export, no image to fall back on: card_id=%s, err=%v", res.ID, err)
		} else {
			item.cardData = data
			item.cardExt = ext
			logger.CtxWarn(ctx, "Card render failed during export, archiving raw image instead: card_id=%s, err=%v", res.ID, err)
		}
	default:
		item.renderErr = err
		logger.CtxWarn(ctx, "Card render failed during export: card_id=%s, err=%v", res.ID, err)
	}

	if opts.IncludeImages && res.ImageURL != "" {
		data, ext, err := s.fetchOriginal(ctx, res.ImageURL)
		if err != nil {
			item.imageErr = err
			logger.CtxWarn(ctx, "Original image unavailable for export: card_id=%s, err=%v", res.ID, err)
		} else {
			item.imgData = data
			item.imgExt = ext
		}
	}
}

// fetchOriginal loads the raw bytes behind an image source for the archive's
// images/ directory.
func (s *ExportService) fetchOriginal(ctx context.Context, src string) ([]byte, string, error) {
	var data []byte
	switch {
	case strings.HasPrefix(src, "memory://"):
		blob, ok := s.images.ResolveHandle(strings.TrimPrefix(src, "memory://"))
		if !ok {
			return nil, "", fmt.Errorf("image handle no longer exists")
		}
		data = blob
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		resp, err := s.client.R().SetContext(ctx).Get(src)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch image: %w", err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, "", fmt.Errorf("image fetch returned HTTP %d", resp.StatusCode())
		}
		data = resp.Body()
	default:
		return nil, "", fmt.Errorf("unsupported image source scheme")
	}
	return data, sniffExt(data), nil
}

func sniffExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// assemble writes the archive in batch order: captions.txt first, then the
// rendered cards, then the originals.
func (s *ExportService) assemble(batch []domain.GenerationResult, items []exportItem, opts ExportOptions) ([]byte, ExportReport, error) {
	report := ExportReport{Total: len(batch)}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	captions := make([]string, 0, len(batch))
	for _, res := range batch {
		captions = append(captions, res.Content)
	}
	w, err := zw.Create("captions.txt")
	if err != nil {
		return nil, report, fmt.Errorf("failed to create captions entry: %w", err)
	}
	if _, err := w.Write([]byte(strings.Join(captions, "\n\n---\n\n") + "\n")); err != nil {
		return nil, report, fmt.Errorf("failed to write captions: %w", err)
	}

	for _, item := range items {
		id := item.result.ID
		if item.renderErr != nil {
			report.Failures = append(report.Failures, ExportFailure{
				ID: id, Stage: "render", Error: item.renderErr.Error(),
			})
		} else {
			w, err := zw.Create(fmt.Sprintf("cards/rednote-card-%s.%s", id, item.cardExt))
			if err != nil {
				return nil, report, fmt.Errorf("failed to create card entry: %w", err)
			}
			if _, err := w.Write(item.cardData); err != nil {
				return nil, report, fmt.Errorf("failed to write card: %w", err)
			}
			report.Exported++
		}

		if item.imageErr != nil {
			report.Failures = append(report.Failures, ExportFailure{
				ID: id, Stage: "image", Error: item.imageErr.Error(),
			})
		} else if len(item.imgData) > 0 {
			w, err := zw.Create(fmt.Sprintf("images/rednote-%s.%s", id, item.imgExt))
			if err != nil {
				return nil, report, fmt.Errorf("failed to create image entry: %w", err)
			}
			if _, err := w.Write(item.imgData); err != nil {
				return nil, report, fmt.Errorf("failed to write image: %w", err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, report, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if report.Exported == 0 {
		return nil, report, fmt.Errorf("every card failed to render")
	}
	return buf.Bytes(), report, nil
}
