package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"github.com/hualin/rednote-studio/internal/layout"
	"github.com/hualin/rednote-studio/internal/logger"
)

// HandleResolver looks up ephemeral in-memory image handles (memory://<id>)
// by id. Decoded AI-generation payloads live behind such handles and must be
// inlined before capture because the handle does not survive outside the
// session.
type HandleResolver interface {
	ResolveHandle(id string) ([]byte, bool)
}

// Sanitizer resolves every image source of a visual tree into decoded pixels
// before any raster pass touches it. All cross-origin and asset failures are
// absorbed here: a source that cannot be fetched or decoded maps to a
// placeholder graphic, never to an error.
type Sanitizer struct {
	client  *resty.Client
	handles HandleResolver
}

// NewSanitizer creates a sanitizer. handles may be nil when memory-backed
// sources cannot occur (the export CLI path).
func NewSanitizer(handles HandleResolver) *Sanitizer {
	client := resty.New()
	client.SetTimeout(20 * time.Second)
	return &Sanitizer{client: client, handles: handles}
}

// Resolve maps every image source in the tree to a decoded image. The result
// always covers every source; failed entries carry the placeholder.
func (s *Sanitizer) Resolve(ctx context.Context, tree *layout.Tree) map[string]image.Image {
	resolved := make(map[string]image.Image)
	for _, src := range tree.ImageSources() {
		if _, ok := resolved[src]; ok {
			continue
		}
		img, err := s.resolveOne(ctx, src)
		if err != nil {
			logger.CtxWarn(ctx, "Image source unusable, substituting placeholder: source=%s, err=%v",
				truncateSource(src), err)
			img = placeholderImage(800, 600)
		}
		resolved[src] = img
	}
	return resolved
}

func (s *Sanitizer) resolveOne(ctx context.Context, src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, "memory://"):
		if s.handles == nil {
			return nil, fmt.Errorf("no handle resolver configured")
		}
		id := strings.TrimPrefix(src, "memory://")
		data, ok := s.handles.ResolveHandle(id)
		if !ok {
			return nil, fmt.Errorf("unknown image handle %s", id)
		}
		return decodeImage(data)

	case strings.HasPrefix(src, "data:"):
		idx := strings.Index(src, "base64,")
		if idx == -1 {
			return nil, fmt.Errorf("unsupported data URI encoding")
		}
		data, err := base64.StdEncoding.DecodeString(src[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URI: %w", err)
		}
		return decodeImage(data)

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		resp, err := s.client.R().SetContext(ctx).Get(src)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image: %w", err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, fmt.Errorf("image fetch returned HTTP %d", resp.StatusCode())
		}
		return decodeImage(resp.Body())

	default:
		return nil, fmt.Errorf("unrecognized image source scheme")
	}
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func truncateSource(src string) string {
	const max = 120
	if len(src) <= max {
		return src
	}
	return src[:max] + "..."
}
