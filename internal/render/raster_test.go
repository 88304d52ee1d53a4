package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/hualin/rednote-studio/internal/content"
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/layout"
	"github.com/hualin/rednote-studio/internal/theme"
)

type stubHandles map[string][]byte

func (s stubHandles) ResolveHandle(id string) ([]byte, bool) {
	data, ok := s[id]
	return data, ok
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, c)); err != nil {
		t.Fatalf("encode stub image: %v", err)
	}
	return buf.Bytes()
}

func testTree(t *testing.T, style domain.StyleConfiguration, imageURL string) *layout.Tree {
	t.Helper()
	return layout.Render(style, layout.Input{
		Content:  content.Parse("My Trip\nGreat day out\n#travel #fun"),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: imageURL,
	})
}

func TestRasterizeRoundTripDimensions(t *testing.T) {
	handles := stubHandles{"stub": pngBytes(t, 40, 30, color.NRGBA{0x20, 0x40, 0x80, 0xff})}
	ras, err := New(Options{}, handles)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	testCases := []struct {
		ratio string
		wantW int
		wantH int
	}{
		{"4:5", 1600, 2000},
		{"1:1", 1600, 1600},
		{"16:9", 1600, 900},
		{"custom:7:3", 1600, 685},
	}

	for _, tc := range testCases {
		t.Run(tc.ratio, func(t *testing.T) {
			style := domain.DefaultStyle()
			style.Ratio = domain.ParseAspectRatio(tc.ratio)
			tree := testTree(t, style, "memory://stub")

			data, err := ras.Rasterize(context.Background(), tree)
			if err != nil {
				t.Fatalf("Rasterize: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("empty raster output")
			}

			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode raster: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tc.wantW {
				t.Errorf("width = %d, want %d", b.Dx(), tc.wantW)
			}
			// Height derives from integer ratio math; allow one px rounding.
			if diff := b.Dy() - tc.wantH; diff < -1 || diff > 1 {
				t.Errorf("height = %d, want %d±1", b.Dy(), tc.wantH)
			}
		})
	}
}

func TestRasterizeEveryLayoutWithoutNetwork(t *testing.T) {
	ras, err := New(Options{BaseWidth: 400, Scale: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, variant := range domain.LayoutVariants {
		t.Run(string(variant), func(t *testing.T) {
			style := domain.DefaultStyle()
			style.Layout = variant
			tree := testTree(t, style, "")

			data, err := ras.Rasterize(context.Background(), tree)
			if err != nil {
				t.Fatalf("Rasterize(%s): %v", variant, err)
			}
			if len(data) == 0 {
				t.Fatalf("Rasterize(%s): empty output", variant)
			}
		})
	}
}

func TestRasterizeConcurrently(t *testing.T) {
	ras, err := New(Options{BaseWidth: 300, Scale: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Batch export drives one shared rasterizer from several workers; the
	// cached faces must survive concurrent passes (run with -race).
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		variant := domain.LayoutVariants[i%len(domain.LayoutVariants)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			style := domain.DefaultStyle()
			style.Layout = variant
			tree := testTree(t, style, "")
			for j := 0; j < 3; j++ {
				if _, err := ras.Rasterize(context.Background(), tree); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Rasterize: %v", err)
	}
}

func TestSanitizerFetchesRemoteImages(t *testing.T) {
	stub := pngBytes(t, 16, 16, color.NRGBA{0xff, 0x00, 0x00, 0xff})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(stub)
	}))
	defer srv.Close()

	s := NewSanitizer(nil)
	style := domain.DefaultStyle()
	tree := layout.Render(style, layout.Input{
		Content:  content.Parse("t\nb"),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: srv.URL + "/img.png",
	})

	resolved := s.Resolve(context.Background(), tree)
	img, ok := resolved[srv.URL+"/img.png"]
	if !ok || img == nil {
		t.Fatal("remote image not resolved")
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("resolved width = %d, want 16", img.Bounds().Dx())
	}
}

func TestSanitizerSubstitutesPlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSanitizer(nil)
	style := domain.DefaultStyle()
	tree := layout.Render(style, layout.Input{
		Content:  content.Parse("t\nb"),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: srv.URL + "/blocked.png",
	})

	resolved := s.Resolve(context.Background(), tree)
	img, ok := resolved[srv.URL+"/blocked.png"]
	if !ok || img == nil {
		t.Fatal("failed source must resolve to a placeholder, not be dropped")
	}
	if img.Bounds().Empty() {
		t.Error("placeholder has empty bounds")
	}
}

func TestSanitizerResolvesMemoryHandles(t *testing.T) {
	handles := stubHandles{"abc": pngBytes(t, 8, 8, color.NRGBA{0, 0xff, 0, 0xff})}
	s := NewSanitizer(handles)

	style := domain.DefaultStyle()
	tree := layout.Render(style, layout.Input{
		Content:  content.Parse("t\nb"),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: "memory://abc",
	})

	resolved := s.Resolve(context.Background(), tree)
	img := resolved["memory://abc"]
	if img == nil {
		t.Fatal("memory handle not inlined")
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("inlined width = %d, want 8", img.Bounds().Dx())
	}
}

func TestTokenizeWrapsCJKPerRune(t *testing.T) {
	toks := tokenize("秋日 coffee\n穿搭")
	want := []string{"秋", "日", " ", "coffee", "\n", "穿", "搭"}
	if len(toks) != len(want) {
		t.Fatalf("tokens = %v, want %v", toks, want)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, toks[i], want[i])
		}
	}
}
