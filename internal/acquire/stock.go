package acquire

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
)

const defaultStockBase = "https://picsum.photos"

// Stock builds URLs for the seeded stock photo service. Both the random and
// the search flavor resolve immediately; only AI generation goes async.
type Stock struct {
	baseURL string
}

// NewStock creates a stock source. baseURL falls back to the public service
// when empty.
func NewStock(baseURL string) *Stock {
	if baseURL == "" {
		baseURL = defaultStockBase
	}
	return &Stock{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// RandomURL returns a fresh random stock photo URL. The seed changes on
// every call so repeated swaps produce different pictures.
func (s *Stock) RandomURL() string {
	return fmt.Sprintf("%s/seed/%d/800/600", s.baseURL, rand.IntN(1_000_000_000))
}

// SearchURL returns a stock photo URL seeded from the query text, with a
// random suffix so re-searching the same caption still rotates the image.
func (s *Stock) SearchURL(query string) string {
	seed := searchSeed(query)
	if seed == "" {
		return s.RandomURL()
	}
	return fmt.Sprintf("%s/seed/%s-%d/800/600", s.baseURL, seed, rand.IntN(10_000))
}

// searchSeed reduces arbitrary caption text to a short URL-safe token.
func searchSeed(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			// Keep CJK distinguishable without URL-escaping issues.
			b.WriteString(fmt.Sprintf("%x", r))
		case unicode.IsSpace(r):
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
		if b.Len() >= 24 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
