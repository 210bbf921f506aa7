package source

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"

	"github.com/abelbrown/swipedeck/internal/card"
)

// Theme is one entry of the synthetic palette.
type Theme struct {
	Title string
	From  string // gradient start, #rrggbb
	To    string // gradient end, #rrggbb
}

// Palette cycles by (id-1) mod len(Palette).
var Palette = [...]Theme{
	{"Beautiful Sunset", "#667eea", "#764ba2"},
	{"Mountain Peak", "#f093fb", "#f5576c"},
	{"Ocean Waves", "#4facfe", "#00f2fe"},
	{"City Lights", "#43e97b", "#38f9d7"},
	{"Forest Path", "#fa709a", "#fee140"},
	{"Desert Dunes", "#30cfd0", "#330867"},
	{"Northern Lights", "#a8edea", "#fed6e3"},
	{"Tropical Paradise", "#ff9a9e", "#fecfef"},
	{"Snowy Mountains", "#ffecd2", "#fcb69f"},
	{"Autumn Leaves", "#ff6e7f", "#bfe9ff"},
}

const syntheticBody = "Beautiful API-generated image from placeholder"

// Synthetic image size. Small: the data URI travels with every item.
const (
	imageWidth  = 30
	imageHeight = 40
)

var (
	imageOnce [len(Palette)]sync.Once
	imageURIs [len(Palette)]string
)

// themeFor returns the palette entry for an item id.
func themeFor(id int) Theme {
	return Palette[themeIndex(id)]
}

func themeIndex(id int) int {
	n := len(Palette)
	return ((id-1)%n + n) % n
}

// synthesize builds pageSize items continuing the session's synthetic id
// sequence. Caller holds s.mu.
func (s *Source) synthesize(pageSize int) card.Page {
	page := make(card.Page, pageSize)
	for i := range page {
		id := s.synthetic + i + 1
		idx := themeIndex(id)
		theme := themeFor(id)
		page[i] = card.Item{
			ID:       id,
			Title:    fmt.Sprintf("%s #%d", theme.Title, id),
			Body:     syntheticBody,
			MediaRef: gradientURI(idx),
			Accent:   theme.From,
		}
	}
	s.synthetic += pageSize
	return page
}

// gradientURI returns the memoized PNG data URI for palette entry idx.
func gradientURI(idx int) string {
	imageOnce[idx].Do(func() {
		t := Palette[idx]
		imageURIs[idx] = encodeGradient(parseHex(t.From), parseHex(t.To))
	})
	return imageURIs[idx]
}

// encodeGradient renders a diagonal two-stop gradient as a PNG data URI.
func encodeGradient(from, to color.RGBA) string {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	span := float64(imageWidth + imageHeight - 2)
	for y := 0; y < imageHeight; y++ {
		for x := 0; x < imageWidth; x++ {
			t := float64(x+y) / span
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// parseHex parses #rrggbb. Malformed input yields black.
func parseHex(s string) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{A: 0xff}
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
