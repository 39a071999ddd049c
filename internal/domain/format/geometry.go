// Package format maps each creative format to its safe zones and typography.
//
// All zone coordinates are percentages of the canvas (0..100). X and Y name the
// anchor point of a centered text block; MaxWidth bounds the block width.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/adcraft/internal/domain/model"
)

// NeonGreen is the accent used when the brand palette has nothing usable.
const NeonGreen = "#39FF14"

// Zone anchors one text element.
type Zone struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	MaxWidth float64 `json:"maxWidth"`
}

// Rect is an axis aligned region in percent.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Band is a horizontal strip in percent of height.
type Band struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Center returns the vertical midpoint of the band.
func (b Band) Center() float64 { return (b.Top + b.Bottom) / 2 }

// SafeZoneSpec is where text may go on a format.
type SafeZoneSpec struct {
	Format          model.CreativeFormat `json:"format"`
	Width           int                  `json:"width"`
	Height          int                  `json:"height"`
	Eyebrow         Zone                 `json:"eyebrow"`
	Headline        Zone                 `json:"headline"`
	CTA             Zone                 `json:"cta"`
	TextBand        Band                 `json:"textBand"`
	AvoidAreas      []Rect               `json:"avoidAreas"`
	UIBands         []Band               `json:"uiBands,omitempty"`
	MaxCharsPerLine int                  `json:"maxCharsPerLine"`
}

// SubjectArea is the region reserved for the visual subject (the first avoid area).
func (s SafeZoneSpec) SubjectArea() Rect {
	if len(s.AvoidAreas) == 0 {
		return Rect{X: 0, Y: 0, W: 100, H: 100}
	}
	return s.AvoidAreas[0]
}

// TextStyle describes one text element.
type TextStyle struct {
	FontSize  float64 `json:"fontSize"`
	Color     string  `json:"color"`
	Bold      bool    `json:"bold"`
	Uppercase bool    `json:"uppercase"`
	Tracking  float64 `json:"tracking"`
}

// Shadow is a drop shadow in pixels.
type Shadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Opacity float64 `json:"opacity"`
}

// TypographySpec is the text styling for a format.
type TypographySpec struct {
	Headline       TextStyle `json:"headline"`
	HeadlineShadow Shadow    `json:"headlineShadow"`
	Eyebrow        TextStyle `json:"eyebrow"`
	CTA            TextStyle `json:"cta"`
	CTABackground  string    `json:"ctaBackground"`
	CTAPaddingX    float64   `json:"ctaPaddingX"`
	CTAPaddingY    float64   `json:"ctaPaddingY"`
	CTARadius      float64   `json:"ctaRadius"`
	LineHeight     float64   `json:"lineHeight"`
	ElementGap     float64   `json:"elementGap"`
	AccentColor    string    `json:"accentColor"`
}

const (
	lineHeight   = 1.15
	ctaTextColor = "#0A0A0A"
)

// Geometry returns the safe zones and typography for f. palette may be empty.
func Geometry(f model.CreativeFormat, palette []string) (SafeZoneSpec, TypographySpec, error) {
	w, h, ok := f.Dimensions()
	if !ok {
		return SafeZoneSpec{}, TypographySpec{}, fmt.Errorf("%w: %q", model.ErrUnknownFormat, f)
	}

	var zones SafeZoneSpec
	headlineScale := 0.08
	switch f {
	case model.FormatFeed:
		// Single focal band centered around 40%; the lower third stays with the subject.
		headlineScale = 0.075
		zones = SafeZoneSpec{
			Eyebrow:         Zone{X: 50, Y: 28, MaxWidth: 84},
			Headline:        Zone{X: 50, Y: 40, MaxWidth: 84},
			CTA:             Zone{X: 50, Y: 53, MaxWidth: 60},
			TextBand:        Band{Top: 18, Bottom: 62},
			AvoidAreas:      []Rect{{X: 0, Y: 64, W: 100, H: 36}},
			MaxCharsPerLine: 22,
		}
	case model.FormatStory:
		// Profile header on top, reply bar at the bottom. Text sits in the lower third.
		zones = SafeZoneSpec{
			Eyebrow:         Zone{X: 50, Y: 56, MaxWidth: 80},
			Headline:        Zone{X: 50, Y: 65, MaxWidth: 80},
			CTA:             Zone{X: 50, Y: 75, MaxWidth: 60},
			TextBand:        Band{Top: 52, Bottom: 78},
			AvoidAreas:      []Rect{{X: 0, Y: 14, W: 100, H: 36}},
			UIBands:         []Band{{Top: 0, Bottom: 14}, {Top: 80, Bottom: 100}},
			MaxCharsPerLine: 18,
		}
	case model.FormatReel:
		// Caption and comments own the bottom 28%, action icons the right edge,
		// so the text block is narrower than on story.
		zones = SafeZoneSpec{
			Eyebrow:         Zone{X: 50, Y: 51, MaxWidth: 76},
			Headline:        Zone{X: 50, Y: 59, MaxWidth: 76},
			CTA:             Zone{X: 50, Y: 67, MaxWidth: 56},
			TextBand:        Band{Top: 48, Bottom: 70},
			AvoidAreas:      []Rect{{X: 0, Y: 10, W: 100, H: 36}, {X: 88, Y: 40, W: 12, H: 48}},
			UIBands:         []Band{{Top: 0, Bottom: 10}, {Top: 72, Bottom: 100}},
			MaxCharsPerLine: 17,
		}
	}
	zones.Format = f
	zones.Width, zones.Height = w, h

	accent := AccentColor(palette)
	fw := float64(w)
	typo := TypographySpec{
		Headline:       TextStyle{FontSize: fw * headlineScale, Color: "#FFFFFF", Bold: true},
		HeadlineShadow: Shadow{OffsetX: 0, OffsetY: fw * 0.004, Blur: fw * 0.012, Opacity: 0.6},
		Eyebrow:        TextStyle{FontSize: fw * 0.032, Color: accent, Bold: true, Uppercase: true, Tracking: 0.08},
		CTA:            TextStyle{FontSize: fw * 0.036, Color: ctaTextColor, Bold: true},
		CTABackground:  accent,
		CTAPaddingX:    fw * 0.04,
		CTAPaddingY:    fw * 0.018,
		CTARadius:      fw * 0.03,
		LineHeight:     lineHeight,
		ElementGap:     fw * 0.022,
		AccentColor:    accent,
	}
	return zones, typo, nil
}

// AccentColor picks the first palette entry that is a valid hex color and
// neither near black nor near white. Otherwise it returns NeonGreen.
func AccentColor(palette []string) string {
	for _, c := range palette {
		hex, ok := NormalizeHex(c)
		if !ok {
			continue
		}
		r, g, b, _ := ParseHex(hex)
		lum := (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
		if lum >= 0.15 && lum <= 0.92 {
			return hex
		}
	}
	return NeonGreen
}

// NormalizeHex accepts #RGB, #RRGGBB (with or without '#') and returns #RRGGBB upper case.
func NormalizeHex(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return "", false
	}
	if _, err := strconv.ParseUint(s, 16, 32); err != nil {
		return "", false
	}
	return "#" + strings.ToUpper(s), true
}

// ParseHex decodes a color accepted by NormalizeHex.
func ParseHex(s string) (r, g, b uint8, ok bool) {
	hex, ok := NormalizeHex(s)
	if !ok {
		return 0, 0, 0, false
	}
	v, _ := strconv.ParseUint(hex[1:], 16, 32)
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
