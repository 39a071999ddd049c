package compositor

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/okian/adcraft/internal/domain/format"
)

// ElementKind names a stacked text element.
type ElementKind string

// Element kinds, in stacking order.
const (
	KindEyebrow  ElementKind = "eyebrow"
	KindHeadline ElementKind = "headline"
	KindCTA      ElementKind = "cta"
)

// minHeadlineScale bounds how far the headline may shrink to fit its zone width.
const minHeadlineScale = 0.6

// Measurer returns the rendered width in pixels of text set in style.
type Measurer interface {
	Measure(text string, style format.TextStyle) float64
}

// Box is a pixel rectangle with rounded corners.
type Box struct {
	X, Y, W, H float64
	Radius     float64
}

// Element is one positioned block of the overlay.
type Element struct {
	Kind       ElementKind
	Lines      []string
	Style      format.TextStyle
	Top        float64 // px, top of the block
	Height     float64 // px
	CenterX    float64 // px
	LineHeight float64 // px per line
	Box        *Box    // CTA pill, nil for plain text
}

// Layout is a fully positioned overlay for one canvas.
type Layout struct {
	Width, Height int
	Top, Total    float64
	Elements      []Element
	Typography    format.TypographySpec
}

// WrapWords breaks text greedily into lines of at most maxChars runes.
// A word longer than maxChars gets a line of its own and is never cut.
func WrapWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		switch {
		case curLen == 0:
			cur.WriteString(w)
			curLen = wl
		case curLen+1+wl <= maxChars:
			cur.WriteByte(' ')
			cur.WriteString(w)
			curLen += 1 + wl
		default:
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(w)
			curLen = wl
		}
	}
	return append(lines, cur.String())
}

// approxMeasurer is used when the renderer cannot measure glyphs.
type approxMeasurer struct{}

func (approxMeasurer) Measure(text string, style format.TextStyle) float64 {
	n := float64(utf8.RuneCountInString(text))
	return n*style.FontSize*0.56 + math.Max(0, n-1)*style.Tracking*style.FontSize
}

// BuildLayout stacks eyebrow, headline lines and CTA, centered on the text band.
// The block starts at bandCenter - total/2 and only moves to stay on canvas.
func BuildLayout(ov Overlay, zones format.SafeZoneSpec, typo format.TypographySpec, m Measurer) Layout {
	if m == nil {
		m = approxMeasurer{}
	}
	w, h := float64(zones.Width), float64(zones.Height)
	centerX := zones.Headline.X / 100 * w

	var elems []Element

	if eb := strings.TrimSpace(ov.Eyebrow); eb != "" {
		style := typo.Eyebrow
		if style.Uppercase {
			eb = strings.ToUpper(eb)
		}
		lh := style.FontSize * typo.LineHeight
		elems = append(elems, Element{Kind: KindEyebrow, Lines: []string{eb}, Style: style, Height: lh, LineHeight: lh, CenterX: centerX})
	}

	if lines := WrapWords(ov.Headline, zones.MaxCharsPerLine); len(lines) > 0 {
		style := typo.Headline
		maxW := zones.Headline.MaxWidth / 100 * w
		widest := 0.0
		for _, l := range lines {
			widest = math.Max(widest, m.Measure(l, style))
		}
		if widest > maxW && widest > 0 {
			style.FontSize *= math.Max(minHeadlineScale, maxW/widest)
		}
		lh := style.FontSize * typo.LineHeight
		elems = append(elems, Element{
			Kind: KindHeadline, Lines: lines, Style: style,
			Height: lh * float64(len(lines)), LineHeight: lh, CenterX: centerX,
		})
	}

	if cta := strings.TrimSpace(ov.CTA); cta != "" {
		style := typo.CTA
		textW := m.Measure(cta, style)
		boxW := textW + 2*typo.CTAPaddingX
		boxH := style.FontSize + 2*typo.CTAPaddingY
		elems = append(elems, Element{
			Kind: KindCTA, Lines: []string{cta}, Style: style,
			Height: boxH, LineHeight: boxH, CenterX: centerX,
			Box: &Box{W: boxW, H: boxH, Radius: math.Min(typo.CTARadius, boxH/2)},
		})
	}

	total := 0.0
	for i, e := range elems {
		if i > 0 {
			total += typo.ElementGap
		}
		total += e.Height
	}

	top := zones.TextBand.Center()/100*h - total/2
	if top+total > h {
		top = h - total
	}
	if top < 0 {
		top = 0
	}

	y := top
	for i := range elems {
		if i > 0 {
			y += typo.ElementGap
		}
		elems[i].Top = y
		if b := elems[i].Box; b != nil {
			b.X = elems[i].CenterX - b.W/2
			b.Y = y
		}
		y += elems[i].Height
	}

	return Layout{
		Width:      zones.Width,
		Height:     zones.Height,
		Top:        top,
		Total:      total,
		Elements:   elems,
		Typography: typo,
	}
}
