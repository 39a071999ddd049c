package format_test

import (
	"errors"
	"testing"

	"github.com/okian/adcraft/internal/domain/format"
	"github.com/okian/adcraft/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func inRange(v float64) bool { return v >= 0 && v <= 100 }

func TestGeometry(t *testing.T) {
	Convey("Given every concrete format", t, func() {
		for _, f := range model.AllFormats {
			zones, typo, err := format.Geometry(f, nil)
			So(err, ShouldBeNil)

			Convey("Then "+string(f)+" zones stay within 0..100", func() {
				for _, z := range []format.Zone{zones.Eyebrow, zones.Headline, zones.CTA} {
					So(inRange(z.X), ShouldBeTrue)
					So(inRange(z.Y), ShouldBeTrue)
					So(z.MaxWidth, ShouldBeGreaterThan, 0)
					So(z.MaxWidth, ShouldBeLessThanOrEqualTo, 100)
				}
				for _, r := range zones.AvoidAreas {
					So(inRange(r.X) && inRange(r.Y) && inRange(r.X+r.W) && inRange(r.Y+r.H), ShouldBeTrue)
				}
				So(zones.Eyebrow.Y, ShouldBeLessThan, zones.Headline.Y)
				So(zones.Headline.Y, ShouldBeLessThan, zones.CTA.Y)
			})

			Convey("Then "+string(f)+" text stays clear of platform chrome", func() {
				for _, ui := range zones.UIBands {
					So(zones.TextBand.Top >= ui.Bottom || zones.TextBand.Bottom <= ui.Top, ShouldBeTrue)
				}
			})

			Convey("Then "+string(f)+" headline is white and scales with width", func() {
				So(typo.Headline.Color, ShouldEqual, "#FFFFFF")
				So(typo.HeadlineShadow.Opacity, ShouldBeGreaterThan, 0)
				So(typo.Headline.FontSize, ShouldBeGreaterThan, typo.CTA.FontSize)
				So(typo.LineHeight, ShouldEqual, 1.15)
			})
		}
	})

	Convey("Given feed and vertical formats", t, func() {
		feed, _, _ := format.Geometry(model.FormatFeed, nil)
		story, _, _ := format.Geometry(model.FormatStory, nil)
		reel, _, _ := format.Geometry(model.FormatReel, nil)

		Convey("Then feed centers on one focal band near 40%", func() {
			So(feed.Headline.Y, ShouldAlmostEqual, 40, 2)
			So(feed.TextBand.Center(), ShouldEqual, feed.Headline.Y)
			So(feed.Width, ShouldEqual, 1080)
			So(feed.Height, ShouldEqual, 1080)
		})

		Convey("Then vertical formats place the headline lower", func() {
			So(story.Headline.Y, ShouldBeGreaterThan, feed.Headline.Y)
			So(reel.Headline.Y, ShouldBeGreaterThan, feed.Headline.Y)
			So(story.Height, ShouldEqual, 1920)
			So(reel.Height, ShouldEqual, 1920)
		})

		Convey("Then reel keeps text off the right icon column", func() {
			right := reel.Headline.X + reel.Headline.MaxWidth/2
			So(right, ShouldBeLessThanOrEqualTo, 88)
		})
	})

	Convey("Given an unknown format", t, func() {
		_, _, err := format.Geometry("banner", nil)
		So(errors.Is(err, model.ErrUnknownFormat), ShouldBeTrue)
	})
}

func TestAccentColor(t *testing.T) {
	Convey("Given brand palettes", t, func() {
		Convey("An empty palette falls back to neon green", func() {
			So(format.AccentColor(nil), ShouldEqual, format.NeonGreen)
		})

		Convey("Invalid, black and white entries are skipped", func() {
			So(format.AccentColor([]string{"teal", "#000000", "#fff", "ff6600"}), ShouldEqual, "#FF6600")
		})

		Convey("Nothing usable falls back", func() {
			So(format.AccentColor([]string{"#111", "#FFFFFF"}), ShouldEqual, format.NeonGreen)
		})

		Convey("The accent flows into eyebrow and CTA", func() {
			_, typo, _ := format.Geometry(model.FormatStory, []string{"#1e90ff"})
			So(typo.Eyebrow.Color, ShouldEqual, "#1E90FF")
			So(typo.CTABackground, ShouldEqual, "#1E90FF")
			So(typo.CTA.Color, ShouldEqual, "#0A0A0A")
		})
	})

	Convey("Given hex parsing", t, func() {
		r, g, b, ok := format.ParseHex("#39FF14")
		So(ok, ShouldBeTrue)
		So([]uint8{r, g, b}, ShouldResemble, []uint8{0x39, 0xFF, 0x14})

		_, _, _, ok = format.ParseHex("#12345")
		So(ok, ShouldBeFalse)
	})
}
