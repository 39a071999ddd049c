package codec_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/okian/adcraft/internal/render/codec"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCodec(t *testing.T) {
	Convey("Given a small image", t, func() {
		src := image.NewRGBA(image.Rect(0, 0, 8, 4))
		src.Set(1, 1, color.RGBA{R: 255, A: 255})

		Convey("PNG bytes decode back to the same size", func() {
			data, err := codec.EncodePNG(src)
			So(err, ShouldBeNil)
			img, kind, err := codec.Decode(data)
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, "png")
			So(img.Bounds().Dx(), ShouldEqual, 8)
			So(img.Bounds().Dy(), ShouldEqual, 4)
		})

		Convey("JPEG bytes decode too and map to their MIME type", func() {
			var buf bytes.Buffer
			So(jpeg.Encode(&buf, src, &jpeg.Options{Quality: 80}), ShouldBeNil)
			_, kind, err := codec.Decode(buf.Bytes())
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, "jpeg")
			So(codec.ContentType(kind), ShouldEqual, "image/jpeg")
		})
	})

	Convey("Given garbage bytes", t, func() {
		_, _, err := codec.Decode([]byte("not an image"))
		So(errors.Is(err, codec.ErrInvalidImage), ShouldBeTrue)

		_, _, err = codec.Decode(nil)
		So(errors.Is(err, codec.ErrInvalidImage), ShouldBeTrue)
	})

	Convey("Content types", t, func() {
		So(codec.ContentType("jpeg"), ShouldEqual, "image/jpeg")
		So(codec.ContentType("png"), ShouldEqual, "image/png")
		So(codec.ContentType(""), ShouldEqual, "image/png")
	})
}
