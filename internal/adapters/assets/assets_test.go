package assets_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/adcraft/internal/adapters/assets"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, b)
	return &s3.PutObjectOutput{}, nil
}

func TestCreativeKey(t *testing.T) {
	Convey("Keys group creatives by job", t, func() {
		So(assets.CreativeKey("job-1", 2, "story", "png"), ShouldEqual, "job-1/2-story.png")
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store", t, func() {
		m := assets.NewMemoryStore("http://localhost:9080/assets/")

		url, err := m.Put(ctx, "/job-1/0-feed.png", []byte("png-bytes"), "image/png")

		Convey("Then Put returns a public URL", func() {
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://localhost:9080/assets/job-1/0-feed.png")
			So(m.Len(), ShouldEqual, 1)
		})

		Convey("Then the handler serves the bytes", func() {
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job-1/0-feed.png", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldEqual, "image/png")
			So(rec.Body.String(), ShouldEqual, "png-bytes")
		})

		Convey("Then unknown keys are 404 and writes are refused", func() {
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job-1/9-reel.png", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)

			rec = httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/job-1/0-feed.png", nil))
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then path traversal stays inside the store", func() {
			data, _, err := m.Get("../../job-1/0-feed.png")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "png-bytes")
		})

		Convey("Then empty input is rejected", func() {
			_, err := m.Put(ctx, " ", []byte("x"), "image/png")
			So(errors.Is(err, assets.ErrEmptyKey), ShouldBeTrue)
			_, err = m.Put(ctx, "k", nil, "image/png")
			So(errors.Is(err, assets.ErrEmptyData), ShouldBeTrue)
		})
	})
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()

	Convey("Given an S3 store with a CDN domain", t, func() {
		api := &fakeS3{}
		s := assets.NewS3StoreWithClient(api, assets.S3Config{Region: "eu-central-1", Bucket: "ads", Prefix: "/creatives/", CDNDomain: "https://cdn.example.com/"})

		url, err := s.Put(ctx, "job-1/0-feed.png", []byte("img"), "image/png")

		Convey("Then the object is uploaded under the prefix with long caching", func() {
			So(err, ShouldBeNil)
			So(api.inputs, ShouldHaveLength, 1)
			in := api.inputs[0]
			So(aws.ToString(in.Bucket), ShouldEqual, "ads")
			So(aws.ToString(in.Key), ShouldEqual, "creatives/job-1/0-feed.png")
			So(aws.ToString(in.ContentType), ShouldEqual, "image/png")
			So(aws.ToString(in.CacheControl), ShouldEqual, "public, max-age=31536000")
			So(string(api.bodies[0]), ShouldEqual, "img")
		})

		Convey("Then the CDN URL is returned", func() {
			So(url, ShouldEqual, "https://cdn.example.com/creatives/job-1/0-feed.png")
		})
	})

	Convey("Given no CDN domain", t, func() {
		s := assets.NewS3StoreWithClient(&fakeS3{}, assets.S3Config{Region: "eu-central-1", Bucket: "ads"})
		url, err := s.Put(ctx, "k.png", []byte("img"), "image/png")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, "https://ads.s3.eu-central-1.amazonaws.com/k.png")
	})

	Convey("Given an upload failure", t, func() {
		boom := errors.New("AccessDenied")
		s := assets.NewS3StoreWithClient(&fakeS3{err: boom}, assets.S3Config{Bucket: "ads"})
		_, err := s.Put(ctx, "k.png", []byte("img"), "image/png")
		So(errors.Is(err, boom), ShouldBeTrue)
	})
}
