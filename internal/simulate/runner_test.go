package simulate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/adcraft/internal/adapters/adsplatform"
	"github.com/okian/adcraft/internal/adapters/http/api"
	service "github.com/okian/adcraft/internal/app"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
)

type countingDispatcher struct{ n atomic.Int32 }

func (d *countingDispatcher) Dispatch(context.Context, model.DispatchPayload) error {
	d.n.Add(1)
	return nil
}

func newService(t *testing.T, opts ...api.Option) (*httptest.Server, *countingDispatcher) {
	t.Helper()
	_ = logger.Init()
	d := &countingDispatcher{}
	ads := adsplatform.NewStaticSource(model.CampaignAds{
		CampaignID: "c-1",
		Ads: []model.AdPerformanceSample{
			{ID: "a-1", Name: "only", CostPerLead: 12, CPM: 9, OutboundCTR: 1.5, Spend: 100, Leads: 8, Impressions: 9000,
				LinkURL: "https://example.com/lp"},
		},
	})
	svc := service.New(
		service.WithAdsSource(ads),
		service.WithDispatcher(d),
		service.WithWorkerCount(1),
		service.WithLogger(logger.Nop()),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewServer(svc, svc, opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv, d
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running service and the simulator playing automation", t, func() {
		srv, d := newService(t, api.WithCallbackToken("tok"))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stats, err := Run(ctx, &Config{
			BaseURL:        srv.URL,
			CampaignID:     "c-1",
			Format:         "all",
			Count:          2,
			Jobs:           3,
			Workers:        2,
			PlayAutomation: true,
			CallbackToken:  "tok",
			PollInterval:   10 * time.Millisecond,
		})

		convey.Convey("Then every job completes", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.JobsCreated, convey.ShouldEqual, 3)
			convey.So(stats.CallbacksSent, convey.ShouldEqual, 3)
			convey.So(stats.JobsCompleted, convey.ShouldEqual, 3)
			convey.So(stats.JobsFailed, convey.ShouldEqual, 0)
			convey.So(stats.JobsPending, convey.ShouldEqual, 0)
			convey.So(d.n.Load(), convey.ShouldBeLessThanOrEqualTo, 3)
		})
	})

	convey.Convey("Given an unknown format", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", CampaignID: "c-1", Format: "banner"})
		convey.So(errors.Is(err, model.ErrUnknownFormat), convey.ShouldBeTrue)
	})

	convey.Convey("Given a service that rejects every job", t, func() {
		srv, _ := newService(t)
		stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, CampaignID: "c-1", Format: "feed", Count: 99, Jobs: 2})

		convey.Convey("Then the run reports that nothing was accepted", func() {
			convey.So(errors.Is(err, ErrNoJobs), convey.ShouldBeTrue)
			convey.So(stats.JobsRejected, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given jobs nobody completes", t, func() {
		srv, _ := newService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		stats, err := Run(ctx, &Config{BaseURL: srv.URL, CampaignID: "c-1", Format: "feed", Count: 1, PollInterval: 10 * time.Millisecond})

		convey.Convey("Then they are counted as pending when the wait ends", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.JobsCreated, convey.ShouldEqual, 1)
			convey.So(stats.JobsPending, convey.ShouldEqual, 1)
		})
	})
}

func TestClient(t *testing.T) {
	convey.Convey("Given a server answering 500", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("  down  "))
		}))
		defer srv.Close()

		err := NewClient(srv.URL, "", "", time.Second).Health(context.Background())

		convey.Convey("Then a StatusError carries the body", func() {
			var se *StatusError
			convey.So(errors.As(err, &se), convey.ShouldBeTrue)
			convey.So(se.StatusCode, convey.ShouldEqual, http.StatusInternalServerError)
			convey.So(se.Body, convey.ShouldEqual, "down")
			convey.So(errors.Is(err, ErrUnexpectedStatus), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given synthetic creatives for two formats", t, func() {
		items := syntheticCreatives("http://x", "job-1", 2, []model.CreativeFormat{model.FormatFeed, model.FormatReel})
		convey.So(items, convey.ShouldHaveLength, 4)
		convey.So(items[3].URL, convey.ShouldEqual, "http://x/simulated/job-1/1-reel.png")
		convey.So(items[3].Index, convey.ShouldEqual, 1)
	})
}
