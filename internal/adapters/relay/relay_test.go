package relay_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/aforo/internal/adapters/relay"
	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// captureServer records relayed payloads.
type captureServer struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (c *captureServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	if c.status != 0 {
		w.WriteHeader(c.status)
	}
}

func (c *captureServer) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.bodies))
	copy(out, c.bodies)
	return out
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestRelay_Forward(t *testing.T) {
	Convey("Given a relay pointed at a live endpoint", t, func() {
		capture := &captureServer{}
		srv := httptest.NewServer(capture)
		defer srv.Close()

		r := relay.New(srv.URL)
		So(r.Enabled(), ShouldBeTrue)

		Convey("When an event is forwarded", func() {
			event := model.Event{
				ID:        7,
				EntityID:  "42",
				Direction: model.Entry,
				Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			}
			r.Forward(event)

			Convey("Then the endpoint receives the event as JSON", func() {
				So(waitFor(func() bool { return len(capture.received()) == 1 }), ShouldBeTrue)

				var got model.Event
				So(json.Unmarshal(capture.received()[0], &got), ShouldBeNil)
				So(got.EntityID, ShouldEqual, "42")
				So(got.Direction, ShouldEqual, model.Entry)
			})
		})
	})
}

func TestRelay_Disabled(t *testing.T) {
	Convey("Given a relay with no endpoint", t, func() {
		r := relay.New("")
		So(r.Enabled(), ShouldBeFalse)

		Convey("When an event is forwarded", func() {
			Convey("Then nothing happens and nothing panics", func() {
				So(func() { r.Forward(model.Event{EntityID: "1"}) }, ShouldNotPanic)
			})
		})
	})
}

func TestRelay_EndpointFailure(t *testing.T) {
	Convey("Given an endpoint that rejects every request", t, func() {
		capture := &captureServer{status: http.StatusInternalServerError}
		srv := httptest.NewServer(capture)
		defer srv.Close()

		r := relay.New(srv.URL)

		Convey("When events are forwarded", func() {
			r.Forward(model.Event{ID: 1, EntityID: "1", Direction: model.Entry})
			r.Forward(model.Event{ID: 2, EntityID: "2", Direction: model.Exit})

			Convey("Then forwarding keeps going despite failures", func() {
				So(waitFor(func() bool { return len(capture.received()) == 2 }), ShouldBeTrue)
			})
		})
	})
}
