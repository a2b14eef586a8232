package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/aforo/internal/adapters/mq/queue"
	worker "github.com/okian/aforo/internal/adapters/mq/worker"
	model "github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockRecorder captures every scan handed to it.
type mockRecorder struct {
	mu      sync.Mutex
	scans   []model.Scan
	failFor map[string]error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{failFor: make(map[string]error)}
}

func (m *mockRecorder) Record(_ context.Context, scan model.Scan, at time.Time) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failFor[scan.EntityID]; ok {
		return model.Event{}, err
	}
	m.scans = append(m.scans, scan)
	return model.Event{EntityID: scan.EntityID, Direction: model.Entry, Timestamp: at}, nil
}

func (m *mockRecorder) recorded() []model.Scan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Scan, len(m.scans))
	copy(out, m.scans)
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

func TestWorker_ProcessesLines(t *testing.T) {
	Convey("Given a running worker over a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		rec := newMockRecorder()
		w := worker.New(q, rec, worker.WithName("test-worker"))
		go w.Run(ctx)

		Convey("When a line with an entity id is enqueued", func() {
			q.Enqueue(ctx, queue.Line{Source: "tcp:1", Text: "card 42 entrada"})

			Convey("Then the scan reaches the recorder with its hint", func() {
				So(waitFor(func() bool { return len(rec.recorded()) == 1 }), ShouldBeTrue)
				scan := rec.recorded()[0]
				So(scan.EntityID, ShouldEqual, "42")
				So(scan.Hint, ShouldEqual, model.HintEntry)
			})
		})

		Convey("When a line has no entity id", func() {
			q.Enqueue(ctx, queue.Line{Source: "tcp:1", Text: "reader online"})
			q.Enqueue(ctx, queue.Line{Source: "tcp:1", Text: "77"})

			Convey("Then it is discarded and later lines still flow", func() {
				So(waitFor(func() bool { return len(rec.recorded()) == 1 }), ShouldBeTrue)
				So(rec.recorded()[0].EntityID, ShouldEqual, "77")
			})
		})

		Convey("When the recorder fails for one entity", func() {
			rec.failFor["13"] = errors.New("store unavailable")
			q.Enqueue(ctx, queue.Line{Source: "tcp:1", Text: "13"})
			q.Enqueue(ctx, queue.Line{Source: "tcp:1", Text: "14"})

			Convey("Then the worker keeps consuming", func() {
				So(waitFor(func() bool { return len(rec.recorded()) == 1 }), ShouldBeTrue)
				So(rec.recorded()[0].EntityID, ShouldEqual, "14")
			})
		})
	})
}

func TestWorker_Shutdown(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.New(q, newMockRecorder())
		go w.Run(ctx)

		Convey("When shutdown is requested", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			Convey("Then it stops within the deadline", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestPool_PreservesSubmissionOrder(t *testing.T) {
	Convey("Given a single-worker pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := newMockRecorder()
		p := worker.NewPool(1, q, rec)
		p.Start(ctx)
		defer p.Stop()

		Convey("When lines for the same entity are enqueued in order", func() {
			for _, text := range []string{"42 entrada", "42 salida", "42 entrada"} {
				So(q.Enqueue(ctx, queue.Line{Source: "dev", Text: text}), ShouldBeTrue)
			}

			Convey("Then the recorder sees them in that order", func() {
				So(waitFor(func() bool { return len(rec.recorded()) == 3 }), ShouldBeTrue)
				scans := rec.recorded()
				So(scans[0].Hint, ShouldEqual, model.HintEntry)
				So(scans[1].Hint, ShouldEqual, model.HintExit)
				So(scans[2].Hint, ShouldEqual, model.HintEntry)
			})
		})
	})
}
