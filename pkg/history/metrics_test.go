package history_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/rewind/pkg/history"
)

var _ = Describe("Metrics", func() {
	var (
		reg     *prometheus.Registry
		metrics *history.Metrics
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		metrics = history.NewMetrics(reg)
	})

	It("registers every collector", func() {
		metrics.PushesCollector("sync")
		metrics.RejectionsCollector("reset")

		n, err := testutil.GatherAndCount(reg)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
	})

	It("counts pushes, evictions and pool entries", func() {
		h, err := history.New(
			history.WithMaxLength(3),
			history.WithMetrics(metrics),
		)
		Expect(err).NotTo(HaveOccurred())

		state := newTree()
		for range 5 {
			Expect(h.PushSync(state)).To(Succeed())
		}

		Expect(testutil.ToFloat64(metrics.PushesCollector("sync"))).To(Equal(5.0))
		Expect(testutil.ToFloat64(metrics.EvictionsCollector())).To(Equal(2.0))
		Expect(testutil.ToFloat64(metrics.PoolEntriesCollector())).To(Equal(float64(h.Stats().Chunks)))
		Expect(testutil.CollectAndCount(metrics.PushDurationCollector())).To(Equal(1))

		h.Reset()
		Expect(testutil.ToFloat64(metrics.PoolEntriesCollector())).To(Equal(0.0))
	})

	It("counts debounced commits and rejections", func() {
		clock := newFakeClock()
		h, err := history.New(
			history.WithDelay(20*time.Millisecond),
			history.WithClock(clock.Now),
			history.WithMetrics(metrics),
		)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err = h.Push(newTree()).Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.ToFloat64(metrics.PushesCollector("debounced"))).To(Equal(1.0))

		h.Push(newTree())
		clock.Advance(time.Second)
		Expect(h.Push(newTree()).Err()).To(MatchError(history.ErrInvalidPush))
		Expect(testutil.ToFloat64(metrics.RejectionsCollector("invalid_push"))).To(Equal(1.0))

		h.Reset()
		Expect(testutil.ToFloat64(metrics.RejectionsCollector("reset"))).To(Equal(1.0))
	})

	It("reports no collisions for distinct chunks", func() {
		h, err := history.New(history.WithMetrics(metrics))
		Expect(err).NotTo(HaveOccurred())

		Expect(h.PushSync(newTree())).To(Succeed())
		Expect(testutil.ToFloat64(metrics.CollisionsCollector())).To(Equal(0.0))
	})

	It("tolerates a nil receiver", func() {
		h, err := history.New(history.WithMetrics(nil))
		Expect(err).NotTo(HaveOccurred())

		Expect(h.PushSync(newTree())).To(Succeed())
		h.Push(newTree())
		h.Reset()
	})

	It("can be created without a registerer", func() {
		Expect(history.NewMetrics(nil)).NotTo(BeNil())
	})
})
