package rpool_test

import (
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/backend/backendtest"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/rpool"
)

var surface = backend.ContextConfig{Width: 64, Height: 48, PreserveDrawingBuffer: true}

var _ = Describe("Pool", func() {
	var (
		host *backendtest.Host
		pool *rpool.Pool
	)

	BeforeEach(func() {
		host = backendtest.New(backend.Info{MaxTextureSize: 4096})
		pool = rpool.New(host, 2)
	})

	Describe("Acquire", func() {
		It("creates a context and takes one reference", func() {
			h, err := pool.Acquire("a", surface)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.State()).To(Equal(rpool.Acquired))
			Expect(h.RefCount()).To(Equal(1))
			Expect(h.Context()).NotTo(BeNil())
			Expect(host.Live()).To(Equal(1))
		})

		It("returns the same handle for a live id", func() {
			first, _ := pool.Acquire("a", surface)
			second, err := pool.Acquire("a", surface)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
			Expect(second.RefCount()).To(Equal(2))
			Expect(host.Created).To(Equal(1))
		})

		It("labels the context with the viewer id", func() {
			h, _ := pool.Acquire("viewer-7", surface)
			Expect(h.Config().Label).To(Equal("viewer-7"))
		})

		It("wraps context creation failures as render errors", func() {
			host.FailNew = true
			_, err := pool.Acquire("a", surface)
			var re *engine.RenderError
			Expect(err).To(BeAssignableToTypeOf(re))
			Expect(pool.Live()).To(BeZero())
		})
	})

	Describe("capacity", func() {
		It("fails with a retryable error when nothing is idle", func() {
			_, _ = pool.Acquire("a", surface)
			_, _ = pool.Acquire("b", surface)

			_, err := pool.Acquire("c", surface)
			Expect(err).To(MatchError(engine.ErrResourceExhausted))
			Expect(engine.IsRetryable(err)).To(BeTrue())
			Expect(host.Live()).To(Equal(2))
			Expect(pool.Stats().Exhausted).To(BeEquivalentTo(1))
		})

		It("evicts the least recently used idle handle", func() {
			a, _ := pool.Acquire("a", surface)
			b, _ := pool.Acquire("b", surface)
			a.Unref()
			b.Unref()

			c, err := pool.Acquire("c", surface)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.State()).To(Equal(rpool.Released))
			Expect(a.Context()).To(BeNil())
			Expect(b.State()).To(Equal(rpool.Acquired))
			Expect(c.State()).To(Equal(rpool.Acquired))
			Expect(host.Live()).To(Equal(2))
			Expect(pool.Stats().Evicted).To(BeEquivalentTo(1))
		})

		It("reuses an idle handle before it is evicted", func() {
			a, _ := pool.Acquire("a", surface)
			a.Unref()
			Expect(a.Idle()).To(BeTrue())

			again, err := pool.Acquire("a", surface)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeIdenticalTo(a))
			Expect(again.Idle()).To(BeFalse())
			Expect(host.Created).To(Equal(1))
		})

		It("never exceeds capacity over random paired acquire and release", func() {
			rng := rand.New(rand.NewSource(42))
			held := map[string]bool{}
			next := 0
			for i := 0; i < 500; i++ {
				if len(held) > 0 && rng.Intn(2) == 0 {
					for id := range held {
						pool.Release(id)
						delete(held, id)
						Expect(pool.Has(id)).To(BeFalse())
						break
					}
				} else {
					id := fmt.Sprintf("v%d", next)
					next++
					if _, err := pool.Acquire(id, surface); err == nil {
						held[id] = true
					} else {
						Expect(err).To(MatchError(engine.ErrResourceExhausted))
					}
				}
				Expect(pool.Live()).To(BeNumerically("<=", 2))
				Expect(host.Live()).To(BeNumerically("<=", 2))
			}
			for id := range held {
				pool.Release(id)
			}
			Expect(host.Live()).To(BeZero())
		})
	})

	Describe("Release", func() {
		It("destroys the context and leaves nothing attributed to the id", func() {
			h, _ := pool.Acquire("a", surface)
			pool.Release("a")

			Expect(pool.Has("a")).To(BeFalse())
			Expect(h.State()).To(Equal(rpool.Released))
			Expect(h.RefCount()).To(BeZero())
			Expect(h.Context()).To(BeNil())
			Expect(host.Live()).To(BeZero())
		})

		It("is idempotent", func() {
			_, _ = pool.Acquire("a", surface)
			pool.Release("a")
			Expect(func() { pool.Release("a") }).NotTo(Panic())
			Expect(func() { pool.Release("never-acquired") }).NotTo(Panic())
			Expect(host.Destroyed).To(Equal(1))
		})

		It("makes the id unusable", func() {
			_, _ = pool.Acquire("a", surface)
			pool.Release("a")
			_, err := pool.Acquire("a", surface)
			Expect(err).To(MatchError(engine.ErrHandleReleased))
		})

		It("is triggered by Close", func() {
			h, _ := pool.Acquire("a", surface)
			Expect(h.Close()).To(Succeed())
			Expect(h.Close()).To(Succeed())
			Expect(pool.Has("a")).To(BeFalse())
			Expect(host.Live()).To(BeZero())
		})
	})

	Describe("Unref", func() {
		It("never drops the reference count below zero", func() {
			h, _ := pool.Acquire("a", surface)
			h.Unref()
			h.Unref()
			Expect(h.RefCount()).To(BeZero())
			Expect(h.State()).To(Equal(rpool.Acquired))
		})
	})

	Describe("Wait", func() {
		It("serves immediately when capacity is free", func() {
			var got *rpool.Handle
			pool.Wait("a", surface, func(h *rpool.Handle, err error) {
				Expect(err).NotTo(HaveOccurred())
				got = h
			})
			Expect(got).NotTo(BeNil())
			Expect(pool.Pending()).To(BeZero())
		})

		It("queues the third of three mounts until a release", func() {
			_, _ = pool.Acquire("a", surface)
			_, _ = pool.Acquire("b", surface)

			var got *rpool.Handle
			pool.Wait("c", surface, func(h *rpool.Handle, err error) {
				Expect(err).NotTo(HaveOccurred())
				got = h
			})
			Expect(got).To(BeNil())
			Expect(pool.Pending()).To(Equal(1))
			Expect(host.Live()).To(Equal(2))

			pool.Release("a")
			Expect(got).NotTo(BeNil())
			Expect(got.ID()).To(Equal("c"))
			Expect(host.Live()).To(Equal(2))
			Expect(pool.Pending()).To(BeZero())
		})

		It("serves queued requests when a handle goes idle", func() {
			a, _ := pool.Acquire("a", surface)
			_, _ = pool.Acquire("b", surface)

			served := false
			pool.Wait("c", surface, func(h *rpool.Handle, err error) { served = err == nil })
			a.Unref()
			Expect(served).To(BeTrue())
			Expect(a.State()).To(Equal(rpool.Released))
			Expect(host.Live()).To(Equal(2))
		})

		It("serves in FIFO order and honours cancellation", func() {
			_, _ = pool.Acquire("a", surface)
			_, _ = pool.Acquire("b", surface)

			var order []string
			record := func(h *rpool.Handle, err error) {
				if err == nil {
					order = append(order, h.ID())
				}
			}
			pool.Wait("c", surface, record)
			cancel := pool.Wait("d", surface, record)
			pool.Wait("e", surface, record)
			cancel()
			cancel()

			pool.Release("a")
			pool.Release("b")
			Expect(order).To(Equal([]string{"c", "e"}))
		})

		It("fails queued requests when the pool closes", func() {
			_, _ = pool.Acquire("a", surface)
			_, _ = pool.Acquire("b", surface)

			var got error
			pool.Wait("c", surface, func(_ *rpool.Handle, err error) { got = err })
			pool.Close()
			Expect(got).To(MatchError(rpool.ErrClosed))
			Expect(host.Live()).To(BeZero())
		})
	})
})
