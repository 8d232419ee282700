package chunk_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rewind/pkg/chunk"
	"github.com/papercomputeco/rewind/pkg/hash"
)

var _ = Describe("Pool", func() {
	var pool *chunk.Pool

	BeforeEach(func() {
		pool = chunk.NewPool()
	})

	Describe("Put", func() {
		It("inserts a new entry", func() {
			payload := `{"id":1}`
			res := pool.Put(hash.Sum(payload), payload)

			Expect(res.Inserted).To(BeTrue())
			Expect(res.Collided).To(BeFalse())
			Expect(pool.Len()).To(Equal(1))
			Expect(pool.Bytes()).To(Equal(len(payload)))
		})

		It("is a no-op for identical content", func() {
			payload := `{"id":1}`
			pool.Put(hash.Sum(payload), payload)
			res := pool.Put(hash.Sum(payload), payload)

			Expect(res).To(Equal(chunk.PutResult{}))
			Expect(pool.Len()).To(Equal(1))
			Expect(pool.Bytes()).To(Equal(len(payload)))
		})

		It("reports and overwrites a collision", func() {
			d := hash.Digest("00000000000000aa")
			pool.Put(d, "first")
			res := pool.Put(d, "second!")

			Expect(res.Inserted).To(BeFalse())
			Expect(res.Collided).To(BeTrue())
			Expect(pool.Len()).To(Equal(1))
			Expect(pool.Bytes()).To(Equal(len("second!")))

			payload, err := pool.Get(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal("second!"))
		})
	})

	Describe("Get", func() {
		It("returns the stored payload", func() {
			d := hash.Sum("payload")
			pool.Put(d, "payload")

			payload, err := pool.Get(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal("payload"))
			Expect(pool.Has(d)).To(BeTrue())
		})

		It("returns NotFoundError for an unknown digest", func() {
			_, err := pool.Get("missing")
			Expect(err).To(HaveOccurred())

			var nf chunk.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Digest).To(Equal(hash.Digest("missing")))
			Expect(err.Error()).To(Equal("chunk not found: missing"))
			Expect(pool.Has("missing")).To(BeFalse())
		})
	})

	Describe("Digests", func() {
		It("lists digests in sorted order", func() {
			pool.Put("b", "2")
			pool.Put("a", "1")
			pool.Put("c", "3")

			Expect(pool.Digests()).To(Equal([]hash.Digest{"a", "b", "c"}))
		})
	})

	Describe("Clear", func() {
		It("removes every entry", func() {
			pool.Put(hash.Sum("a"), "a")
			pool.Put(hash.Sum("b"), "b")

			pool.Clear()

			Expect(pool.Len()).To(BeZero())
			Expect(pool.Bytes()).To(BeZero())
			Expect(pool.Digests()).To(BeEmpty())
		})
	})
})
