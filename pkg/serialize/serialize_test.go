package serialize_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rewind/pkg/serialize"
)

type linked struct {
	Name string  `json:"name"`
	Next *linked `json:"next,omitempty"`
	Skip string  `json:"-"`
	note string
}

type Base struct {
	ID int `json:"id"`
}

type shape struct {
	Base
	Kind  string `json:"kind"`
	Empty string `json:"empty,omitempty"`
}

var _ = Describe("Marshal", func() {
	It("sorts map keys", func() {
		out, err := serialize.Marshal(map[string]any{"b": 1, "a": 2, "c": "x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"a":2,"b":1,"c":"x"}`))
	})

	It("produces the same output for the same value", func() {
		v := map[string]any{"id": 1.0, "children": []any{map[string]any{"id": 2.0}}}

		first, err := serialize.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		second, err := serialize.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal(second))
	})

	It("encodes scalars and nil", func() {
		for in, want := range map[any]string{"s": `"s"`, 3.5: `3.5`, true: `true`} {
			out, err := serialize.Marshal(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(want))
		}

		out, err := serialize.Marshal(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("null"))
	})

	It("breaks parent/child cycles by dropping the repeated key", func() {
		parent := map[string]any{"name": "foo"}
		child := map[string]any{"name": "boo", "parent": parent}
		parent["children"] = []any{child}

		out, err := serialize.Marshal(parent)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"children":[{"name":"boo"}],"name":"foo"}`))
	})

	It("does not modify cyclic input", func() {
		parent := map[string]any{"name": "foo"}
		child := map[string]any{"name": "boo", "parent": parent}
		parent["children"] = []any{child}

		_, err := serialize.Marshal(parent)
		Expect(err).NotTo(HaveOccurred())
		Expect(child).To(HaveKey("parent"))
		Expect(parent["children"]).To(HaveLen(1))
	})

	It("writes repeated references inside arrays as null", func() {
		shared := map[string]any{"x": 1}

		out, err := serialize.Marshal([]any{shared, shared})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`[{"x":1},null]`))
	})

	It("keeps a repeated reference under the smallest key on every call", func() {
		shared := map[string]any{"v": 1}
		node := map[string]any{"c": shared, "a": shared, "b": shared}

		outputs := map[string]int{}
		for range 200 {
			out, err := serialize.Marshal(node)
			Expect(err).NotTo(HaveOccurred())
			outputs[out]++
		}

		Expect(outputs).To(HaveLen(1))
		Expect(outputs).To(HaveKey(`{"a":{"v":1}}`))
	})

	It("keeps overlapping subslices of one backing array", func() {
		tags := []any{"a", "b", "c"}
		in := map[string]any{"first": tags[:2], "tags": tags}

		out, err := serialize.Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"first":["a","b"],"tags":["a","b","c"]}`))

		back, err := serialize.Unmarshal(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(in))
	})

	It("handles a slice containing itself", func() {
		s := make([]any, 1)
		s[0] = s

		out, err := serialize.Marshal(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`[null]`))
	})

	It("keeps empty slices distinct from repeated references", func() {
		out, err := serialize.Marshal(map[string]any{"a": []any{}, "b": []any{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"a":[],"b":[]}`))
	})

	It("uses a fresh visited set on every call", func() {
		shared := map[string]any{"x": 1}

		first, err := serialize.Marshal(shared)
		Expect(err).NotTo(HaveOccurred())
		second, err := serialize.Marshal(shared)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal(`{"x":1}`))
		Expect(second).To(Equal(first))
	})

	It("breaks pointer cycles through structs", func() {
		n := &linked{Name: "a", Skip: "hidden", note: "private"}
		n.Next = n

		out, err := serialize.Marshal(n)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"name":"a"}`))
	})

	It("follows json tags, omitempty and embedding", func() {
		out, err := serialize.Marshal(shape{Base: Base{ID: 7}, Kind: "image"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"id":7,"kind":"image"}`))
	})

	It("defers to json.Marshaler implementations", func() {
		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		out, err := serialize.Marshal(map[string]any{"at": ts})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"at":"2024-01-02T03:04:05Z"}`))
	})

	It("stringifies integer map keys", func() {
		out, err := serialize.Marshal(map[int]string{2: "b", 1: "a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"1":"a","2":"b"}`))
	})

	It("rejects functions and channels", func() {
		_, err := serialize.Marshal(map[string]any{"f": func() {}})
		Expect(err).To(MatchError(serialize.ErrUnsupported))

		_, err = serialize.Marshal([]any{make(chan int)})
		Expect(err).To(MatchError(serialize.ErrUnsupported))
	})
})

var _ = Describe("Unmarshal", func() {
	It("parses into generic JSON values", func() {
		v, err := serialize.Unmarshal(`{"a":[1,"x",true,null],"b":{"c":2.5}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(map[string]any{
			"a": []any{1.0, "x", true, nil},
			"b": map[string]any{"c": 2.5},
		}))
	})

	It("inverts Marshal for acyclic JSON values", func() {
		in := map[string]any{"id": 1.0, "name": "root", "tags": []any{"a", "b"}}

		out, err := serialize.Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		back, err := serialize.Unmarshal(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(in))
	})

	It("fails on malformed payloads", func() {
		_, err := serialize.Unmarshal(`{"a":`)
		Expect(err).To(HaveOccurred())
	})
})
