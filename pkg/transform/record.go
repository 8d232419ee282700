package transform

import "github.com/papercomputeco/rewind/pkg/hash"

// Record is the content-addressed form of a state node: digests of its chunks,
// the name of the rule that produced them and the records of its children.
//
// Records are never modified after creation. Partial decomposition shares
// unchanged child records between the previous and the new tree.
type Record struct {
	// Hashes holds one digest per chunk, in chunk order.
	Hashes []hash.Digest

	// Rule is the name of the rule that produced the chunks.
	Rule string

	// Children is nil for leaves.
	Children []*Record
}

// Walk traverses the record tree depth-first from r, calling fn for each
// record. Traversal stops when fn returns false or an error; the error is
// returned.
func (r *Record) Walk(fn func(*Record) (bool, error)) error {
	if r == nil {
		return nil
	}

	_, err := r.walk(fn)
	return err
}

func (r *Record) walk(fn func(*Record) (bool, error)) (bool, error) {
	ok, err := fn(r)
	if !ok || err != nil {
		return false, err
	}

	for _, child := range r.Children {
		if child == nil {
			continue
		}
		ok, err := child.walk(fn)
		if !ok || err != nil {
			return false, err
		}
	}

	return true, nil
}

// Size returns the number of records in the tree rooted at r.
func (r *Record) Size() int {
	n := 0
	_ = r.Walk(func(*Record) (bool, error) {
		n++
		return true, nil
	})
	return n
}

// Digests returns every digest referenced from the tree, without duplicates,
// in first-seen depth-first order.
func (r *Record) Digests() []hash.Digest {
	seen := make(map[hash.Digest]struct{})
	var out []hash.Digest

	_ = r.Walk(func(rec *Record) (bool, error) {
		for _, d := range rec.Hashes {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
		return true, nil
	})

	return out
}
