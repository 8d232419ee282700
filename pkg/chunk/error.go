package chunk

import "github.com/papercomputeco/rewind/pkg/hash"

// NotFoundError is returned when a digest has no entry in the pool.
type NotFoundError struct {
	Digest hash.Digest
}

func (e NotFoundError) Error() string {
	if e.Digest == "" {
		return "chunk not found"
	}

	return "chunk not found: " + string(e.Digest)
}
