// Package hash maps chunk payloads to short, fixed-size digests.
//
// Digests are non-cryptographic: the goal is speed on large state trees, not
// collision resistance. Two different payloads may share a digest; the chunk
// pool treats that as an accepted risk.
package hash

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Size is the digest length in bytes.
const Size = 8

// Digest is the hex-encoded hash of a chunk payload. It is always 2*Size
// lowercase hex characters.
type Digest string

// String implements fmt.Stringer.
func (d Digest) String() string {
	return string(d)
}

// Short returns the first half of the digest for log output.
func (d Digest) Short() string {
	if len(d) <= Size {
		return string(d)
	}
	return string(d[:Size])
}

// Hasher computes digests with a fixed seed. The zero value hashes with
// seed 0, the same as the package level Sum.
type Hasher struct {
	seed uint64
}

// New returns a Hasher for the given seed. Equal seeds always produce equal
// digests for equal payloads, across processes and runs.
func New(seed uint64) *Hasher {
	return &Hasher{seed: seed}
}

// Seed returns the seed the Hasher was created with.
func (h *Hasher) Seed() uint64 {
	if h == nil {
		return 0
	}
	return h.seed
}

// Sum returns the digest of payload.
func (h *Hasher) Sum(payload string) Digest {
	var sum uint64
	if h == nil || h.seed == 0 {
		sum = xxhash.Sum64String(payload)
	} else {
		d := xxhash.NewWithSeed(h.seed)
		_, _ = d.WriteString(payload)
		sum = d.Sum64()
	}

	var buf [Size]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return Digest(hex.EncodeToString(buf[:]))
}

var defaultHasher = New(0)

// Sum returns the seed 0 digest of payload.
func Sum(payload string) Digest {
	return defaultHasher.Sum(payload)
}
