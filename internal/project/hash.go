package project

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"fortio.org/safecast"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short is the first 8 bytes in hex.
func (d Digest) Short() string { return hex.EncodeToString(d[:8]) }

// Combine builds a unit digest: H(content || n || dep1 || dep2 ...).
// deps must be in a deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	n, err := safecast.Conv[uint32](len(deps))
	if err != nil {
		panic(fmt.Errorf("too many dependencies: %w", err))
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	_, _ = h.Write(buf[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Sum hashes raw bytes.
func Sum(data []byte) Digest { return Digest(sha256.Sum256(data)) }
