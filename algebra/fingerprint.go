package algebra

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// ---------------------------------------------------------------------------
// Structural fingerprints.
//
// A fingerprint is a Merkle-style SHA-256 over the tree. Each node's
// preimage is:
//   - FingerprintVersion
//   - the node's tag byte
//   - Label: uint32 big-endian length + UTF-8 bytes
//   - Raw: int64 big-endian
//   - composites: uint32 big-endian child count + the children's
//     fingerprints
//
// Fingerprints key caches and stores; they are not an exchange format for
// trees and are not used by Digest.
// ---------------------------------------------------------------------------

// Fingerprint returns the structural fingerprint of h. Trees are Equal
// exactly when their fingerprints match (barring SHA-256 collisions).
func Fingerprint(h Hash) [32]byte {
	return fingerprint(h, false)
}

// CanonicalFingerprint is Fingerprint with each Unordered node's child
// fingerprints sorted before hashing. It matches exactly when the trees are
// Equivalent.
func CanonicalFingerprint(h Hash) [32]byte {
	return fingerprint(h, true)
}

type fpFrame struct {
	node  Hash
	elems []Hash
	next  int
	fps   [][32]byte
}

func fingerprint(h Hash, canonical bool) [32]byte {
	s := &serializer{buf: make([]byte, 0, 64)}
	if !isComposite(h) {
		return s.leaf(h)
	}

	stack := []fpFrame{{node: h, elems: children(h)}}
	for {
		top := &stack[len(stack)-1]
		if top.next < len(top.elems) {
			child := top.elems[top.next]
			top.next++
			if !isComposite(child) {
				top.fps = append(top.fps, s.leaf(child))
				continue
			}
			stack = append(stack, fpFrame{node: child, elems: children(child)})
			continue
		}

		kind := KindOf(top.node)
		if canonical && kind == KindUnordered {
			sort.Slice(top.fps, func(i, j int) bool {
				return bytes.Compare(top.fps[i][:], top.fps[j][:]) < 0
			})
		}
		fp := s.composite(kind, top.fps)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return fp
		}
		last := &stack[len(stack)-1]
		last.fps = append(last.fps, fp)
	}
}

type serializer struct {
	buf []byte
}

func (s *serializer) reset(tag byte) {
	s.buf = s.buf[:0]
	s.writeByte(FingerprintVersion)
	s.writeByte(tag)
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) leaf(h Hash) [32]byte {
	k := KindOf(h)
	s.reset(tagOf(k))
	switch k {
	case KindLabel:
		s.writeString(h.(*Label).Text)
	case KindRaw:
		s.writeInt64(h.(*Raw).Value)
	}
	return sha256.Sum256(s.buf)
}

func (s *serializer) composite(k Kind, fps [][32]byte) [32]byte {
	s.reset(tagOf(k))
	s.writeUint32(uint32(len(fps)))
	for i := range fps {
		s.buf = append(s.buf, fps[i][:]...)
	}
	return sha256.Sum256(s.buf)
}
