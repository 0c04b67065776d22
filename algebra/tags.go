package algebra

// ---------------------------------------------------------------------------
// Frozen tag bytes for the fingerprint encoding.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Changing one invalidates every stored fingerprint.
// ---------------------------------------------------------------------------

// FingerprintVersion prefixes every node preimage. Bumping it invalidates
// all existing fingerprints.
const FingerprintVersion byte = 1

const (
	TagReservedZero byte = 0x00

	// Leaves
	TagEmpty byte = 0x01
	TagLabel byte = 0x02
	TagRaw   byte = 0x03

	// Composites
	TagOrdered   byte = 0x10
	TagUnordered byte = 0x11

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagEmpty, TagLabel, TagRaw,
	TagOrdered, TagUnordered,
}

func tagOf(k Kind) byte {
	switch k {
	case KindLabel:
		return TagLabel
	case KindRaw:
		return TagRaw
	case KindOrdered:
		return TagOrdered
	case KindUnordered:
		return TagUnordered
	}
	return TagEmpty
}
