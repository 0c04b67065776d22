package algebra

import (
	"strconv"
	"strings"
)

// Format renders h in the notation accepted by the notation package:
// empty, "label", 42, [ordered ...], {unordered ...}.
func Format(h Hash) string {
	var sb strings.Builder
	writeHash(&sb, h)
	return sb.String()
}

func writeHash(sb *strings.Builder, h Hash) {
	switch KindOf(h) {
	case KindEmpty:
		sb.WriteString("empty")
	case KindLabel:
		sb.WriteString(strconv.Quote(h.(*Label).Text))
	case KindRaw:
		sb.WriteString(strconv.FormatInt(h.(*Raw).Value, 10))
	case KindOrdered:
		writeGroup(sb, '[', ']', children(h))
	case KindUnordered:
		writeGroup(sb, '{', '}', children(h))
	}
}

func writeGroup(sb *strings.Builder, open, close byte, elems []Hash) {
	sb.WriteByte(open)
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte(' ')
		}
		writeHash(sb, e)
	}
	sb.WriteByte(close)
}

func (n *Ordered) String() string   { return Format(n) }
func (n *Unordered) String() string { return Format(n) }
func (n *Label) String() string     { return Format(n) }
func (n *Raw) String() string       { return Format(n) }
func (n *Empty) String() string     { return Format(n) }
