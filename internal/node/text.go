package node

import "github.com/rivo/uniseg"

// TextLen returns the number of grapheme clusters in s. Text offsets
// everywhere in the tree are measured in grapheme clusters.
func TextLen(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// byteOffset converts a grapheme offset into a byte offset, clamped to len(s).
func byteOffset(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	pos := 0
	state := -1
	rest := s
	for n := 0; n < offset && len(rest) > 0; n++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		pos += len(cluster)
	}
	return pos
}

// SplitText splits s at a grapheme offset.
func SplitText(s string, offset int) (string, string) {
	b := byteOffset(s, offset)
	return s[:b], s[b:]
}

// SliceText returns the graphemes of s in [from, to).
func SliceText(s string, from, to int) string {
	if to < from {
		return ""
	}
	start := byteOffset(s, from)
	end := byteOffset(s, to)
	return s[start:end]
}

// SpliceText removes count graphemes at offset and inserts ins there.
// It returns the new text and the removed text.
func SpliceText(s string, offset, count int, ins string) (string, string) {
	start := byteOffset(s, offset)
	end := byteOffset(s, offset+count)
	return s[:start] + ins + s[end:], s[start:end]
}
