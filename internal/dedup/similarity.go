package dedup

// Similarity computes the Ratcliff-Obershelp ratio between two strings:
// 2*M / (len(a)+len(b)) where M is the total number of characters covered by
// recursively taken longest common substrings. The ratio is symmetric, lies
// in [0,1], and equals 1 exactly for identical strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	left := []rune(a)
	right := []rune(b)
	total := len(left) + len(right)
	if total == 0 {
		return 1
	}
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	matched := matchingChars(left, right)
	return 2 * float64(matched) / float64(total)
}

// matchingChars finds the longest common substring, then recurses on the
// unmatched prefixes and suffixes on either side of it.
func matchingChars(a, b []rune) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}

	matched := size
	matched += matchingChars(a[:aStart], b[:bStart])
	matched += matchingChars(a[aStart+size:], b[bStart+size:])
	return matched
}

func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	// lengths[j] holds the match length ending at a[i-1], b[j-1] for the
	// previous row; a single row is enough.
	lengths := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		previousDiagonal := 0
		for j := 1; j <= len(b); j++ {
			current := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = previousDiagonal + 1
				if lengths[j] > size {
					size = lengths[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				lengths[j] = 0
			}
			previousDiagonal = current
		}
	}
	return aStart, bStart, size
}
