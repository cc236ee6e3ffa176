package sheets

import "strings"

// NormalizeColumnKey returns the upper-cased letters of v and true when v is a
// literal column reference such as "c" or "AA". Anything else is a header name.
func NormalizeColumnKey(v string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(v))
	if key == "" {
		return "", false
	}
	for _, r := range key {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return key, true
}

// ColumnKeyToIndex converts letters to a zero-based index using bijective
// base-26 ("A"=0, "Z"=25, "AA"=26). The input must already be normalized.
func ColumnKeyToIndex(letters string) int {
	n := 0
	for _, r := range letters {
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}

// IndexToColumnKey is the inverse of ColumnKeyToIndex. There is no zero digit,
// so each step takes the remainder first and subtracts it before dividing.
func IndexToColumnKey(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	n := index + 1
	for n > 0 {
		rem := (n - 1) % 26
		buf = append(buf, byte('A'+rem))
		n = (n - rem - 1) / 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ResolveColumnLetter maps a configured reference to column letters. Literal
// letters win; otherwise the first header cell whose trimmed text equals the
// configured value decides. ok is false when the field cannot be placed, which
// callers treat as "skip this field", not as an error.
func ResolveColumnLetter(configured string, header []string) (string, bool) {
	if key, ok := NormalizeColumnKey(configured); ok {
		return key, true
	}
	if header == nil {
		return "", false
	}
	want := strings.TrimSpace(configured)
	if want == "" {
		return "", false
	}
	for i, cell := range header {
		if strings.TrimSpace(cell) == want {
			return IndexToColumnKey(i), true
		}
	}
	return "", false
}

// RequiresHeaderLookup reports whether any mapped value is a header name, in
// which case row 1 has to be read before columns can be resolved.
func RequiresHeaderLookup(m Mapping) bool {
	for _, v := range m {
		if _, ok := NormalizeColumnKey(v); !ok {
			return true
		}
	}
	return false
}
