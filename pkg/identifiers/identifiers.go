// Package identifiers normalizes the ISBNs books are looked up by.
package identifiers

import (
	"strings"
)

// NormalizeISBN strips an "ISBN" prefix, hyphens and spaces, keeping only
// digits and a check character of X.
func NormalizeISBN(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "ISBN")
	value = strings.TrimPrefix(value, ":")

	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateISBN10 checks the mod 11 checksum of a normalized ISBN-10. Only the
// last character may be X.
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}

	sum := 0
	for i, r := range isbn {
		var digit int
		switch {
		case r >= '0' && r <= '9':
			digit = int(r - '0')
		case r == 'X' && i == 9:
			digit = 10
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidateISBN13 checks the alternating 1/3 weighted checksum of a
// normalized ISBN-13.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	for _, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return isbn13CheckDigit(isbn[:12]) == isbn[12]
}

func isbn13CheckDigit(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(first12[i] - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return byte('0' + (10-sum%10)%10)
}

// CanonicalISBN returns the ISBN-13 form of value, converting a valid ISBN-10
// by its 978 prefix. The second result is false when value is neither.
func CanonicalISBN(value string) (string, bool) {
	isbn := NormalizeISBN(value)
	switch {
	case ValidateISBN13(isbn):
		return isbn, true
	case ValidateISBN10(isbn):
		first12 := "978" + isbn[:9]
		return first12 + string(isbn13CheckDigit(first12)), true
	default:
		return "", false
	}
}
