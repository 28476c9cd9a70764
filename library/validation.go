package library

const (
	patronIDLength = 6
	isbnLength     = 13
)

// ValidatePatronID reports whether s is exactly six ASCII digits.
func ValidatePatronID(s string) bool {
	return len(s) == patronIDLength && allDigits(s)
}

// ValidateISBN reports whether s is exactly thirteen ASCII digits.
func ValidateISBN(s string) bool {
	return len(s) == isbnLength && allDigits(s)
}

// ValidatePositiveInt reports whether n is greater than zero.
func ValidatePositiveInt(n int) bool {
	return n > 0
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
