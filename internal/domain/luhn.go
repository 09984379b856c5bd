package domain

// LuhnCheckDigit computes the check digit to append to payload so that the
// result passes the Luhn check. payload must contain only ASCII digits.
func LuhnCheckDigit(payload string) int {
	sum := 0
	// Walking right to left over the payload, the first digit is the one
	// that gets doubled once the check digit is appended.
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// ValidLuhn reports whether number is made of digits and passes the Luhn
// check.
func ValidLuhn(number string) bool {
	if len(number) < 2 {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	last := int(number[len(number)-1] - '0')
	return LuhnCheckDigit(number[:len(number)-1]) == last
}
