package textproc

import "strings"

// Number system bases used when spelling integers.
const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000

	// maxSpelledNumber bounds the conversion. Larger numbers (years are the
	// common case below it) read better as digits than as long word runs.
	maxSpelledNumber = 9999
)

var (
	onesWords = []string{
		"", "one", "two", "three", "four", "five",
		"six", "seven", "eight", "nine",
	}
	teensWords = []string{
		"ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	}
	tensWords = []string{
		"", "", "twenty", "thirty", "forty", "fifty",
		"sixty", "seventy", "eighty", "ninety",
	}
)

// SpellInteger converts a non-negative integer up to maxSpelledNumber into
// its English words. Out-of-range values return the empty string, which
// tells the caller to keep the digits.
func SpellInteger(number int) string {
	if number < 0 || number > maxSpelledNumber {
		return ""
	}

	if number == 0 {
		return "zero"
	}

	var parts []string

	if thousands := number / numberBaseThousand; thousands > 0 {
		parts = append(parts, onesWords[thousands]+" thousand")
		number %= numberBaseThousand
	}

	if hundreds := number / numberBaseHundred; hundreds > 0 {
		parts = append(parts, onesWords[hundreds]+" hundred")
		number %= numberBaseHundred
	}

	if number > 0 {
		parts = append(parts, spellUnderHundred(number))
	}

	return strings.Join(parts, " ")
}

func spellUnderHundred(number int) string {
	if number < numberBaseTen {
		return onesWords[number]
	}

	if number < numberBaseTwenty {
		return teensWords[number-numberBaseTen]
	}

	spelled := tensWords[number/numberBaseTen]
	if remainder := number % numberBaseTen; remainder > 0 {
		spelled += " " + onesWords[remainder]
	}

	return spelled
}
