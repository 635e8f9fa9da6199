package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// numberPrefix is the display prefix of every order number.
const numberPrefix = "ORDER"

// FormatNumber renders the wire/display form of an order number:
// ORDER-YYYY-MM-NNN with a zero-padded, at least 3-digit sequence.
// Sequences beyond 999 widen naturally and stay parseable.
func FormatNumber(year int, month time.Month, seq int64) string {
	return fmt.Sprintf("%s-%04d-%02d-%03d", numberPrefix, year, int(month), seq)
}

// ParseNumber extracts the year, month, and sequence from a well-formed
// order number. Consumers should treat numbers as opaque strings and use
// this only where the scope genuinely matters (e.g. counter catch-up
// during legacy import).
func ParseNumber(number string) (year int, month time.Month, seq int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 4 || parts[0] != numberPrefix {
		return 0, 0, 0, errors.Errorf("malformed order number %q", number)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return 0, 0, 0, errors.Errorf("malformed year in order number %q", number)
	}

	m, err := strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 2 || m < 1 || m > 12 {
		return 0, 0, 0, errors.Errorf("malformed month in order number %q", number)
	}

	seq, err = strconv.ParseInt(parts[3], 10, 64)
	if err != nil || len(parts[3]) < 3 || seq < 1 {
		return 0, 0, 0, errors.Errorf("malformed sequence in order number %q", number)
	}

	return year, time.Month(m), seq, nil
}
