package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"T", 1 << 40},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
	{"B", 1},
}

// ParseSize parses a byte count such as 512, 64K, 4MiB or 1.5G. Units are
// powers of 1024 and case-insensitive; "B", "iB" and "KB" style spellings
// are accepted.
func ParseSize(s string) (int64, error) {
	num := strings.ToUpper(strings.TrimSpace(s))
	if num == "" {
		return 0, fmt.Errorf("empty size string")
	}

	mult := int64(1)
	switch n := len(num); {
	case strings.HasSuffix(num, "IB"):
		num = strings.TrimSuffix(num, "IB")
	case n >= 2 && num[n-1] == 'B' && strings.IndexByte("KMGT", num[n-2]) >= 0:
		num = num[:n-1]
	}
	for _, u := range sizeUnits {
		if strings.HasSuffix(num, u.suffix) {
			mult = u.mult
			num = strings.TrimSuffix(num, u.suffix)
			break
		}
	}
	num = strings.TrimSpace(num)
	if num == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	if n, err := strconv.ParseInt(num, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		return n * mult, nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	return int64(f * float64(mult)), nil
}
