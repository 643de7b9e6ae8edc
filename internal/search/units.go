package search

import (
	"regexp"
	"strconv"
	"strings"
)

var durationUnits = map[string]float64{
	"":            1,
	"ms":          0.001,
	"millisecond": 0.001,
	"milliseconds": 0.001,
	"s":           1,
	"sec":         1,
	"secs":        1,
	"second":      1,
	"seconds":     1,
	"m":           60,
	"min":         60,
	"mins":        60,
	"minute":      60,
	"minutes":     60,
	"h":           3600,
	"hr":          3600,
	"hrs":         3600,
	"hour":        3600,
	"hours":       3600,
	"d":           86400,
	"day":         86400,
	"days":        86400,
}

var sizeUnits = map[string]float64{
	"":     1,
	"b":    1,
	"byte": 1,
	"bytes": 1,
	"kb":   1024,
	"k":    1024,
	"mb":   1024 * 1024,
	"m":    1024 * 1024,
	"gb":   1024 * 1024 * 1024,
	"g":    1024 * 1024 * 1024,
}

var numberUnitRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)$`)

// parseDuration parses HH:MM:SS / MM:SS colon form, or a bare
// `<number><unit>` form, into seconds. An unrecognized unit suffix
// defaults to the base unit (seconds), per spec §4.5.
func parseDuration(value string) (float64, bool) {
	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		var h, m, s float64
		var err error
		switch len(parts) {
		case 2:
			if m, err = strconv.ParseFloat(parts[0], 64); err != nil {
				return 0, false
			}
			if s, err = strconv.ParseFloat(parts[1], 64); err != nil {
				return 0, false
			}
		case 3:
			if h, err = strconv.ParseFloat(parts[0], 64); err != nil {
				return 0, false
			}
			if m, err = strconv.ParseFloat(parts[1], 64); err != nil {
				return 0, false
			}
			if s, err = strconv.ParseFloat(parts[2], 64); err != nil {
				return 0, false
			}
		default:
			return 0, false
		}
		return h*3600 + m*60 + s, true
	}

	m := numberUnitRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	mult, ok := durationUnits[strings.ToLower(m[2])]
	if !ok {
		mult = 1
	}
	return num * mult, true
}

// parseSize parses a `<number><unit>` size expression (unit in
// b/kb/mb/gb) into bytes. An unrecognized unit defaults to bytes.
func parseSize(value string) (int64, bool) {
	m := numberUnitRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	mult, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		mult = 1
	}
	return int64(num * mult), true
}
