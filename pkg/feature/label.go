package feature

import "strings"

// EncodeLabel maps a raw label value to {0, 1}. Recognized truthy forms are
// boolean true, numeric 1, and the string "true" in any casing. Everything
// else, including unknown strings, maps to 0 (the lenient policy).
func EncodeLabel(v interface{}) float64 {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
	case float64:
		if t == 1 {
			return 1
		}
	case string:
		if strings.EqualFold(t, "true") {
			return 1
		}
	}
	return 0
}

// DecodeLabel thresholds a predicted probability back into the textual
// label form used by EncodeLabel. threshold values outside (0, 1] fall back
// to 0.5.
func DecodeLabel(p, threshold float64) string {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	if p >= threshold {
		return "true"
	}
	return "false"
}
