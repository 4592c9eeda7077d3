// Package answers canonicalizes answer values per input type so uniqueness
// comparison works on one representation regardless of how the payload
// spelled the value.
package answers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

// Display formats accepted from the clients, mapped to Go layouts.
var dateLayouts = map[string]string{
	"dd/MM/YYYY": "02/01/2006",
	"MM/dd/YYYY": "01/02/2006",
	"YYYY/MM/dd": "2006/01/02",
	"MM/YYYY":    "01/2006",
	"dd/MM":      "02/01",
}

var timeLayouts = map[string]string{
	"HH:mm:ss": "15:04:05",
	"hh:mm:ss": "15:04:05",
	"HH:mm":    "15:04",
	"hh:mm":    "15:04",
	"mm:ss":    "04:05",
}

// Fallback parse order when the input carries no display format.
var dateFallbackOrder = []string{"02/01/2006", "01/02/2006", "2006/01/02", "01/2006", "02/01"}
var timeFallbackOrder = []string{"15:04:05", "15:04", "04:05"}

// isoInstants covers payloads that already carry a full timestamp.
var isoInstants = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize returns the comparable form of an answer for the given input.
func Normalize(input *models.Input, v models.AnswerValue) (string, error) {
	if v.IsEmpty() {
		return "", nil
	}

	switch input.Type {
	case models.InputText, models.InputTextarea, models.InputBarcode:
		return strings.ToLower(strings.TrimSpace(v.Scalar)), nil

	case models.InputInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Scalar), 10, 64)
		if err != nil {
			return "", fmt.Errorf("integer answer %q: %w", v.Scalar, err)
		}
		return strconv.FormatInt(n, 10), nil

	case models.InputDecimal:
		// Decimals travel as strings; parsing happens only here, at the
		// point of comparison.
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Scalar), 64)
		if err != nil {
			return "", fmt.Errorf("decimal answer %q: %w", v.Scalar, err)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil

	case models.InputPhone:
		return normalizePhone(v.Scalar), nil

	case models.InputDate:
		return normalizeDate(input.DateFormat, v.Scalar)

	case models.InputTime:
		return normalizeTime(input.DateFormat, v.Scalar)

	case models.InputRadio, models.InputDropdown, models.InputSearchSingle:
		if v.Kind == models.AnswerMulti && len(v.Refs) > 0 {
			return v.Refs[0], nil
		}
		return v.Scalar, nil

	case models.InputCheckbox, models.InputSearchMultiple:
		// Selection order is not part of the value; sort so the same set
		// compares equal however the client ordered it.
		refs := append([]string(nil), v.Refs...)
		sort.Strings(refs)
		return strings.Join(refs, ","), nil

	case models.InputPhoto, models.InputAudio, models.InputVideo:
		return v.Scalar, nil
	}

	return "", fmt.Errorf("input type %s is not comparable", input.Type)
}

// normalizePhone keeps digits and a leading plus only.
func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeDate canonicalizes to ISO YYYY-MM-DD. Partial display formats
// leave the missing components at their parse defaults, which is stable
// within one input.
func normalizeDate(format, value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range isoInstants {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	if layout, ok := dateLayouts[format]; ok {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	// Unknown display format: try the accepted layouts in a fixed order
	// before giving up.
	for _, layout := range dateFallbackOrder {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("date answer %q does not match any accepted format", value)
}

// normalizeTime canonicalizes to HH:mm:ss, zero-filling the components a
// partial display format omits.
func normalizeTime(format, value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range isoInstants[:3] {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	if layout, ok := timeLayouts[format]; ok {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	for _, layout := range timeFallbackOrder {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("time answer %q does not match any accepted format", value)
}
