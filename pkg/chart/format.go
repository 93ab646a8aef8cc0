package chart

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders v the way a browser's default number-to-string
// conversion does: integers without a fraction, shortest round-tripping
// decimals, and exponent notation outside [1e-6, 1e21).
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := strconv.FormatFloat(v, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

// EncodeRows renders a dataset as delimited text: a "Ticks" header with the
// variable names, then one CRLF-terminated line per row.
func EncodeRows(d *Dataset) string {
	var b strings.Builder
	b.WriteString("Ticks")
	for _, name := range d.VariableNames {
		b.WriteByte(',')
		b.WriteString(name)
	}
	b.WriteString("\n")

	for _, row := range d.Rows {
		b.WriteString(FormatNumber(row.X))
		for _, v := range row.Values {
			b.WriteByte(',')
			b.WriteString(FormatNumber(v))
		}
		b.WriteString("\r\n")
	}
	return b.String()
}
