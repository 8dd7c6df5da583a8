// Package color maps the color strings found in inline styles and computed
// styles to a canonical upper case "#RRGGBB" form.
package color

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const White = "#FFFFFF"

var named = map[string]string{
	"white":   "#FFFFFF",
	"red":     "#FF0000",
	"green":   "#00FF00",
	"blue":    "#0000FF",
	"yellow":  "#FFFF00",
	"orange":  "#FFA500",
	"purple":  "#800080",
	"pink":    "#FFC0CB",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
	"lime":    "#00FF00",
	"gold":    "#FFD700",
}

var (
	rgbRe  = regexp.MustCompile(`(?i)rgb\s*\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)`)
	rgbaRe = regexp.MustCompile(`(?i)rgba\s*\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*[\d.]+\s*\)`)
)

// Normalize never fails. Unknown formats are returned unchanged.
func Normalize(raw string) string {
	if raw == "" || raw == "transparent" {
		return White
	}

	if hex, ok := named[strings.ToLower(raw)]; ok {
		return hex
	}

	if m := rgbRe.FindStringSubmatch(raw); m != nil {
		if hex, ok := toHex(m[1], m[2], m[3]); ok {
			return hex
		}
	}

	if m := rgbaRe.FindStringSubmatch(raw); m != nil {
		if hex, ok := toHex(m[1], m[2], m[3]); ok {
			return hex
		}
	}

	if strings.HasPrefix(raw, "#") {
		return strings.ToUpper(raw)
	}

	return raw
}

// Channels above 255 are not clamped, they simply render with more digits.
func toHex(r, g, b string) (string, bool) {
	var ch [3]uint64
	for i, s := range []string{r, g, b} {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return "", false
		}
		ch[i] = v
	}
	return fmt.Sprintf("#%02X%02X%02X", ch[0], ch[1], ch[2]), true
}
