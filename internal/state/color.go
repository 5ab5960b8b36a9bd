package state

import (
	"image/color"
	"strconv"
	"strings"
)

// ParseColor reads #rgb and #rrggbb colors. Anything else, including the
// empty string, reports false.
func ParseColor(s string) (color.NRGBA, bool) {
	hex, found := strings.CutPrefix(s, "#")
	if !found {
		return color.NRGBA{}, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

// FormatColor is the #rrggbb form of c.
func FormatColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return "#" + hex2(n.R) + hex2(n.G) + hex2(n.B)
}

func hex2(v uint8) string {
	s := strconv.FormatUint(uint64(v), 16)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
