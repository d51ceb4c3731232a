package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Colors used by the built-in element renderings.
var (
	White       = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Transparent = color.NRGBA{}

	chartBarColor   = mustColor("#3b82f6")
	chartLabelColor = mustColor("#374151")
	placeholderGray = mustColor("#6b7280")
	imageEmptyGray  = mustColor("#9ca3af")
	tableHeaderBg   = mustColor("#f9fafb")
	tableBorder     = mustColor("#e5e7eb")
	quoteBorder     = mustColor("#60a5fa")
	quoteText       = mustColor("#374151")
	selectionBlue   = mustColor("#3b82f6")
	deleteRed       = mustColor("#ef4444")
	gridDot         = mustColor("#e5e7eb")
	emojiBadge      = mustColor("#fbbf24")
	emojiBadgeEdge  = mustColor("#d97706")

	chartPalette = []color.NRGBA{
		mustColor("#3b82f6"),
		mustColor("#10b981"),
		mustColor("#f59e0b"),
		mustColor("#ef4444"),
		mustColor("#8b5cf6"),
		mustColor("#06b6d4"),
	}
)

var namedColors = map[string]color.NRGBA{
	"transparent": Transparent,
	"white":       White,
	"black":       {A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"orange":      {R: 0xff, G: 0xa5, A: 0xff},
	"purple":      {R: 0x80, B: 0x80, A: 0xff},
}

// ParseColor parses a CSS color: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(),
// rgba() or a basic color name.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if hex, ok := strings.CutPrefix(v, "#"); ok {
		return parseHex(hex)
	}
	if args, ok := cutFunc(v, "rgba"); ok {
		return parseRGB(args, true)
	}
	if args, ok := cutFunc(v, "rgb"); ok {
		return parseRGB(args, false)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color %q", s)
}

// colorOr returns the parsed color, or fallback when s is empty or invalid.
func colorOr(s string, fallback color.NRGBA) color.NRGBA {
	if s == "" {
		return fallback
	}
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func mustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(hex string) (color.NRGBA, error) {
	switch len(hex) {
	case 3, 4:
		// Expand #rgb to #rrggbb.
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", hex)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", hex)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func cutFunc(v, name string) (string, bool) {
	rest, ok := strings.CutPrefix(v, name+"(")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ")")
}

func parseRGB(args string, alpha bool) (color.NRGBA, error) {
	parts := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid rgb color %q", args)
	}
	var ch [3]uint8
	for i := range ch {
		n, err := parseChannel(parts[i])
		if err != nil {
			return color.NRGBA{}, err
		}
		ch[i] = n
	}
	c := color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}
	if len(parts) == 4 {
		a, err := parseAlpha(parts[3])
		if err != nil {
			return color.NRGBA{}, err
		}
		c.A = a
	} else if alpha {
		return color.NRGBA{}, fmt.Errorf("rgba color %q needs an alpha", args)
	}
	return c, nil
}

func parseChannel(s string) (uint8, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid color channel %q", s)
		}
		return clamp8(f * 255 / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid color channel %q", s)
	}
	return clamp8(f), nil
}

func parseAlpha(s string) (uint8, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid alpha %q", s)
		}
		return clamp8(f * 255 / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid alpha %q", s)
	}
	return clamp8(f * 255), nil
}

func clamp8(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	default:
		return uint8(f + 0.5)
	}
}
