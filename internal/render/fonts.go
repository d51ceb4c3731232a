package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FontStyle selects one of the loaded faces.
type FontStyle int

// Font styles.
const (
	Regular FontStyle = iota
	Bold
	Italic
	Emoji
	numFontStyles
)

// fontSet holds the parsed fonts. It is immutable and shared by every
// canvas; faces are per canvas because opentype faces are not safe for
// concurrent use.
type fontSet struct {
	fonts [numFontStyles]*opentype.Font
}

func loadFonts(emojiPath string) (*fontSet, error) {
	fs := &fontSet{}
	for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse built-in font: %w", err)
		}
		fs.fonts[i] = f
	}
	if emojiPath != "" {
		data, err := os.ReadFile(emojiPath) //nolint:gosec // G304: operator supplied font path
		if err != nil {
			return nil, fmt.Errorf("failed to read emoji font: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse emoji font %s: %w", emojiPath, err)
		}
		fs.fonts[Emoji] = f
	}
	return fs, nil
}

// has reports whether a font for style is loaded.
func (fs *fontSet) has(style FontStyle) bool {
	return style >= 0 && style < numFontStyles && fs.fonts[style] != nil
}

// covers reports whether the font for style has a glyph for every visible
// rune of s. Joiners and variation selectors are ignored.
func (fs *fontSet) covers(style FontStyle, s string) bool {
	if !fs.has(style) || s == "" {
		return false
	}
	var buf sfnt.Buffer
	for _, r := range s {
		if r == 0x200d || (r >= 0xfe00 && r <= 0xfe0f) {
			continue
		}
		if i, err := fs.fonts[style].GlyphIndex(&buf, r); err != nil || i == 0 {
			return false
		}
	}
	return true
}

type faceKey struct {
	style FontStyle
	px    float64
}

// face returns a face of px device pixels, created on first use.
func (c *Canvas) face(style FontStyle, px float64) font.Face {
	key := faceKey{style, px}
	if f, ok := c.faces[key]; ok {
		return f
	}
	src := c.fonts.fonts[Regular]
	if c.fonts.has(style) {
		src = c.fonts.fonts[style]
	}
	var f font.Face = basicfont.Face7x13
	if src != nil && px > 0 {
		if of, err := opentype.NewFace(src, &opentype.FaceOptions{Size: px, DPI: 72, Hinting: font.HintingNone}); err == nil {
			f = of
		}
	}
	c.faces[key] = f
	return f
}
