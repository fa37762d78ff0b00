package certpdf

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce sync.Once
	fonts     map[string]*truetype.Font
	fontsErr  error
)

func loadFonts() (map[string]*truetype.Font, error) {
	fontsOnce.Do(func() {
		fonts = make(map[string]*truetype.Font, 3)
		for name, data := range map[string][]byte{
			"regular": goregular.TTF,
			"bold":    gobold.TTF,
			"italic":  goitalic.TTF,
		} {
			f, err := truetype.Parse(data)
			if err != nil {
				fontsErr = fmt.Errorf("parse %s font: %w", name, err)
				return
			}
			fonts[name] = f
		}
	})
	return fonts, fontsErr
}

func face(f *truetype.Font, size, scale float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size * scale, Hinting: font.HintingFull})
}

func toColor(c rgb) color.Color {
	return color.RGBA{R: uint8(c.r), G: uint8(c.g), B: uint8(c.b), A: 255}
}

// RenderPreview draws the certificate layout as a PNG image. width is the
// image width in pixels; the height keeps the page aspect ratio.
func RenderPreview(c Certificate, width int) ([]byte, error) {
	c, err := c.normalized()
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		width = int(PageWidth)
	}
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}

	scale := float64(width) / PageWidth
	height := int(PageHeight * scale)
	dc := gg.NewContext(width, height)

	dc.SetColor(toColor(lightBlue))
	dc.Clear()

	dc.SetColor(toColor(deepBlue))
	dc.SetLineWidth(4 * scale)
	dc.DrawRectangle(40*scale, 40*scale, (PageWidth-80)*scale, (PageHeight-80)*scale)
	dc.Stroke()
	dc.SetColor(toColor(gold))
	dc.SetLineWidth(2 * scale)
	dc.DrawRectangle(60*scale, 60*scale, (PageWidth-120)*scale, (PageHeight-120)*scale)
	dc.Stroke()

	text := func(s string, y float64, f *truetype.Font, size float64, c rgb) {
		dc.SetFontFace(face(f, size, scale))
		dc.SetColor(toColor(c))
		dc.DrawStringAnchored(s, float64(width)/2, y*scale, 0.5, 0)
	}
	text(c.Issuer, 115, fs["bold"], 24, deepBlue)
	text("LEARNING PLATFORM", 135, fs["regular"], 12, softGray)
	text("CERTIFICATE OF COMPLETION", 195, fs["bold"], 36, deepBlue)
	text("This is to proudly certify that", 250, fs["regular"], 16, softGray)
	text(c.UserName, 295, fs["italic"], 32, black)
	text("has successfully completed the comprehensive course", 340, fs["regular"], 16, softGray)
	text(c.CourseName, 380, fs["bold"], 24, deepBlue)
	text("Completed on "+c.Date(), 410, fs["regular"], 14, softGray)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
