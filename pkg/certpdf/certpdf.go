// Package certpdf draws course completion certificates.
package certpdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// A4 landscape in points.
const (
	PageWidth  = 842.0
	PageHeight = 595.0
)

var ErrMissingField = errors.New("certpdf: learner and course names are required")

// Certificate holds what is printed on a certificate.
type Certificate struct {
	ID         string
	UserName   string
	CourseName string
	Issuer     string
	IssuedAt   time.Time
}

func (c Certificate) normalized() (Certificate, error) {
	c.UserName = strings.TrimSpace(c.UserName)
	c.CourseName = strings.TrimSpace(c.CourseName)
	if c.UserName == "" || c.CourseName == "" {
		return c, ErrMissingField
	}
	if strings.TrimSpace(c.Issuer) == "" {
		c.Issuer = "LEAP"
	}
	if c.IssuedAt.IsZero() {
		c.IssuedAt = time.Now()
	}
	return c, nil
}

// Date is the completion date as printed.
func (c Certificate) Date() string {
	return c.IssuedAt.Format("January 2, 2006")
}

type rgb struct{ r, g, b int }

var (
	deepBlue  = rgb{26, 51, 102}
	gold      = rgb{204, 153, 51}
	softGray  = rgb{102, 102, 102}
	black     = rgb{0, 0, 0}
	lightBlue = rgb{240, 246, 255}
)

type page struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (p page) fill(c rgb)  { p.pdf.SetFillColor(c.r, c.g, c.b) }
func (p page) draw(c rgb)  { p.pdf.SetDrawColor(c.r, c.g, c.b) }
func (p page) color(c rgb) { p.pdf.SetTextColor(c.r, c.g, c.b) }

// centered writes text horizontally centered with its baseline at y.
func (p page) centered(text string, y float64, family, style string, size float64, c rgb) {
	p.pdf.SetFont(family, style, size)
	p.color(c)
	s := p.tr(text)
	w := p.pdf.GetStringWidth(s)
	p.pdf.Text((PageWidth-w)/2, y, s)
}

// Render draws the certificate as a one page PDF.
func Render(c Certificate) ([]byte, error) {
	c, err := c.normalized()
	if err != nil {
		return nil, err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageHeight, Ht: PageWidth},
	})
	pdf.SetTitle(fmt.Sprintf("%s Certificate - %s", c.Issuer, c.CourseName), true)
	pdf.SetAuthor(c.Issuer, true)
	pdf.SetCreator("leap-server", true)
	pdf.SetCreationDate(c.IssuedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	p := page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	p.fill(lightBlue)
	pdf.Rect(0, 0, PageWidth, PageHeight, "F")

	p.draw(deepBlue)
	pdf.SetLineWidth(4)
	pdf.Rect(40, 40, PageWidth-80, PageHeight-80, "D")
	p.draw(gold)
	pdf.SetLineWidth(2)
	pdf.Rect(60, 60, PageWidth-120, PageHeight-120, "D")

	p.fill(gold)
	const corner = 40.0
	for _, pos := range [][2]float64{
		{80, 80}, {PageWidth - 80 - corner, 80},
		{80, PageHeight - 82}, {PageWidth - 80 - corner, PageHeight - 82},
	} {
		pdf.Rect(pos[0], pos[1], corner, 2, "F")
	}

	p.centered(c.Issuer, 115, "Helvetica", "B", 24, deepBlue)
	p.centered("LEARNING PLATFORM", 135, "Helvetica", "", 12, softGray)
	p.centered("CERTIFICATE OF COMPLETION", 195, "Times", "B", 36, deepBlue)

	p.draw(gold)
	pdf.SetLineWidth(1.5)
	pdf.Line(PageWidth/2-150, 212, PageWidth/2+150, 212)

	p.centered("This is to proudly certify that", 250, "Helvetica", "", 16, softGray)
	p.centered(c.UserName, 295, "Helvetica", "BI", 32, black)
	p.centered("has successfully completed the comprehensive course", 340, "Helvetica", "", 16, softGray)
	p.centered(c.CourseName, 380, "Helvetica", "B", 24, deepBlue)
	p.centered("Completed on "+c.Date(), 410, "Helvetica", "", 14, softGray)

	pdf.SetFont("Helvetica", "", 12)
	p.color(softGray)
	pdf.Text(110, 470, "Date of Completion:")
	pdf.Text(PageWidth-300, 470, "Certified by:")
	pdf.SetFont("Helvetica", "B", 14)
	p.color(black)
	pdf.Text(110, 490, p.tr(c.Date()))
	pdf.Text(PageWidth-300, 490, p.tr(c.Issuer+" Learning Platform"))

	if c.ID != "" {
		p.centered("Certificate ID: "+c.ID, PageHeight-75, "Helvetica", "", 9, softGray)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
