// Package document renders ticket and restaurant order PDFs and keeps them
// on disk.
package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// Renderer produces A4 PDFs.  The zero value is ready to use.
type Renderer struct {
	// Title is printed in the page header.
	Title string
}

func (r Renderer) title() string {
	if r.Title == "" {
		return "Resort"
	}
	return r.Title
}

// Ticket renders the proof of stay from the ticket snapshot only.
func (r Renderer) Ticket(t model.Ticket) ([]byte, error) {
	d := newDoc(r.title(), "Ticket "+t.Number)

	d.section("Stay")
	d.row("Reservation", fmt.Sprintf("#%d", t.ReservationID))
	d.row("Room", fmt.Sprintf("%s (%s)", t.RoomName, t.RoomNumber))
	d.row("Plan", string(t.RoomPlan))
	d.row("Check-in", t.CheckIn.Format(model.DateLayout))
	d.row("Check-out", t.CheckOut.Format(model.DateLayout))
	d.row("Nights", fmt.Sprintf("%d", t.Nights))
	d.row("Nightly rate", money(t.NightlyRateCents))
	d.row("Total", money(t.TotalCents))

	d.section("Guest")
	d.row("Name", t.GuestName)
	d.row("Document", t.GuestDocType+" "+t.GuestDocNumber)
	d.row("Phone", t.GuestPhone)
	d.row("Email", t.GuestEmail)
	d.row("Origin", t.GuestOrigin)

	if t.CompanionName != nil && *t.CompanionName != "" {
		d.section("Companion")
		d.row("Name", *t.CompanionName)
		d.row("Document", deref(t.CompanionDocType)+" "+deref(t.CompanionDocNumber))
	}

	d.footer(fmt.Sprintf("Issued %s UTC", t.CreatedAt.UTC().Format("2006-01-02 15:04")))
	return d.bytes()
}

// Order renders a restaurant order with its dish lines.
func (r Renderer) Order(o model.RestaurantOrder) ([]byte, error) {
	d := newDoc(r.title(), "Restaurant order "+o.Number)

	d.section("Reservation")
	d.row("Date", o.ReservedFor.UTC().Format("2006-01-02 15:04"))
	d.row("Party size", fmt.Sprintf("%d", o.PartySize))
	d.row("Status", string(o.Status))

	d.section("Dishes")
	for _, it := range o.Items {
		d.row(fmt.Sprintf("%d x %s", it.Quantity, it.Name), money(it.UnitPriceCents*int64(it.Quantity)))
	}
	d.row("Total", money(o.TotalCents))

	d.footer(fmt.Sprintf("Created %s UTC", o.CreatedAt.UTC().Format("2006-01-02 15:04")))
	return d.bytes()
}

type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDoc(title, heading string) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, d.tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, d.tr(heading), "B", 1, "C", false, 0, "")
	pdf.Ln(4)
	return d
}

func (d *doc) section(name string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.CellFormat(0, 7, d.tr(name), "", 1, "L", false, 0, "")
}

func (d *doc) row(label, value string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(55, 6, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.CellFormat(0, 6, d.tr(value), "", 1, "L", false, 0, "")
}

func (d *doc) footer(text string) {
	d.pdf.Ln(8)
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.CellFormat(0, 5, d.tr(text), "T", 1, "R", false, 0, "")
}

func (d *doc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
