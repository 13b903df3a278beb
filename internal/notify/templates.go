package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

var ticketTmpl = template.Must(template.New("ticket").Parse(`<h2>Your stay is confirmed</h2>
<p>Hello {{.GuestName}},</p>
<p>Your payment was approved. Ticket <strong>{{.Number}}</strong> is attached.</p>
<ul>
<li>Room: {{.RoomName}} (#{{.RoomNumber}}, {{.RoomPlan}})</li>
<li>Check-in: {{.CheckIn}}</li>
<li>Check-out: {{.CheckOut}}</li>
<li>Nights: {{.Nights}}</li>
<li>Total: {{.Total}}</li>
</ul>`))

var reminderTmpl = template.Must(template.New("reminder").Parse(`<h2>{{.Title}}</h2>
<p>Hello {{.Name}},</p>
<p>{{.Message}}</p>
<p>Room #{{.RoomNumber}} · {{.CheckIn}} → {{.CheckOut}}</p>`))

var orderTmpl = template.Must(template.New("order").Parse(`<h2>Restaurant reservation {{.Number}}</h2>
<p>Table for {{.PartySize}} on {{.When}}.</p>
<ul>{{range .Items}}<li>{{.Quantity}} × {{.Name}}</li>{{end}}</ul>
<p>Total: {{.Total}}</p>`))

// FormatCents renders an amount in cents as currency units.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// TicketEmail builds the message sent when a ticket is issued.
func TicketEmail(t model.Ticket) (subject, body string) {
	var buf bytes.Buffer
	_ = ticketTmpl.Execute(&buf, map[string]interface{}{
		"GuestName":  t.GuestName,
		"Number":     t.Number,
		"RoomName":   t.RoomName,
		"RoomNumber": t.RoomNumber,
		"RoomPlan":   t.RoomPlan,
		"CheckIn":    t.CheckIn.Format(model.DateLayout),
		"CheckOut":   t.CheckOut.Format(model.DateLayout),
		"Nights":     t.Nights,
		"Total":      FormatCents(t.TotalCents),
	})
	return "Reservation ticket " + t.Number, buf.String()
}

// Reminder kinds.
const (
	ReminderCheckInTomorrow = "checkin_tomorrow"
	ReminderCheckInToday    = "checkin_today"
	ReminderCheckOutToday   = "checkout_today"
)

// ReminderEmail builds a stay reminder of the given kind.
func ReminderEmail(kind string, a model.Account, r model.Reservation, roomNumber string) (subject, body string) {
	var title, msg string
	switch kind {
	case ReminderCheckInTomorrow:
		title, msg = "See you tomorrow", "Your check-in is tomorrow. We are getting your room ready."
	case ReminderCheckInToday:
		title, msg = "Welcome today", "Your check-in is today. The front desk is expecting you."
	default:
		title, msg = "Check-out today", "Your check-out is today. We hope you enjoyed your stay."
	}
	var buf bytes.Buffer
	_ = reminderTmpl.Execute(&buf, map[string]interface{}{
		"Title":      title,
		"Name":       a.Name,
		"Message":    msg,
		"RoomNumber": roomNumber,
		"CheckIn":    r.CheckIn.Format(model.DateLayout),
		"CheckOut":   r.EffectiveCheckOut().Format(model.DateLayout),
	})
	return title, buf.String()
}

// OrderEmail builds the restaurant reservation confirmation.
func OrderEmail(o model.RestaurantOrder) (subject, body string) {
	var buf bytes.Buffer
	_ = orderTmpl.Execute(&buf, map[string]interface{}{
		"Number":    o.Number,
		"PartySize": o.PartySize,
		"When":      o.ReservedFor.Format(time.RFC1123),
		"Items":     o.Items,
		"Total":     FormatCents(o.TotalCents),
	})
	return "Restaurant reservation " + o.Number, buf.String()
}
