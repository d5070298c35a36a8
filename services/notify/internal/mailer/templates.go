package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// BookingDetails is what the booking emails render.
type BookingDetails struct {
	Name      string
	Email     string
	BookingID string
	Date      string
	StartTime string
}

func (d BookingDetails) when() string {
	if d.Date == "" {
		return "your requested slot"
	}
	return fmt.Sprintf("%s at %s", d.Date, d.StartTime)
}

var bookingHTML = template.Must(template.New("booking").Parse(`
<h2>{{.Heading}}</h2>
<p>Hi {{.Name}},</p>
<p>{{.Body}}</p>
<p>Booking reference: <strong>{{.BookingID}}</strong></p>
`))

func render(d BookingDetails, heading, body string) (string, error) {
	var buf bytes.Buffer
	err := bookingHTML.Execute(&buf, struct {
		BookingDetails
		Heading string
		Body    string
	}{d, heading, body})
	return buf.String(), err
}

func compose(d BookingDetails, subject, heading, body string) (Message, error) {
	html, err := render(d, heading, body)
	if err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Message{
		ToEmail: d.Email,
		ToName:  d.Name,
		Subject: subject,
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n\nBooking reference: %s", d.Name, body, d.BookingID),
		HTML:    html,
	}, nil
}

func ReservationReceived(d BookingDetails) (Message, error) {
	return compose(d, "We received your demo request", "Request received",
		fmt.Sprintf("Your demo request for %s is pending review. We will email you once it is confirmed.", d.when()))
}

func BookingApproved(d BookingDetails) (Message, error) {
	return compose(d, "Your demo is scheduled", "Demo scheduled",
		fmt.Sprintf("Good news: your demo on %s is confirmed.", d.when()))
}

func BookingDenied(d BookingDetails) (Message, error) {
	return compose(d, "Your demo request", "Request declined",
		fmt.Sprintf("Unfortunately we cannot host your demo on %s. Feel free to pick another slot.", d.when()))
}
