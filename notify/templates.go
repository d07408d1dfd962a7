package notify

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.New("email").Parse(`
{{define "booking_paid_requester"}}
<p>Hola {{.RequesterName}},</p>
<p>Tu pago fue recibido y tu solicitud con <strong>{{.ProviderName}}</strong> quedó confirmada.</p>
<ul>
	<li><strong>Servicio:</strong> {{.Title}}</li>
	{{if .Date}}<li><strong>Fecha:</strong> {{.Date}} {{.Time}}</li>{{end}}
	{{if .Location}}<li><strong>Lugar:</strong> {{.Location}}</li>{{end}}
	<li><strong>Total:</strong> {{.Amount}}</li>
</ul>
<p>Referencias Locales</p>
{{end}}

{{define "booking_paid_provider"}}
<p>Hola {{.ProviderName}},</p>
<p>{{.RequesterName}} pagó y confirmó una solicitud de servicio.</p>
<ul>
	<li><strong>Servicio:</strong> {{.Title}}</li>
	{{if .Date}}<li><strong>Fecha:</strong> {{.Date}} {{.Time}}</li>{{end}}
	{{if .Location}}<li><strong>Lugar:</strong> {{.Location}}</li>{{end}}
	<li><strong>Total:</strong> {{.Amount}}</li>
</ul>
<p>Referencias Locales</p>
{{end}}

{{define "appointment_requester"}}
<p>Hola {{.RequesterName}},</p>
<p>Tu cita con <strong>{{.ProviderName}}</strong> quedó agendada.</p>
<ul>
	<li><strong>Servicio:</strong> {{.Title}}</li>
	<li><strong>Fecha:</strong> {{.Date}}</li>
	<li><strong>Horario:</strong> {{.Time}}{{if .EndTime}} - {{.EndTime}}{{end}}</li>
</ul>
<p>Referencias Locales</p>
{{end}}

{{define "appointment_provider"}}
<p>Hola {{.ProviderName}},</p>
<p>Tienes una nueva cita con {{.RequesterName}}.</p>
<ul>
	<li><strong>Servicio:</strong> {{.Title}}</li>
	<li><strong>Fecha:</strong> {{.Date}}</li>
	<li><strong>Horario:</strong> {{.Time}}{{if .EndTime}} - {{.EndTime}}{{end}}</li>
</ul>
<p>Referencias Locales</p>
{{end}}

{{define "appointment_reminder"}}
<p>Hola {{.RequesterName}},</p>
<p>Te recordamos tu cita con <strong>{{.ProviderName}}</strong> dentro de una hora.</p>
<ul>
	<li><strong>Servicio:</strong> {{.Title}}</li>
	<li><strong>Fecha:</strong> {{.Date}}</li>
	<li><strong>Horario:</strong> {{.Time}}{{if .EndTime}} - {{.EndTime}}{{end}}</li>
</ul>
<p>Si necesitas cancelar, avisa al proveedor lo antes posible.</p>
<p>Referencias Locales</p>
{{end}}
`))

// BookingData fills every booking and appointment template.
type BookingData struct {
	RequesterName string
	ProviderName  string
	Title         string
	Date          string
	Time          string
	EndTime       string
	Location      string
	Amount        string
}

func render(name string, data BookingData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BookingPaidEmails renders the requester and provider emails sent when a
// payment creates a confirmed booking.
func BookingPaidEmails(requesterEmail, providerEmail string, data BookingData) ([]Email, error) {
	toRequester, err := render("booking_paid_requester", data)
	if err != nil {
		return nil, err
	}
	toProvider, err := render("booking_paid_provider", data)
	if err != nil {
		return nil, err
	}
	return []Email{
		{To: requesterEmail, Subject: "Pago recibido: " + data.Title, Body: toRequester},
		{To: providerEmail, Subject: "Nueva solicitud pagada: " + data.Title, Body: toProvider},
	}, nil
}

// AppointmentEmails renders the confirmation to the requester and the notice
// to the provider for a new appointment.
func AppointmentEmails(requesterEmail, providerEmail string, data BookingData) ([]Email, error) {
	toRequester, err := render("appointment_requester", data)
	if err != nil {
		return nil, err
	}
	toProvider, err := render("appointment_provider", data)
	if err != nil {
		return nil, err
	}
	return []Email{
		{To: requesterEmail, Subject: "Cita confirmada: " + data.Title, Body: toRequester},
		{To: providerEmail, Subject: "Nueva cita: " + data.Title, Body: toProvider},
	}, nil
}

func ReminderEmail(requesterEmail string, data BookingData) (Email, error) {
	body, err := render("appointment_reminder", data)
	if err != nil {
		return Email{}, err
	}
	return Email{To: requesterEmail, Subject: "Recordatorio: " + data.Title, Body: body}, nil
}
