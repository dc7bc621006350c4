package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/i18n"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
)

// OrderLine is one row of the order table
type OrderLine struct {
	Name      string
	Quantity  int
	UnitPrice pricing.Money
	LineTotal pricing.Money
}

// OrderConfirmation is everything the confirmation email shows
type OrderConfirmation struct {
	Language        appstate.Language
	OrderID         string
	CustomerName    string
	Lines           []OrderLine
	Summary         pricing.Summary
	PaymentMethod   string
	DeliveryAddress string
}

// NewOrderConfirmation builds the email content for a placed order, written
// in lang
func NewOrderConfirmation(e order.OrderPlaced, customerName string, lang appstate.Language) OrderConfirmation {
	lines := make([]OrderLine, len(e.Items))
	for i, item := range e.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		lines[i] = OrderLine{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price.Mul(item.Quantity),
		}
	}
	return OrderConfirmation{
		Language:        lang,
		OrderID:         e.OrderID,
		CustomerName:    customerName,
		Lines:           lines,
		Summary:         e.Summary,
		PaymentMethod:   e.PaymentMethod.DisplayName(),
		DeliveryAddress: e.DeliveryAddress,
	}
}

// Subject is the confirmation subject line
func (c OrderConfirmation) Subject() string {
	return i18n.T(c.Language, "orderConfirmedSubject", shortID(c.OrderID))
}

// OrderCancellation is the content of the cancellation notice
type OrderCancellation struct {
	Language     appstate.Language
	OrderID      string
	CustomerName string
	Reason       string
}

func (c OrderCancellation) Subject() string {
	return i18n.T(c.Language, "orderCancelledSubject", shortID(c.OrderID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var funcs = template.FuncMap{
	"rand":    i18n.Default().Money,
	"shortID": shortID,
	"t":       i18n.T,
}

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="{{.Language.Tag}}">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #4CAF50; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">{{t .Language "thankYou"}}</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">{{if .CustomerName}}{{t .Language "greeting" .CustomerName}}{{else}}{{t .Language "greetingAnonymous"}}{{end}}, {{t .Language "orderReceived"}}</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">{{t .Language "orderNumber"}}</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">#{{shortID .OrderID}}</p>
		</div>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left;">{{t .Language "item"}}</th>
					<th style="padding: 12px; text-align: center;">{{t .Language "quantity"}}</th>
					<th style="padding: 12px; text-align: right;">{{t .Language "price"}}</th>
					<th style="padding: 12px; text-align: right;">{{t .Language "total"}}</th>
				</tr>
			</thead>
			<tbody>
				{{- range .Lines}}
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Name}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{rand $.Language .UnitPrice}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{rand $.Language .LineTotal}}</td>
				</tr>
				{{- end}}
			</tbody>
		</table>

		<table style="width: 100%; border-collapse: collapse; background: #f8f9fa; border-radius: 5px;">
			<tr><td style="padding: 8px 20px;">{{t .Language "subtotal"}}</td><td style="padding: 8px 20px; text-align: right;">{{rand .Language .Summary.Subtotal}}</td></tr>
			{{- if .Summary.Savings}}
			<tr><td style="padding: 8px 20px; color: #4CAF50;">{{t .Language "youSaved"}}</td><td style="padding: 8px 20px; text-align: right; color: #4CAF50;">{{rand .Language .Summary.Savings}}</td></tr>
			{{- end}}
			<tr><td style="padding: 8px 20px;">{{t .Language "delivery"}}</td><td style="padding: 8px 20px; text-align: right;">{{if .Summary.DeliveryFee}}{{rand .Language .Summary.DeliveryFee}}{{else}}{{t .Language "free"}}{{end}}</td></tr>
			<tr><td style="padding: 8px 20px;">{{t .Language "tax"}}</td><td style="padding: 8px 20px; text-align: right;">{{rand .Language .Summary.Tax}}</td></tr>
			<tr><td style="padding: 8px 20px; font-weight: bold;">{{t .Language "total"}}</td><td style="padding: 8px 20px; text-align: right; font-size: 20px; font-weight: bold; color: #4CAF50;">{{rand .Language .Summary.Total}}</td></tr>
		</table>

		<p>{{t .Language "payment"}}: {{.PaymentMethod}}<br>{{t .Language "deliveringTo"}}: {{.DeliveryAddress}}</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">{{t .Language "automatedMessage"}}</p>
	</div>
</body>
</html>`))

var cancellationTemplate = template.Must(template.New("cancellation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="{{.Language.Tag}}">
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">{{t .Language "orderCancelledHeading" (shortID .OrderID)}}</h1>
	<p>{{if .CustomerName}}{{t .Language "greeting" .CustomerName}}{{else}}{{t .Language "greetingAnonymous"}}{{end}}, {{t .Language "orderCancelledBody"}}</p>
	{{- if .Reason}}
	<p>{{t .Language "reason"}}: {{.Reason}}</p>
	{{- end}}
	<p style="font-size: 12px; color: #999;">{{t .Language "automatedMessage"}}</p>
</body>
</html>`))

// BuildOrderConfirmationBody renders the HTML body of the confirmation email
func BuildOrderConfirmationBody(c OrderConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render confirmation for %s: %w", c.OrderID, err)
	}
	return buf.String(), nil
}

// BuildOrderCancellationBody renders the HTML body of the cancellation notice
func BuildOrderCancellationBody(c OrderCancellation) (string, error) {
	var buf bytes.Buffer
	if err := cancellationTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render cancellation for %s: %w", c.OrderID, err)
	}
	return buf.String(), nil
}
