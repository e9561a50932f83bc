package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"techstore/internal/domain"
)

var emailTemplates = template.Must(template.New("email").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("S/ %.2f", v) },
}).Parse(`
{{define "header"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"></head>
<body style="font-family:sans-serif;background:#050510;color:#e2e8f0">
<div style="max-width:600px;margin:0 auto;padding:20px">
<h2 style="color:#00d4ff">{{.Store}}</h2>{{end}}

{{define "footer"}}</div></body></html>{{end}}

{{define "welcome"}}{{template "header" .}}<h1>Welcome to {{.Store}}!</h1>
<p>Hi <strong>{{.Name}}</strong>, your account is ready.</p>{{template "footer"}}{{end}}

{{define "order"}}{{template "header" .}}<h1>Order #{{.Ref}}</h1>
<p>Hi <strong>{{.Name}}</strong>, {{.Lead}}</p>
<table style="width:100%">
<tr><th align="left">Product</th><th>Qty</th><th align="right">Price</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td></tr>
{{end}}<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{money .Order.Total}}</strong></td></tr>
</table>{{template "footer"}}{{end}}

{{define "status"}}{{template "header" .}}<h1>{{.Title}}</h1>
<p>Hi <strong>{{.Name}}</strong>, your order #{{.Ref}} was {{.Lead}}.</p>
<p>Total: {{money .Order.Total}}</p>{{template "footer"}}{{end}}

{{define "reset"}}{{template "header" .}}<h1>Reset your password</h1>
<p>Hi <strong>{{.Name}}</strong>, use the link below within 30 minutes.</p>
<p><a href="{{.Link}}">Reset password</a></p>{{template "footer"}}{{end}}
`))

var statusCopy = map[domain.OrderStatus][2]string{
	domain.OrderStatusConfirmed: {"Your order was confirmed", "confirmed and is being prepared"},
	domain.OrderStatusShipped:   {"Your order is on its way", "shipped and is on its way"},
	domain.OrderStatusDelivered: {"Your order was delivered", "delivered"},
	domain.OrderStatusCancelled: {"Your order was cancelled", "cancelled"},
}

// EmailNotifier sends transactional emails for committed events.
type EmailNotifier struct {
	mailer      Mailer
	store       string
	adminEmail  string
	frontendURL string
}

func NewEmailNotifier(mailer Mailer, adminEmail, frontendURL string) *EmailNotifier {
	return &EmailNotifier{
		mailer:      mailer,
		store:       "TechStore",
		adminEmail:  adminEmail,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Handle(ctx context.Context, event Event) error {
	switch e := event.(type) {
	case UserRegistered:
		return n.send(ctx, e.User.Email, "Welcome to "+n.store, "welcome", map[string]interface{}{
			"Name": e.User.Name,
		})

	case OrderCreated:
		data := map[string]interface{}{
			"Name":  e.CustomerName,
			"Order": e.Order,
			"Ref":   orderRef(e.Order),
			"Lead":  "thanks for your purchase. Here is your summary.",
		}
		if err := n.send(ctx, e.CustomerEmail, "Order confirmation #"+orderRef(e.Order), "order", data); err != nil {
			return err
		}
		if n.adminEmail == "" {
			return nil
		}
		admin := map[string]interface{}{
			"Name":  "admin",
			"Order": e.Order,
			"Ref":   orderRef(e.Order),
			"Lead":  fmt.Sprintf("a new order was placed by %s (%s).", e.CustomerName, e.CustomerEmail),
		}
		subject := fmt.Sprintf("New order #%s: S/ %.2f", orderRef(e.Order), e.Order.Total)
		return n.send(ctx, n.adminEmail, subject, "order", admin)

	case OrderStatusChanged:
		text, ok := statusCopy[e.Status]
		if !ok {
			return nil
		}
		return n.send(ctx, e.CustomerEmail, text[0]+" #"+orderRef(e.Order), "status", map[string]interface{}{
			"Name":  e.CustomerName,
			"Order": e.Order,
			"Ref":   orderRef(e.Order),
			"Title": text[0],
			"Lead":  text[1],
		})

	case PasswordResetRequested:
		return n.send(ctx, e.Email, "Reset your password", "reset", map[string]interface{}{
			"Name": e.Name,
			"Link": n.frontendURL + "/reset-password?token=" + e.Token,
		})
	}
	return nil
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, content string, data map[string]interface{}) error {
	if to == "" {
		return fmt.Errorf("no recipient for %s email", content)
	}
	data["Store"] = n.store

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, content, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", content, err)
	}

	return n.mailer.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: body.String()})
}

// orderRef is the short uppercase reference shown to customers.
func orderRef(order *domain.Order) string {
	id := strings.ToUpper(strings.ReplaceAll(order.ID.String(), "-", ""))
	return id[len(id)-8:]
}
