package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"os"
	"strconv"

	"github.com/honestmeals/honestmeals/internal/models"
)

type EmailConfig struct {
	From     string
	Password string
	Host     string
	Port     int
}

// sendMail is a variable so tests can intercept the SMTP call
var sendMail = smtp.SendMail

func LoadEmailConfig() (*EmailConfig, error) {
	from := os.Getenv("EMAIL_FROM")
	password := os.Getenv("EMAIL_PASSWORD")
	host := os.Getenv("EMAIL_HOST")
	portStr := os.Getenv("EMAIL_PORT")

	if from == "" || password == "" || host == "" || portStr == "" {
		return nil, fmt.Errorf("email configuration not complete")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EMAIL_PORT: %w", err)
	}

	return &EmailConfig{
		From:     from,
		Password: password,
		Host:     host,
		Port:     port,
	}, nil
}

const orderEmailTemplate = `<html>
<body>
	<h2>Thanks for your order, {{.Name}}!</h2>
	<p>Order <b>{{.OrderID}}</b> is being prepared. Here is what you ordered:</p>
	<table border="1" cellpadding="4">
		<tr><th>Meal</th><th>Qty</th><th>Price</th></tr>
		{{range .Items}}
		<tr><td>{{.MealName}}</td><td>{{.Quantity}}</td><td>&#8377;{{.PriceINR}}</td></tr>
		{{end}}
	</table>
	<p><b>Total: &#8377;{{.Total}}</b></p>
	<p>We will confirm delivery on WhatsApp shortly.</p>
</body>
</html>`

// SendOrderEmail delivers the order confirmation for one OrderEmailPayload
// consumed from Kafka.
func SendOrderEmail(payload []byte) error {
	var order models.OrderEmailPayload
	if err := json.Unmarshal(payload, &order); err != nil {
		return fmt.Errorf("failed to parse order email payload: %w", err)
	}
	if order.To == "" {
		return fmt.Errorf("recipient address is required")
	}

	cfg, err := LoadEmailConfig()
	if err != nil {
		return err
	}

	tmpl, err := template.New("order").Parse(orderEmailTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, order); err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", order.To)
	fmt.Fprintf(&msg, "Subject: Your Honest Meals order %s\r\n", order.OrderID)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)
	if err := sendMail(addr, auth, cfg.From, []string{order.To}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send order email: %w", err)
	}

	slog.Info("Order confirmation email sent", "orderID", order.OrderID, "to", order.To)
	return nil
}
