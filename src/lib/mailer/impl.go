package mailer

import (
	"bytes"
	"context"
	"fms/src/lib"
	"fms/src/models"
	"fms/src/types"
	"fmt"
	"log"
	"text/template"
)

type Sender interface {
	Send(ctx context.Context, in *lib.SendMailInput) error
}

// Notifier composes customer e-mails for payment outcomes.
type Notifier struct {
	sender   Sender
	from     string
	fromName string
}

func NewNotifier(sender Sender, from, fromName string) *Notifier {
	return &Notifier{sender: sender, from: from, fromName: fromName}
}

var paymentConfirmedTmpl = template.Must(template.New("payment_confirmed").Parse(
	`Hello {{.Name}},

We received your payment of {{.Amount}} VND for {{.What}} ({{.ReferenceID}}).
Method: {{.Method}}
Payment reference: {{.PaymentID}}

Thank you.
`))

var referenceLabels = map[types.ReferenceType]string{
	types.REFERENCE_ORDER:                "your order",
	types.REFERENCE_BUS_SUBSCRIPTION:     "your bus subscription",
	types.REFERENCE_PARKING_SUBSCRIPTION: "your parking subscription",
	types.REFERENCE_FACILITY_RESERVATION: "your facility reservation",
}

func PaymentConfirmedMessage(user models.User, payment models.Payment) (*lib.SendMailInput, error) {
	var body bytes.Buffer
	err := paymentConfirmedTmpl.Execute(&body, map[string]any{
		"Name":        user.Name,
		"Amount":      payment.Amount,
		"What":        referenceLabels[payment.ReferenceType],
		"ReferenceID": payment.ReferenceID,
		"Method":      payment.Method,
		"PaymentID":   payment.ID,
	})
	if err != nil {
		return nil, err
	}
	return &lib.SendMailInput{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Payment received for %s", referenceLabels[payment.ReferenceType]),
		Body:    body.String(),
	}, nil
}

func (n *Notifier) PaymentConfirmed(ctx context.Context, user models.User, payment models.Payment) error {
	if user.Email == "" {
		log.Printf("[Mailer] user %s has no e-mail, skipping confirmation for %s\n", user.ID, payment.ID)
		return nil
	}
	msg, err := PaymentConfirmedMessage(user, payment)
	if err != nil {
		return err
	}
	msg.From = n.from
	msg.FromName = n.fromName
	if err := n.sender.Send(ctx, msg); err != nil {
		log.Printf("[Mailer] Error sending confirmation for %s: %s\n", payment.ID, err.Error())
		return err
	}
	return nil
}
