package telegram

import "encoding/json"

// Update is a Bot API webhook update, reduced to the fields the payment flow
// consumes.
type Update struct {
	UpdateID         int64             `json:"update_id"`
	Message          *Message          `json:"message,omitempty"`
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query,omitempty"`
}

// Message is an incoming chat message.
type Message struct {
	From              *User              `json:"from,omitempty"`
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment,omitempty"`
}

// User identifies a Telegram account.
type User struct {
	ID int64 `json:"id"`
}

// PreCheckoutQuery asks the bot to approve a pending payment.
type PreCheckoutQuery struct {
	ID       string `json:"id"`
	From     *User  `json:"from,omitempty"`
	Currency string `json:"currency"`
	Total    int    `json:"total_amount"`
	Payload  string `json:"invoice_payload"`
}

// SuccessfulPayment confirms a completed payment.
type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int    `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	ProviderPaymentChargeID string `json:"provider_payment_charge_id"`
}

// Raw re-serializes a payment confirmation for the audit log.
func (p *SuccessfulPayment) Raw() json.RawMessage {
	if p == nil {
		return nil
	}
	raw, errMarshal := json.Marshal(p)
	if errMarshal != nil {
		return nil
	}
	return raw
}
