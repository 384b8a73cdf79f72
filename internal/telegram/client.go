// Package telegram is a minimal Bot API client covering invoice creation and
// payment-flow acknowledgements, plus the webhook update types the backend
// consumes.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultAPIBase        = "https://api.telegram.org"
	defaultRequestTimeout = 20 * time.Second
)

// ErrBotTokenNotSet indicates the client was built without a token.
var ErrBotTokenNotSet = errors.New("telegram: bot token not set")

// LabeledPrice is one price line on an invoice.
type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Client calls the Telegram Bot API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient constructs a Bot API client.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    defaultAPIBase,
		token:      token,
	}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// call posts a JSON body to a Bot API method and decodes the envelope.
func (c *Client) call(ctx context.Context, method string, body any, result any) error {
	if c == nil || c.token == "" {
		return ErrBotTokenNotSet
	}

	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, errMarshal)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if errReq != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, errReq)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("telegram: %s call: %w", method, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&envelope); errDecode != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, errDecode)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: %s rejected: %s", method, envelope.Description)
	}
	if result != nil {
		if errUnmarshal := json.Unmarshal(envelope.Result, result); errUnmarshal != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, errUnmarshal)
		}
	}
	return nil
}

// createInvoiceLinkRequest maps the createInvoiceLink method body.
type createInvoiceLinkRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Payload     string         `json:"payload"`
	Currency    string         `json:"currency"`
	Prices      []LabeledPrice `json:"prices"`
}

// CreateInvoiceLink creates a payment invoice and returns its URL.
func (c *Client) CreateInvoiceLink(ctx context.Context, title, description, payload, currency string, prices []LabeledPrice) (string, error) {
	var link string
	errCall := c.call(ctx, "createInvoiceLink", createInvoiceLinkRequest{
		Title:       title,
		Description: description,
		Payload:     payload,
		Currency:    currency,
		Prices:      prices,
	}, &link)
	if errCall != nil {
		return "", errCall
	}
	return link, nil
}

// answerPreCheckoutRequest maps the answerPreCheckoutQuery method body.
type answerPreCheckoutRequest struct {
	PreCheckoutQueryID string `json:"pre_checkout_query_id"`
	OK                 bool   `json:"ok"`
}

// AnswerPreCheckoutQuery approves or rejects a pending checkout.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool) error {
	return c.call(ctx, "answerPreCheckoutQuery", answerPreCheckoutRequest{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
	}, nil)
}
