// Package asaas is a small client for the Asaas payments API (PIX and card charges).
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Billing types accepted by the API
const (
	BillingPIX        = "PIX"
	BillingCreditCard = "CREDIT_CARD"
)

// Client handles integration with Asaas
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a new Asaas client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.AsaasURL, "/"),
		apiKey:  cfg.AsaasAPIKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Customer is an Asaas customer
type Customer struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	CpfCnpj     string `json:"cpfCnpj"`
	MobilePhone string `json:"mobilePhone,omitempty"`
}

// CreditCard holds raw card data forwarded to the processor, never stored
type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

// CreditCardHolderInfo identifies the card holder for anti-fraud checks
type CreditCardHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone"`
}

// PaymentRequest creates a charge
type PaymentRequest struct {
	Customer             string                `json:"customer"`
	BillingType          string                `json:"billingType"`
	Value                float64               `json:"value"`
	DueDate              string                `json:"dueDate"` // Format: YYYY-MM-DD
	Description          string                `json:"description,omitempty"`
	ExternalReference    string                `json:"externalReference,omitempty"`
	CreditCard           *CreditCard           `json:"creditCard,omitempty"`
	CreditCardHolderInfo *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
	RemoteIP             string                `json:"remoteIp,omitempty"`
}

// Payment is a charge as reported by Asaas
type Payment struct {
	ID                string          `json:"id"`
	Customer          string          `json:"customer"`
	BillingType       string          `json:"billingType"`
	Status            string          `json:"status"`
	Value             decimal.Decimal `json:"value"`
	ExternalReference string          `json:"externalReference,omitempty"`
	InvoiceURL        string          `json:"invoiceUrl,omitempty"`
}

// Confirmed reports whether the money has been received
func (p *Payment) Confirmed() bool {
	switch p.Status {
	case "RECEIVED", "CONFIRMED", "RECEIVED_IN_CASH":
		return true
	}
	return false
}

// Failed reports whether the charge can no longer be paid
func (p *Payment) Failed() bool {
	switch p.Status {
	case "OVERDUE", "REFUNDED", "CHARGEBACK_REQUESTED", "REFUND_REQUESTED":
		return true
	}
	return false
}

// PixQRCode is the PIX copy-and-paste payload and QR image for a charge
type PixQRCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// WebhookEvent is the body Asaas posts to the webhook endpoint
type WebhookEvent struct {
	Event   string   `json:"event"`
	Payment *Payment `json:"payment"`
}

type apiError struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// do sends a JSON request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", common.ErrPaymentProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if json.Unmarshal(raw, &ae) == nil && len(ae.Errors) > 0 {
			descs := make([]string, 0, len(ae.Errors))
			for _, e := range ae.Errors {
				descs = append(descs, e.Description)
			}
			msg = strings.Join(descs, "; ")
		}
		c.log.Warnf("Asaas %s %s failed: %s", method, path, msg)
		return fmt.Errorf("%w: %s", common.ErrPaymentProvider, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreateCustomer registers a customer and returns it with its id
func (c *Client) CreateCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", customer, &out); err != nil {
		return nil, err
	}
	c.log.Infof("Created Asaas customer %s", out.ID)
	return &out, nil
}

// CreatePayment creates a charge
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodPost, "/payments", req, &out); err != nil {
		return nil, err
	}
	c.log.Infof("Created Asaas payment %s (%s, status %s)", out.ID, out.BillingType, out.Status)
	return &out, nil
}

// GetPayment fetches the current state of a charge
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPixQRCode fetches the PIX QR code of a charge
func (c *Client) GetPixQRCode(ctx context.Context, id string) (*PixQRCode, error) {
	var out PixQRCode
	if err := c.do(ctx, http.MethodGet, "/payments/"+id+"/pixQrCode", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
