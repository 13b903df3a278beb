package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
)

const mercadoPagoURL = "https://api.mercadopago.com"

// MercadoPagoConfig holds the merchant credentials.
type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	BaseURL       string
}

// MercadoPago adapts payment notifications and checkout returns.
// Notifications only carry the payment id, so the reference and status
// are always fetched from the payments API.
type MercadoPago struct {
	cfg    MercadoPagoConfig
	client *http.Client
}

// NewMercadoPago builds the adapter.
func NewMercadoPago(cfg MercadoPagoConfig, client *http.Client) *MercadoPago {
	return &MercadoPago{cfg: cfg, client: defaultClient(client)}
}

func (m *MercadoPago) Name() string { return "mercadopago" }

func (m *MercadoPago) baseURL() string {
	if m.cfg.BaseURL != "" {
		return strings.TrimRight(m.cfg.BaseURL, "/")
	}
	return mercadoPagoURL
}

// VerifyAuthenticity checks the x-signature header
// (ts=<ts>,v1=<hex>) against HMAC-SHA256 of the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func (m *MercadoPago) VerifyAuthenticity(req *Request) bool {
	if req == nil || req.Kind != Webhook || m.cfg.WebhookSecret == "" {
		return false
	}
	ts, v1 := parseMPSignature(req.Header.Get("x-signature"))
	if ts == "" || v1 == "" {
		return false
	}
	dataID, _, err := mpNotification(req)
	if err != nil || dataID == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(m.cfg.WebhookSecret))
	mac.Write([]byte(mpManifest(dataID, req.Header.Get("x-request-id"), ts)))
	return equalHex(mac.Sum(nil), v1)
}

// Sign returns the x-signature header value for a notification.
func (m *MercadoPago) Sign(dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(m.cfg.WebhookSecret))
	mac.Write([]byte(mpManifest(dataID, requestID, ts)))
	return fmt.Sprintf("ts=%s,v1=%x", ts, mac.Sum(nil))
}

func mpManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	b.WriteString("id:" + strings.ToLower(dataID) + ";")
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func parseMPSignature(h string) (ts, v1 string) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

// mpNotification returns data.id and the topic of a notification, read
// from the query string first and the JSON body second.
func mpNotification(req *Request) (id, topic string, err error) {
	id = req.Query.Get("data.id")
	topic = req.Query.Get("type")
	if topic == "" {
		topic = req.Query.Get("topic")
	}
	if len(req.Body) > 0 {
		var body struct {
			Type string `json:"type"`
			Data struct {
				ID json.Number `json:"id"`
			} `json:"data"`
		}
		if e := json.Unmarshal(req.Body, &body); e != nil {
			if id == "" {
				return "", "", fmt.Errorf("%w: %v", ErrMalformedCallback, e)
			}
		} else {
			if id == "" {
				id = body.Data.ID.String()
			}
			if topic == "" {
				topic = body.Type
			}
		}
	}
	if id == "" {
		id = req.Query.Get("id")
	}
	return id, topic, nil
}

// ParseCallback handles both notification and return shapes.
func (m *MercadoPago) ParseCallback(_ context.Context, req *Request) (Callback, error) {
	if req.Kind == Webhook {
		id, topic, err := mpNotification(req)
		if err != nil {
			return Callback{}, err
		}
		if id == "" || (topic != "" && topic != "payment") {
			return Callback{Provider: m.Name()}, ErrUnrecognizedReference
		}
		return Callback{Provider: m.Name(), TransactionID: id, Status: Pending, NeedsLookup: true}, nil
	}

	q := req.Query
	raw := q.Get("collection_status")
	if raw == "" {
		raw = q.Get("status")
	}
	txID := q.Get("payment_id")
	if txID == "" {
		txID = q.Get("collection_id")
	}
	ref := q.Get("external_reference")
	if ref == "" {
		ref = q.Get("ref")
	}
	cb := Callback{
		Provider:      m.Name(),
		Reference:     ref,
		RawStatus:     raw,
		Status:        mpStatus(raw),
		TransactionID: txID,
	}
	id, err := ParseReference(ref)
	if err != nil {
		return cb, err
	}
	cb.ReservationID = id
	return cb, nil
}

// VerifyTransaction fetches GET /v1/payments/{id}.
func (m *MercadoPago) VerifyTransaction(ctx context.Context, paymentID string) (Callback, error) {
	var p struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		ExternalReference string      `json:"external_reference"`
		TransactionAmount float64     `json:"transaction_amount"`
		CurrencyID        string      `json:"currency_id"`
	}
	if err := getJSON(ctx, m.client, m.baseURL()+"/v1/payments/"+url.PathEscape(paymentID), m.cfg.AccessToken, &p); err != nil {
		return Callback{}, err
	}
	cb := Callback{
		Provider:      m.Name(),
		Reference:     p.ExternalReference,
		RawStatus:     p.Status,
		Status:        mpStatus(p.Status),
		TransactionID: paymentID,
		AmountCents:   int64(math.Round(p.TransactionAmount * 100)),
		Currency:      strings.ToUpper(p.CurrencyID),
	}
	id, err := ParseReference(p.ExternalReference)
	if err != nil {
		return cb, err
	}
	cb.ReservationID = id
	return cb, nil
}

func mpStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "success":
		return Approved
	case "rejected", "cancelled", "refunded", "charged_back", "failure":
		return Declined
	}
	return Pending
}
