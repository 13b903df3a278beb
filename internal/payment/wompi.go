package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	wompiSandboxURL    = "https://sandbox.wompi.co"
	wompiProductionURL = "https://production.wompi.co"
	wompiSignatureHdr  = "X-Event-Signature"
)

// WompiConfig holds the merchant credentials.
type WompiConfig struct {
	PublicKey    string
	EventsSecret string
	// BaseURL overrides the API host derived from the public key.
	BaseURL string
}

// Wompi adapts Wompi event webhooks and checkout returns.  Webhooks are
// signed with HMAC-SHA256 over the raw body.  Returns are unsigned and are
// confirmed through the transactions API.
type Wompi struct {
	cfg    WompiConfig
	client *http.Client
}

// NewWompi builds the adapter.  A nil client gets a default one; the
// caller bounds verification time through the context.
func NewWompi(cfg WompiConfig, client *http.Client) *Wompi {
	return &Wompi{cfg: cfg, client: defaultClient(client)}
}

func (w *Wompi) Name() string { return "wompi" }

// BaseURL returns the API host: sandbox for pub_test keys, production
// otherwise, unless overridden.
func (w *Wompi) BaseURL() string {
	if w.cfg.BaseURL != "" {
		return strings.TrimRight(w.cfg.BaseURL, "/")
	}
	if strings.HasPrefix(w.cfg.PublicKey, "pub_test") {
		return wompiSandboxURL
	}
	return wompiProductionURL
}

// VerifyAuthenticity checks X-Event-Signature: sha256=<hex hmac>.
func (w *Wompi) VerifyAuthenticity(req *Request) bool {
	if req == nil || req.Kind != Webhook || w.cfg.EventsSecret == "" || len(req.Body) == 0 {
		return false
	}
	sig := strings.TrimSpace(req.Header.Get(wompiSignatureHdr))
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(w.cfg.EventsSecret))
	mac.Write(req.Body)
	return equalHex(mac.Sum(nil), sig)
}

// SignBody returns the header value Wompi would send for body.
func (w *Wompi) SignBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(w.cfg.EventsSecret))
	mac.Write(body)
	return fmt.Sprintf("sha256=%x", mac.Sum(nil))
}

type wompiTransaction struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
}

// ParseCallback reads data.transaction from webhooks and id, reference
// and status from return query strings.
func (w *Wompi) ParseCallback(_ context.Context, req *Request) (Callback, error) {
	var tx wompiTransaction
	switch req.Kind {
	case Webhook:
		var ev struct {
			Event string `json:"event"`
			Data  struct {
				Transaction wompiTransaction `json:"transaction"`
			} `json:"data"`
		}
		if err := json.Unmarshal(req.Body, &ev); err != nil {
			return Callback{}, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		tx = ev.Data.Transaction
	case Return:
		tx = wompiTransaction{
			ID:        req.Query.Get("id"),
			Status:    req.Query.Get("status"),
			Reference: req.Query.Get("reference"),
		}
	}
	return w.callback(tx)
}

// VerifyTransaction fetches GET /v1/transactions/{id}.
func (w *Wompi) VerifyTransaction(ctx context.Context, transactionID string) (Callback, error) {
	var body struct {
		Data wompiTransaction `json:"data"`
	}
	endpoint := w.BaseURL() + "/v1/transactions/" + url.PathEscape(transactionID)
	if err := getJSON(ctx, w.client, endpoint, w.cfg.PublicKey, &body); err != nil {
		return Callback{}, err
	}
	if body.Data.ID == "" {
		body.Data.ID = transactionID
	}
	return w.callback(body.Data)
}

func (w *Wompi) callback(tx wompiTransaction) (Callback, error) {
	cb := Callback{
		Provider:      w.Name(),
		Reference:     tx.Reference,
		RawStatus:     tx.Status,
		Status:        wompiStatus(tx.Status),
		TransactionID: tx.ID,
		AmountCents:   tx.AmountInCents,
		Currency:      strings.ToUpper(tx.Currency),
	}
	id, err := ParseReference(tx.Reference)
	if err != nil {
		return cb, err
	}
	cb.ReservationID = id
	return cb, nil
}

func wompiStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVED":
		return Approved
	case "DECLINED", "ERROR", "VOIDED":
		return Declined
	}
	return Pending
}
