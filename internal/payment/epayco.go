package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const epaycoValidationURL = "https://secure.epayco.co"

// EpaycoConfig holds the merchant credentials.
type EpaycoConfig struct {
	CustomerID string // p_cust_id_cliente
	PKey       string // p_key
	PublicKey  string // checkout script key
	Test       bool
	BaseURL    string
}

// Epayco adapts ePayco confirmations (form posts, occasionally JSON) and
// response-page returns.  The signature is a digest over
// p_cust_id^p_key^x_ref_payco^x_transaction_id^x_amount^x_currency_code.
// It does not cover the transaction state or the invoice, so every
// callback is confirmed against the validation API by x_ref_payco.
type Epayco struct {
	cfg    EpaycoConfig
	client *http.Client
}

// NewEpayco builds the adapter.
func NewEpayco(cfg EpaycoConfig, client *http.Client) *Epayco {
	return &Epayco{cfg: cfg, client: defaultClient(client)}
}

func (e *Epayco) Name() string { return "epayco" }

// VerifyAuthenticity accepts SHA-256 signatures and the legacy MD5 form.
// Every component of the canonical string must be present.
func (e *Epayco) VerifyAuthenticity(req *Request) bool {
	if req == nil || e.cfg.CustomerID == "" || e.cfg.PKey == "" {
		return false
	}
	f, err := epaycoFields(req)
	if err != nil {
		return false
	}
	parts := []string{e.cfg.CustomerID, e.cfg.PKey,
		f["x_ref_payco"], f["x_transaction_id"], f["x_amount"], f["x_currency_code"]}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	sig := f["x_signature"]
	if sig == "" {
		return false
	}
	canonical := []byte(strings.Join(parts, "^"))
	sum256 := sha256.Sum256(canonical)
	if equalHex(sum256[:], sig) {
		return true
	}
	sum5 := md5.Sum(canonical)
	return equalHex(sum5[:], sig)
}

// Sign returns the SHA-256 signature ePayco computes for the fields.
func (e *Epayco) Sign(refPayco, transactionID, amount, currency string) string {
	sum := sha256.Sum256([]byte(strings.Join(
		[]string{e.cfg.CustomerID, e.cfg.PKey, refPayco, transactionID, amount, currency}, "^")))
	return fmt.Sprintf("%x", sum)
}

// ParseCallback reads the x_* fields.  The result is always marked for
// lookup: state and invoice are informational until the validation API
// confirms them.  A response-page return that only carries ref_payco
// has no reference of its own.
func (e *Epayco) ParseCallback(_ context.Context, req *Request) (Callback, error) {
	f, err := epaycoFields(req)
	if err != nil {
		return Callback{}, err
	}
	if f["x_ref_payco"] == "" && f["x_transaction_state"] == "" && f["x_cod_transaction_state"] == "" {
		if ref := f["ref_payco"]; ref != "" {
			return Callback{Provider: e.Name(), TransactionID: ref, Status: Pending, NeedsLookup: true}, nil
		}
	}
	cb, err := e.callback(f)
	if f["x_ref_payco"] != "" {
		cb.TransactionID = f["x_ref_payco"]
		cb.NeedsLookup = true
		if errors.Is(err, ErrUnrecognizedReference) {
			// The validation API decides whether the payment is ours.
			err = nil
		}
	}
	return cb, err
}

// VerifyTransaction queries the validation API by ref_payco.
func (e *Epayco) VerifyTransaction(ctx context.Context, refPayco string) (Callback, error) {
	base := epaycoValidationURL
	if e.cfg.BaseURL != "" {
		base = strings.TrimRight(e.cfg.BaseURL, "/")
	}
	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := getJSON(ctx, e.client, base+"/validation/v1/reference/"+url.PathEscape(refPayco), "", &body); err != nil {
		return Callback{}, err
	}
	if !body.Success || body.Data == nil {
		return Callback{}, fmt.Errorf("epayco validation failed for %s", refPayco)
	}
	f := make(map[string]string, len(body.Data))
	for k, v := range body.Data {
		f[k] = stringify(v)
	}
	return e.callback(f)
}

func (e *Epayco) callback(f map[string]string) (Callback, error) {
	raw := f["x_cod_transaction_state"]
	if raw == "" {
		raw = f["x_transaction_state"]
	}
	cb := Callback{
		Provider:      e.Name(),
		RawStatus:     raw,
		Status:        epaycoStatus(f["x_cod_transaction_state"], f["x_transaction_state"]),
		TransactionID: f["x_ref_payco"],
	}
	if cb.TransactionID == "" {
		cb.TransactionID = f["x_transaction_id"]
	}
	if cents, err := ParseAmount(f["x_amount"]); err == nil {
		cb.AmountCents = cents
		cb.Currency = strings.ToUpper(f["x_currency_code"])
	}
	for _, key := range []string{"x_extra1", "x_id_invoice", "x_invoice_id", "invoice", "external_reference", "ref"} {
		v := f[key]
		if v == "" {
			continue
		}
		if cb.Reference == "" {
			cb.Reference = v
		}
		if id, err := ParseReference(v); err == nil {
			cb.Reference = v
			cb.ReservationID = id
			return cb, nil
		}
	}
	return cb, ErrUnrecognizedReference
}

func epaycoStatus(code, text string) Status {
	switch strings.TrimSpace(code) {
	case "1":
		return Approved
	case "2", "4", "6", "9", "10", "11":
		return Declined
	case "3", "7", "8":
		return Pending
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "aceptada", "approved", "success":
		return Approved
	case "rechazada", "rejected", "failure", "fallida", "cancelada", "abandonada", "reversada":
		return Declined
	}
	return Pending
}

// epaycoFields merges the query string, the form body and, when the body
// is JSON, its top level values.
func epaycoFields(req *Request) (map[string]string, error) {
	f := map[string]string{}
	for k, v := range req.Query {
		if len(v) > 0 {
			f[k] = strings.TrimSpace(v[0])
		}
	}
	for k, v := range req.Form {
		if len(v) > 0 {
			f[k] = strings.TrimSpace(v[0])
		}
	}
	body := bytes.TrimSpace(req.Body)
	if len(req.Form) == 0 && len(body) > 0 {
		if body[0] == '{' {
			var m map[string]interface{}
			dec := json.NewDecoder(bytes.NewReader(body))
			dec.UseNumber()
			if err := dec.Decode(&m); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
			}
			for k, v := range m {
				f[k] = stringify(v)
			}
		} else if vals, err := url.ParseQuery(string(body)); err == nil {
			for k, v := range vals {
				if len(v) > 0 {
					f[k] = strings.TrimSpace(v[0])
				}
			}
		}
	}
	return f, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%f", t), ".000000")
	default:
		return fmt.Sprint(t)
	}
}
