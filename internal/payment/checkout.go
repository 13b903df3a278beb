package payment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const wompiCheckoutURL = "https://checkout.wompi.co/p/"

// CheckoutOrder is the charge a checkout is started for.
type CheckoutOrder struct {
	ReservationID uint64
	AmountCents   int64
	Currency      string
	Title         string
	Description   string
	BuyerEmail    string
}

// CheckoutURLs are the endpoints a provider calls back once the guest
// has paid.
type CheckoutURLs struct {
	Return  string // browser redirect
	Webhook string // server to server notification
}

// Checkout is what the client needs to send the guest to the provider.
// Either RedirectURL is followed directly or Params feed the provider's
// embedded checkout widget.
type Checkout struct {
	Provider    string            `json:"provider"`
	Reference   string            `json:"reference"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Params      map[string]string `json:"params"`
}

// Initiator is implemented by providers that can start a payment.
type Initiator interface {
	StartCheckout(ctx context.Context, order CheckoutOrder, urls CheckoutURLs) (Checkout, error)
}

func (o CheckoutOrder) currency() string {
	if o.Currency == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(o.Currency)
}

// StartCheckout returns the parameters of the Wompi web checkout.
func (w *Wompi) StartCheckout(_ context.Context, o CheckoutOrder, urls CheckoutURLs) (Checkout, error) {
	ref := Reference(o.ReservationID)
	cents := strconv.FormatInt(o.AmountCents, 10)
	q := url.Values{
		"public-key":      {w.cfg.PublicKey},
		"currency":        {o.currency()},
		"amount-in-cents": {cents},
		"reference":       {ref},
		"redirect-url":    {urls.Return},
	}
	return Checkout{
		Provider:    w.Name(),
		Reference:   ref,
		RedirectURL: wompiCheckoutURL + "?" + q.Encode(),
		Params: map[string]string{
			"public_key":      w.cfg.PublicKey,
			"currency":        o.currency(),
			"amount_in_cents": cents,
			"reference":       ref,
			"redirect_url":    urls.Return,
		},
	}, nil
}

// StartCheckout returns the parameters of the ePayco checkout script.
// The invoice and extra1 both carry the reservation reference.
func (e *Epayco) StartCheckout(_ context.Context, o CheckoutOrder, urls CheckoutURLs) (Checkout, error) {
	ref := Reference(o.ReservationID)
	return Checkout{
		Provider:  e.Name(),
		Reference: ref,
		Params: map[string]string{
			"key":           e.cfg.PublicKey,
			"test":          strconv.FormatBool(e.cfg.Test),
			"name":          o.Title,
			"description":   o.Description,
			"invoice":       ref,
			"extra1":        ref,
			"amount":        FormatAmount(o.AmountCents),
			"currency":      strings.ToLower(o.currency()),
			"country":       "co",
			"email_billing": o.BuyerEmail,
			"response":      urls.Return,
			"confirmation":  urls.Webhook,
		},
	}, nil
}

type mpPreference struct {
	Items             []mpItem          `json:"items"`
	ExternalReference string            `json:"external_reference"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	Payer             *mpPayer          `json:"payer,omitempty"`
}

type mpItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type mpPayer struct {
	Email string `json:"email"`
}

// StartCheckout creates a Checkout Pro preference and returns its init
// point.
func (m *MercadoPago) StartCheckout(ctx context.Context, o CheckoutOrder, urls CheckoutURLs) (Checkout, error) {
	if m.cfg.AccessToken == "" {
		return Checkout{}, fmt.Errorf("%s: access token not configured", m.Name())
	}
	ref := Reference(o.ReservationID)
	back := func(status string) string {
		return withQuery(urls.Return, url.Values{"status": {status}, "ref": {ref}})
	}
	pref := mpPreference{
		Items: []mpItem{{
			Title:      o.Title,
			Quantity:   1,
			CurrencyID: o.currency(),
			UnitPrice:  float64(o.AmountCents) / 100,
		}},
		ExternalReference: ref,
		BackURLs: map[string]string{
			"success": back("success"),
			"failure": back("failure"),
			"pending": back("pending"),
		},
		AutoReturn:      "approved",
		NotificationURL: urls.Webhook,
	}
	if o.BuyerEmail != "" {
		pref.Payer = &mpPayer{Email: o.BuyerEmail}
	}
	var created struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	if err := postJSON(ctx, m.client, m.baseURL()+"/checkout/preferences", m.cfg.AccessToken, pref, &created); err != nil {
		return Checkout{}, err
	}
	redirect := created.InitPoint
	if redirect == "" {
		redirect = created.SandboxInitPoint
	}
	if redirect == "" {
		return Checkout{}, fmt.Errorf("%s: preference %s has no init point", m.Name(), created.ID)
	}
	return Checkout{
		Provider:    m.Name(),
		Reference:   ref,
		RedirectURL: redirect,
		Params:      map[string]string{"preference_id": created.ID},
	}, nil
}

func withQuery(raw string, q url.Values) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	cur := u.Query()
	for k, v := range q {
		cur[k] = v
	}
	u.RawQuery = cur.Encode()
	return u.String()
}

var (
	_ Initiator = (*Wompi)(nil)
	_ Initiator = (*Epayco)(nil)
	_ Initiator = (*MercadoPago)(nil)
)
