package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		in     string
		want   uint64
		wantOK bool
	}{
		{"RES-42", 42, true},
		{" RES-7 ", 7, true},
		{"RES-abc", 0, false},
		{"FOO-42", 0, false},
		{"", 0, false},
		{"RES-", 0, false},
		{"RES-0", 0, false},
		{"RES--1", 0, false},
		{"res-42", 0, false},
		{"RES-99999999999999999999999", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseReference(tc.in)
			if !tc.wantOK {
				assert.ErrorIs(t, err, ErrUnrecognizedReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "RES-42", Reference(42))
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(NewWompi(WompiConfig{}, nil), NewEpayco(EpaycoConfig{}, nil), NewMercadoPago(MercadoPagoConfig{}, nil))
	p, err := r.Lookup("Wompi")
	require.NoError(t, err)
	assert.Equal(t, "wompi", p.Name())
	_, err = r.Lookup("paypal")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []string{"epayco", "mercadopago", "wompi"}, r.Names())
}

func wompiWebhook(w *Wompi, body string) *Request {
	h := http.Header{}
	h.Set("X-Event-Signature", w.SignBody([]byte(body)))
	return &Request{Kind: Webhook, Header: h, Body: []byte(body)}
}

func TestWompiSignature(t *testing.T) {
	w := NewWompi(WompiConfig{EventsSecret: "s3cret"}, nil)
	body := `{"event":"transaction.updated","data":{"transaction":{"id":"tx-1","status":"APPROVED","reference":"RES-42"}}}`

	req := wompiWebhook(w, body)
	assert.True(t, w.VerifyAuthenticity(req))

	tampered := *req
	tampered.Body = []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx-1","status":"APPROVED","reference":"RES-43"}}}`)
	assert.False(t, w.VerifyAuthenticity(&tampered), "tampered payload with unchanged signature")

	missing := &Request{Kind: Webhook, Header: http.Header{}, Body: []byte(body)}
	assert.False(t, w.VerifyAuthenticity(missing))

	garbage := wompiWebhook(w, body)
	garbage.Header.Set("X-Event-Signature", "sha256=zz-not-hex")
	assert.False(t, w.VerifyAuthenticity(garbage))

	noSecret := NewWompi(WompiConfig{}, nil)
	assert.False(t, noSecret.VerifyAuthenticity(req))

	cb, err := w.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cb.ReservationID)
	assert.Equal(t, Approved, cb.Status)
	assert.Equal(t, "tx-1", cb.TransactionID)
}

func TestWompiStatusMapping(t *testing.T) {
	for raw, want := range map[string]Status{
		"APPROVED": Approved, "DECLINED": Declined, "ERROR": Declined,
		"VOIDED": Declined, "PENDING": Pending, "": Pending, "weird": Pending,
	} {
		assert.Equal(t, want, wompiStatus(raw), raw)
	}
}

func TestWompiBaseURL(t *testing.T) {
	assert.Equal(t, wompiSandboxURL, NewWompi(WompiConfig{PublicKey: "pub_test_abc"}, nil).BaseURL())
	assert.Equal(t, wompiProductionURL, NewWompi(WompiConfig{PublicKey: "pub_prod_abc"}, nil).BaseURL())
	assert.Equal(t, "http://local", NewWompi(WompiConfig{BaseURL: "http://local/"}, nil).BaseURL())
}

func TestWompiVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/tx-9", r.URL.Path)
		assert.Equal(t, "Bearer pub_test_key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"tx-9","status":"DECLINED","reference":"RES-5"}}`))
	}))
	defer srv.Close()

	w := NewWompi(WompiConfig{PublicKey: "pub_test_key", BaseURL: srv.URL}, srv.Client())
	cb, err := w.VerifyTransaction(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cb.ReservationID)
	assert.Equal(t, Declined, cb.Status)
}

func TestVerifyTransactionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	w := NewWompi(WompiConfig{BaseURL: srv.URL}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := w.VerifyTransaction(ctx, "tx-1")
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestEpaycoSignatureAndParse(t *testing.T) {
	e := NewEpayco(EpaycoConfig{CustomerID: "12345", PKey: "pkey"}, nil)
	form := url.Values{
		"x_ref_payco":             {"987"},
		"x_transaction_id":        {"tx-77"},
		"x_amount":                {"150000"},
		"x_currency_code":         {"COP"},
		"x_cod_transaction_state": {"1"},
		"x_transaction_state":     {"Aceptada"},
		"x_id_invoice":            {"RES-12"},
	}
	form.Set("x_signature", e.Sign("987", "tx-77", "150000", "COP"))
	req := &Request{Kind: Webhook, Form: form}
	assert.True(t, e.VerifyAuthenticity(req))

	cb, err := e.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), cb.ReservationID)
	assert.Equal(t, Approved, cb.Status)
	assert.Equal(t, "987", cb.TransactionID)
	assert.True(t, cb.NeedsLookup, "state and invoice are not signed")
	assert.Equal(t, int64(15000000), cb.AmountCents)
	assert.Equal(t, "COP", cb.Currency)

	form.Set("x_amount", "1")
	assert.False(t, e.VerifyAuthenticity(req), "amount tampered")

	form.Set("x_amount", "")
	assert.False(t, e.VerifyAuthenticity(req), "empty component")
}

func TestEpaycoForgedStateAndInvoiceAreConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validation/v1/reference/987", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"x_ref_payco":987,"x_cod_transaction_state":2,` +
			`"x_transaction_state":"Rechazada","x_id_invoice":"RES-12","x_amount":"150000","x_currency_code":"COP"}}`))
	}))
	defer srv.Close()

	e := NewEpayco(EpaycoConfig{CustomerID: "12345", PKey: "pkey", BaseURL: srv.URL}, srv.Client())
	form := url.Values{
		"x_ref_payco":             {"987"},
		"x_transaction_id":        {"tx-77"},
		"x_amount":                {"150000"},
		"x_currency_code":         {"COP"},
		"x_cod_transaction_state": {"2"},
		"x_id_invoice":            {"RES-12"},
	}
	form.Set("x_signature", e.Sign("987", "tx-77", "150000", "COP"))

	// Rewrite the declined confirmation as an approval for another
	// reservation, keeping the signature.
	form.Set("x_cod_transaction_state", "1")
	form.Set("x_id_invoice", "RES-99")
	req := &Request{Kind: Webhook, Form: form}
	require.True(t, e.VerifyAuthenticity(req))

	cb, err := e.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cb.NeedsLookup)
	assert.Equal(t, "987", cb.TransactionID)

	verified, err := e.VerifyTransaction(context.Background(), cb.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), verified.ReservationID)
	assert.Equal(t, Declined, verified.Status)
	assert.Equal(t, int64(15000000), verified.AmountCents)
}

func TestEpaycoUnknownInvoiceDefersToLookup(t *testing.T) {
	e := NewEpayco(EpaycoConfig{}, nil)
	req := &Request{Kind: Webhook, Form: url.Values{"x_ref_payco": {"5"}, "x_id_invoice": {"ORDER-1"}}}
	cb, err := e.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cb.NeedsLookup)
	assert.Zero(t, cb.ReservationID)
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]int64{
		"150000": 15000000, "1500.5": 150050, "1500.50": 150050, "0.01": 1, "12.000000": 1200,
	} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "-5", "1.234", "abc", "1,5", ".5"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, "1500.50", FormatAmount(150050))
	assert.Equal(t, "0.07", FormatAmount(7))
}

func TestEpaycoJSONFallback(t *testing.T) {
	e := NewEpayco(EpaycoConfig{CustomerID: "1", PKey: "k"}, nil)
	sig := e.Sign("55", "t1", "1000", "COP")
	body := `{"x_ref_payco":55,"x_transaction_id":"t1","x_amount":"1000","x_currency_code":"COP",` +
		`"x_signature":"` + sig + `","x_transaction_state":"Rechazada","x_extra1":"RES-3"}`
	req := &Request{Kind: Webhook, Body: []byte(body)}
	assert.True(t, e.VerifyAuthenticity(req))
	cb, err := e.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cb.ReservationID)
	assert.Equal(t, Declined, cb.Status)

	bad := &Request{Kind: Webhook, Body: []byte(`{"x_extra1":"ORDER-3"}`)}
	_, err = e.ParseCallback(context.Background(), bad)
	assert.ErrorIs(t, err, ErrUnrecognizedReference)
}

func TestEpaycoStatusMapping(t *testing.T) {
	assert.Equal(t, Approved, epaycoStatus("1", ""))
	assert.Equal(t, Declined, epaycoStatus("2", "Aceptada"))
	assert.Equal(t, Pending, epaycoStatus("3", ""))
	assert.Equal(t, Approved, epaycoStatus("", "aceptada"))
	assert.Equal(t, Declined, epaycoStatus("", "Fallida"))
	assert.Equal(t, Pending, epaycoStatus("", "Pendiente"))
}

func TestMercadoPagoWebhook(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/v1/payments/123456", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":123456,"status":"approved","external_reference":"RES-8"}`))
	}))
	defer srv.Close()

	m := NewMercadoPago(MercadoPagoConfig{AccessToken: "token", WebhookSecret: "whsec", BaseURL: srv.URL}, srv.Client())
	h := http.Header{}
	h.Set("x-request-id", "req-1")
	h.Set("x-signature", m.Sign("123456", "req-1", "1700000000"))
	req := &Request{Kind: Webhook, Header: h, Body: []byte(`{"type":"payment","data":{"id":"123456"}}`)}

	assert.True(t, m.VerifyAuthenticity(req))

	cb, err := m.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cb.NeedsLookup)
	assert.Equal(t, "123456", cb.TransactionID)

	verified, err := m.VerifyTransaction(context.Background(), cb.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), verified.ReservationID)
	assert.Equal(t, Approved, verified.Status)
	assert.Equal(t, 1, hits)

	h.Set("x-signature", "ts=1700000000,v1=deadbeef")
	assert.False(t, m.VerifyAuthenticity(req))

	other := &Request{Kind: Webhook, Header: http.Header{}, Body: []byte(`{"type":"merchant_order","data":{"id":"1"}}`)}
	_, err = m.ParseCallback(context.Background(), other)
	assert.True(t, errors.Is(err, ErrUnrecognizedReference))
}

func TestMercadoPagoReturn(t *testing.T) {
	m := NewMercadoPago(MercadoPagoConfig{}, nil)
	q := url.Values{"external_reference": {"RES-4"}, "collection_status": {"rejected"}, "payment_id": {"99"}}
	req := &Request{Kind: Return, Query: q}
	assert.False(t, m.VerifyAuthenticity(req))
	cb, err := m.ParseCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), cb.ReservationID)
	assert.Equal(t, Declined, cb.Status)
	assert.Equal(t, "99", cb.TransactionID)
}
