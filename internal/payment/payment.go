// Package payment adapts the callbacks of external payment providers to a
// single contract.  Each provider hides its own signature scheme, status
// vocabulary and verification endpoint behind Provider; the
// reconciliation service only ever sees a normalized Callback.
package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSignature is returned when a webhook fails authentication.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnrecognizedReference marks traffic that does not carry a
	// reservation reference.  It is dropped without error to the caller.
	ErrUnrecognizedReference = errors.New("unrecognized reference")
	// ErrProviderTimeout is returned when a verification call to the
	// provider did not complete in time.
	ErrProviderTimeout = errors.New("payment provider timeout")
	// ErrUnknownProvider is returned for a provider name with no adapter.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrMalformedCallback is returned when a payload cannot be decoded.
	ErrMalformedCallback = errors.New("malformed callback")
)

// Status is the provider independent outcome of a payment.
type Status string

const (
	Approved Status = "APPROVED"
	Declined Status = "DECLINED"
	Pending  Status = "PENDING"
)

// Kind tells webhooks (server to server) apart from browser returns.
type Kind int

const (
	Webhook Kind = iota
	Return
)

func (k Kind) String() string {
	if k == Return {
		return "return"
	}
	return "webhook"
}

// Request is the raw inbound callback as received over HTTP.  Body holds
// the exact bytes received so signatures can be recomputed over them.
type Request struct {
	Kind   Kind
	Header http.Header
	Query  url.Values
	Form   url.Values
	Body   []byte
}

// Callback is the normalized content of a provider event.
type Callback struct {
	Provider      string
	Reference     string
	ReservationID uint64
	Status        Status
	RawStatus     string
	TransactionID string
	// AmountCents and Currency describe the charge when the payload
	// carries it.  Zero means unknown.
	AmountCents int64
	Currency    string
	// NeedsLookup is set when the payload cannot be trusted for reference
	// and status, either because it only identifies the transaction or
	// because the provider signature does not cover those fields.  They
	// must be fetched from the provider.
	NeedsLookup bool
}

// Provider is implemented once per payment provider.
type Provider interface {
	Name() string
	// VerifyAuthenticity recomputes the provider signature over the
	// request and compares it in constant time.  It returns false on a
	// missing secret, a missing signature or a malformed payload.
	VerifyAuthenticity(req *Request) bool
	// ParseCallback extracts the reference, status and transaction id.
	ParseCallback(ctx context.Context, req *Request) (Callback, error)
}

// Verifier is implemented by providers that expose a server to server
// transaction lookup.
type Verifier interface {
	VerifyTransaction(ctx context.Context, transactionID string) (Callback, error)
}

// ReferencePrefix starts every reservation reference.
const ReferencePrefix = "RES-"

// DefaultCurrency is the currency reservations are charged in.
const DefaultCurrency = "COP"

// Reference formats the correlation string sent to providers.
func Reference(reservationID uint64) string {
	return ReferencePrefix + strconv.FormatUint(reservationID, 10)
}

// ParseReference extracts the reservation id from a RES-<id> reference.
func ParseReference(ref string) (uint64, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, ReferencePrefix) {
		return 0, ErrUnrecognizedReference
	}
	digits := ref[len(ReferencePrefix):]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, ErrUnrecognizedReference
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrUnrecognizedReference
	}
	return id, nil
}

// Registry resolves adapters by provider name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by Name.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Lookup returns the adapter registered for name.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
