package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	cfgpkg "github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/types"
)

var (
	// ErrNotConfigured means merchant code or signing secret is missing.
	ErrNotConfigured = errors.New("checkout signer is not configured")
	// ErrNoLineItems means the caller asked for a link with nothing to sell.
	ErrNoLineItems = errors.New("checkout link requires at least one line item")
)

// Signer builds hosted-checkout buy links. The signature covers every
// parameter with a length-prefixed canonicalization, so reordering or
// splicing parameter values invalidates it.
type Signer struct {
	merchantCode string
	secret       string
	baseURL      string
	currency     string
}

// NewSigner injects the gateway credentials explicitly; the signing routine
// never reads ambient environment state.
func NewSigner(cfg *cfgpkg.Config) *Signer {
	return &Signer{
		merchantCode: cfg.Payment.MerchantCode,
		secret:       cfg.Payment.CheckoutSecret,
		baseURL:      cfg.Payment.CheckoutBaseURL,
		currency:     cfg.Payment.Currency,
	}
}

// LinkRequest describes one checkout link. InvoiceID doubles as the
// merchant-side order reference echoed back on the payment notification.
type LinkRequest struct {
	InvoiceID string
	Items     []types.LineItem
	Currency  string
	ReturnURL string
	CancelURL string
}

// BuildLink assembles the buy-link parameters, signs them and returns the
// full checkout URL. Identical inputs produce identical links.
func (s *Signer) BuildLink(req LinkRequest) (string, error) {
	if s.merchantCode == "" || s.secret == "" {
		return "", ErrNotConfigured
	}
	if len(req.Items) == 0 {
		return "", ErrNoLineItems
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	params := map[string]string{
		"merchant":      s.merchantCode,
		"dynamic":       "1",
		"currency":      currency,
		"return-url":    req.ReturnURL,
		"cancel-url":    req.CancelURL,
		"order-ext-ref": req.InvoiceID,
		"tangible":      "0",
	}
	for i, item := range req.Items {
		suffix := ""
		if i > 0 {
			suffix = fmt.Sprintf("_%d", i)
		}
		params["prod"+suffix] = item.Name
		params["price"+suffix] = item.UnitPrice.StringFixed(2)
		params["qty"+suffix] = strconv.Itoa(item.Quantity)
		params["type"+suffix] = "digital"
	}
	params["signature"] = Sign(params, s.secret)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return s.baseURL + "?" + values.Encode(), nil
}

// Sign computes the HMAC-SHA256 signature over the canonicalized parameter
// map: keys sorted lexicographically, each value serialized as
// <decimal byte length><value>.
func Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonicalize flattens the parameter map into the length-prefixed string the
// signature is computed over. The length prefix defeats value-splicing:
// {"a":"bc"} and {"a":"b","c":""} serialize differently.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := params[k]
		sb.WriteString(strconv.Itoa(len(v)))
		sb.WriteString(v)
	}
	return sb.String()
}
