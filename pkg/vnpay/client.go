package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/config"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

const (
	version     = "2.1.0"
	commandPay  = "pay"
	currency    = "VND"
	localeVN    = "vn"
	dateLayout  = "20060102150405"
	orderTypeID = "other"

	// ResponseCodeSuccess is the gateway code meaning the payment went through.
	ResponseCodeSuccess = "00"
)

// Client builds outbound pay URLs and verifies inbound callbacks. It holds no
// connection state; the gateway is driven entirely through browser redirects.
type Client struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
	now        func() time.Time
}

// PayURLParams describes one payment attempt to redirect the user with.
type PayURLParams struct {
	TxnRef    string
	Amount    decimal.Decimal
	OrderInfo string
	IPAddr    string
	ReturnURL string
	ExpireAt  time.Time
}

// Callback is the verified, decoded content of a return/IPN request.
type Callback struct {
	TxnRef        string
	ResponseCode  string
	TransactionNo string
	Amount        decimal.Decimal
	BankCode      string
	PayDate       *time.Time
	Raw           string
}

// Succeeded reports whether the gateway confirmed the payment.
func (c *Callback) Succeeded() bool {
	return c.ResponseCode == ResponseCodeSuccess
}

// New validates the gateway configuration and returns a client.
func New(cfg config.VNPayConfig) (*Client, error) {
	if cfg.TmnCode == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("vnpay tmn code and hash secret are required")
	}
	if cfg.PayURL == "" || cfg.ReturnURL == "" {
		return nil, fmt.Errorf("vnpay pay url and return url are required")
	}
	return &Client{
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		payURL:     cfg.PayURL,
		returnURL:  cfg.ReturnURL,
		now:        time.Now,
	}, nil
}

// BuildPayURL assembles the signed redirect URL for one payment attempt.
// Amounts are multiplied by 100 per the gateway's minor-unit convention.
func (c *Client) BuildPayURL(params PayURLParams) (string, error) {
	if params.TxnRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "txn ref is required")
	}
	if !params.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	returnURL := params.ReturnURL
	if returnURL == "" {
		returnURL = c.returnURL
	}
	orderInfo := params.OrderInfo
	if orderInfo == "" {
		orderInfo = "Thanh toan don hang " + params.TxnRef
	}
	ipAddr := params.IPAddr
	if ipAddr == "" {
		ipAddr = "127.0.0.1"
	}

	now := c.now()
	values := url.Values{}
	values.Set("vnp_Version", version)
	values.Set("vnp_Command", commandPay)
	values.Set("vnp_TmnCode", c.tmnCode)
	values.Set("vnp_Amount", params.Amount.Mul(decimal.NewFromInt(100)).Truncate(0).String())
	values.Set("vnp_CurrCode", currency)
	values.Set("vnp_TxnRef", params.TxnRef)
	values.Set("vnp_OrderInfo", orderInfo)
	values.Set("vnp_OrderType", orderTypeID)
	values.Set("vnp_Locale", localeVN)
	values.Set("vnp_ReturnUrl", returnURL)
	values.Set("vnp_IpAddr", ipAddr)
	values.Set("vnp_CreateDate", now.Format(dateLayout))
	if !params.ExpireAt.IsZero() {
		values.Set("vnp_ExpireDate", params.ExpireAt.Format(dateLayout))
	}

	query := canonicalQuery(values)
	signature := c.sign(query)

	return c.payURL + "?" + query + "&vnp_SecureHash=" + signature, nil
}

// ParseCallback verifies the secure hash on a return/IPN payload and decodes
// the fields the payment processor needs. Tampered payloads are rejected.
func (c *Client) ParseCallback(values url.Values) (*Callback, error) {
	providedHash := values.Get("vnp_SecureHash")
	if providedHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing secure hash")
	}

	signed := url.Values{}
	for key, vals := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if !strings.HasPrefix(key, "vnp_") {
			continue
		}
		for _, v := range vals {
			signed.Add(key, v)
		}
	}

	query := canonicalQuery(signed)
	expected := c.sign(query)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(providedHash)), []byte(expected)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "secure hash mismatch")
	}

	cb := &Callback{
		TxnRef:        values.Get("vnp_TxnRef"),
		ResponseCode:  values.Get("vnp_ResponseCode"),
		TransactionNo: values.Get("vnp_TransactionNo"),
		BankCode:      values.Get("vnp_BankCode"),
		Raw:           signed.Encode(),
	}
	if cb.TxnRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing txn ref")
	}

	if rawAmount := values.Get("vnp_Amount"); rawAmount != "" {
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing callback amount")
		}
		cb.Amount = amount.Div(decimal.NewFromInt(100))
	}

	if rawDate := values.Get("vnp_PayDate"); rawDate != "" {
		paidAt, err := time.ParseInLocation(dateLayout, rawDate, time.Local)
		if err == nil {
			cb.PayDate = &paidAt
		}
	}

	return cb, nil
}

// canonicalQuery sorts keys and url-encodes pairs the way the gateway expects
// its signature input: key=encoded(value) joined by ampersands.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, v := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha512.New, []byte(c.hashSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
