package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout = "20060102150405"

	// tokenSkew refreshes tokens this long before the provider expires them.
	tokenSkew       = 60 * time.Second
	defaultTokenTTL = 3599 * time.Second

	maxAccountRefLen   = 12
	maxTransactionDesc = 13
	maxErrorBody       = 512
)

// The gateway stamps requests in East Africa Time.
var eat = time.FixedZone("EAT", 3*60*60)

type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	TransactionType string
	CountryCode     string
	Timeout         time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client speaks the STK push protocol. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
	log  *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

var _ usecase.PaymentGateway = (*Client)(nil)

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "254"
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
		log:  logging.New("mpesa"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Password is base64(shortcode + passkey + timestamp).
func (c *Client) Password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

func (c *Client) timestamp() string {
	return c.now().In(eat).Format(timestampLayout)
}

// Authenticate returns a bearer token, reusing the cached one until shortly
// before it expires.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", &usecase.AuthError{Message: err.Error()}
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &usecase.AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return "", &usecase.AuthError{StatusCode: resp.StatusCode, Message: truncate(string(body))}
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", &usecase.AuthError{StatusCode: resp.StatusCode, Message: "no access_token in response"}
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(rawString(tr.ExpiresIn)); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = tr.AccessToken
	c.expires = c.now().Add(ttl - tokenSkew)
	return c.token, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// InitiatePayment sends the push prompt to the payer's phone. The amount is
// rounded up to a whole unit.
func (c *Client) InitiatePayment(ctx context.Context, phone string, amount decimal.Decimal, accountRef string) (usecase.PushAccepted, error) {
	msisdn, err := NormalizePhone(phone, c.cfg.CountryCode)
	if err != nil {
		return usecase.PushAccepted{}, err
	}
	if !amount.IsPositive() {
		return usecase.PushAccepted{}, errors.Join(usecase.ErrValidation, domain.ErrInvalidAmount)
	}

	ts := c.timestamp()
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(ts),
		Timestamp:         ts,
		TransactionType:   c.cfg.TransactionType,
		Amount:            amount.Ceil().IntPart(),
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  clip(accountRef, maxAccountRefLen),
		TransactionDesc:   clip("Food order", maxTransactionDesc),
	}

	var out stkPushResponse
	status, err := c.post(ctx, pushPath, payload, &out)
	if err != nil {
		var ae *usecase.AuthError
		if errors.As(err, &ae) {
			return usecase.PushAccepted{}, err
		}
		return usecase.PushAccepted{}, &usecase.PaymentInitiationError{Description: "gateway unreachable", Err: err}
	}
	if out.ResponseCode != resultSuccess || out.CheckoutRequestID == "" {
		desc := firstNonEmpty(out.ResponseDescription, out.ErrorMessage, http.StatusText(status))
		c.log.Warn("stk push refused", "status", status, "response_code", out.ResponseCode, "error_code", out.ErrorCode, "desc", desc)
		return usecase.PushAccepted{}, &usecase.PaymentInitiationError{Description: desc}
	}

	c.log.Info("stk push accepted", "checkout_ref", out.CheckoutRequestID, "merchant_ref", out.MerchantRequestID)
	return usecase.PushAccepted{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		CustomerMessage:   out.CustomerMessage,
		Phone:             msisdn,
	}, nil
}

// QueryStatus asks the provider where a push stands. It only reads, so
// clients may poll it freely. Transport trouble is reported as Failed.
func (c *Client) QueryStatus(ctx context.Context, checkoutRef string) (domain.PaymentResult, error) {
	ts := c.timestamp()
	payload := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRef,
	}

	var out stkQueryResponse
	status, err := c.post(ctx, queryPath, payload, &out)
	if err != nil {
		c.log.Warn("stk query failed", "checkout_ref", checkoutRef, "status", status, "err", err)
		return domain.PaymentResult{State: domain.PaymentFailed, Reason: err.Error()}, nil
	}
	return classify(out), nil
}

func classify(r stkQueryResponse) domain.PaymentResult {
	code := rawString(r.ResultCode)
	res := domain.PaymentResult{ResultCode: code, ResultDesc: firstNonEmpty(r.ResultDesc, r.ErrorMessage)}

	switch {
	case r.ErrorCode == processingErrorCode:
		res.State = domain.PaymentPending
	case code == resultSuccess:
		res.State = domain.PaymentCompleted
		res.TransactionID = r.MpesaReceiptNumber
		res.PayerPhone = rawString(r.PhoneNumber)
	case code == resultCancelled:
		res.State = domain.PaymentCancelled
	default:
		res.State = domain.PaymentFailed
		res.Reason = firstNonEmpty(r.ResultDesc, r.ErrorMessage, r.ResponseDescription, "unknown result")
	}
	return res
}

// post sends an authenticated JSON request and decodes whatever JSON comes
// back, since the provider reports business errors with non-2xx statuses. A
// 401 drops the cached token and retries once.
func (c *Client) post(ctx context.Context, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}

	for attempt := 0; ; attempt++ {
		token, err := c.Authenticate(ctx)
		if err != nil {
			return 0, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			return resp.StatusCode, err
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.invalidate()
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, truncate(string(raw)))
		}
		return resp.StatusCode, nil
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string) string {
	return clip(strings.TrimSpace(s), maxErrorBody)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
