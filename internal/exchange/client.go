package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"exec_go/internal/domain"
	"exec_go/internal/execution"
	"exec_go/internal/infra"
	"exec_go/pkg/quant"
)

const ordersPath = "/api/v1/orders"

// Client is the live REST transport. It signs every request and maps
// HTTP outcomes onto the execution error taxonomy so the router can
// decide what to retry.
type Client struct {
	endpoint string
	signer   *Signer
	http     *http.Client
	log      *slog.Logger
}

// NewClient builds the live transport from the validated config. The
// security invariants are checked here as well as per dispatch.
func NewClient(cfg *infra.Config, log *slog.Logger) (*Client, error) {
	c := &Client{
		endpoint: strings.TrimRight(cfg.Exchange.Endpoint, "/"),
		signer:   NewSigner(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.Passphrase),
		http: &http.Client{
			Timeout: time.Duration(cfg.Exchange.RequestTimeoutMS) * time.Millisecond,
		},
		log: log,
	}
	if err := c.ValidateSecurity(); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidateSecurity verifies the endpoint is encrypted and credentials
// are present. Called at construction and before every dispatch.
func (c *Client) ValidateSecurity() error {
	if !strings.HasPrefix(c.endpoint, "https://") {
		return &execution.ConfigError{Reason: "exchange endpoint must use https"}
	}
	if len(c.signer.accessKey) == 0 || len(c.signer.secretKey) == 0 {
		return &execution.ConfigError{Reason: "exchange credentials missing"}
	}
	return nil
}

// Endpoint returns the dispatch base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close wipes the credential material.
func (c *Client) Close() error {
	c.signer.Wipe()
	return nil
}

// orderRequest is the wire form of one order submission.
type orderRequest struct {
	ClientOid string `json:"clientOid"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	Price     string `json:"price,omitempty"`
	Size      string `json:"size"`
}

type orderResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		OrderID   string `json:"orderId"`
		Status    string `json:"status"`
		FilledQty string `json:"filledQty"`
		AvgPrice  string `json:"avgPrice"`
	} `json:"data"`
}

const codeOK = "00000"

// SubmitOrder posts the order and classifies the outcome. Network
// faults and server-side failures come back transient; a well-formed
// decline comes back as a business rejection.
func (c *Client) SubmitOrder(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error) {
	body, err := json.Marshal(orderRequest{
		ClientOid: order.ID,
		Symbol:    order.Symbol,
		Side:      strings.ToLower(string(order.Side)),
		OrderType: strings.ToLower(string(order.Type)),
		Price:     limitPriceField(order),
		Size:      order.QtySats.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "exchange: marshal order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "exchange: build request")
	}
	for k, v := range c.signer.GenerateHeaders(http.MethodPost, ordersPath, "", string(body)) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, execution.Transient("submit", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, execution.Transient("submit", errors.Wrap(err, "read response"))
	}

	return c.classify(order, resp.StatusCode, raw)
}

// classify maps the HTTP status and wire body onto the error taxonomy.
// 5xx and 429 are worth retrying; any other non-2xx is the venue saying
// no and retrying would just repeat the answer.
func (c *Client) classify(order domain.Order, status int, raw []byte) (*domain.ExchangeResponse, error) {
	if status >= 500 || status == http.StatusTooManyRequests {
		return nil, execution.Transient("submit", errors.Errorf("server returned %d: %s", status, raw))
	}

	var wire orderResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, execution.Transient("submit", errors.Wrap(err, "unmarshal response"))
	}

	if status >= 400 || wire.Code != codeOK {
		return nil, &execution.BusinessRejection{Code: wire.Code, Reason: wire.Msg}
	}

	out := &domain.ExchangeResponse{
		OrderID:         order.ID,
		ExchangeOrderID: wire.Data.OrderID,
		Status:          mapStatus(wire.Data.Status),
		FilledQtySats:   quant.ToQtySatsStr(wire.Data.FilledQty),
		AvgPriceMicros:  quant.ToPriceMicrosStr(wire.Data.AvgPrice),
		TsUnixM:         quant.TimeStamp(time.Now().UnixMicro()),
	}
	c.log.Info("order accepted by exchange",
		"order_id", order.ID,
		"exchange_order_id", out.ExchangeOrderID,
		"status", out.Status)
	return out, nil
}

func limitPriceField(order domain.Order) string {
	if order.Type != domain.TypeLimit {
		return ""
	}
	return order.PriceMicros.String()
}

func mapStatus(s string) string {
	switch strings.ToLower(s) {
	case "filled", "full_fill":
		return domain.StatusFilled
	case "rejected":
		return domain.StatusRejected
	default:
		return domain.StatusAccepted
	}
}
