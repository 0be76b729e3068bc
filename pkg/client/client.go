package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/hlsdk/params"
	"github.com/uhyunpark/hlsdk/pkg/crypto"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
	"github.com/uhyunpark/hlsdk/pkg/util"
)

// APIError is an error reported by the exchange itself, as opposed to a
// transport or decoding failure.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	if e.HTTPStatus != 0 && e.HTTPStatus != http.StatusOK {
		return fmt.Sprintf("exchange error (http %d): %s", e.HTTPStatus, e.Message)
	}
	return "exchange error: " + e.Message
}

// Client talks to the exchange and info endpoints and signs actions with
// its signer.
type Client struct {
	baseURL string
	http    *http.Client
	signer  *crypto.Signer
	actions *crypto.ActionSigner
	vault   *common.Address
	nonces  *util.NonceSource
	assets  exchange.AssetResolver
	journal storage.Journal
	logger  *zap.SugaredLogger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.logger = l } }

// WithJournal makes the client remember the oids the exchange assigns so
// cloid references can be resolved later.
func WithJournal(j storage.Journal) Option { return func(c *Client) { c.journal = j } }

func WithClock(clock util.Clock) Option {
	return func(c *Client) { c.nonces = util.NewNonceSource(clock) }
}

func WithAssets(a exchange.AssetResolver) Option { return func(c *Client) { c.assets = a } }

// New builds a client from the client section of the config. A missing
// private key is allowed; such a client can only use the info endpoint.
func New(cfg params.Client, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		actions: crypto.NewActionSigner(cfg.Mainnet),
		nonces:  util.NewNonceSource(util.RealClock{}),
	}

	if cfg.PrivateKey != "" {
		signer, err := crypto.FromPrivateKeyHex(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		c.signer = signer
	}
	if cfg.VaultAddress != "" {
		if !common.IsHexAddress(cfg.VaultAddress) {
			return nil, fmt.Errorf("invalid vault address %q", cfg.VaultAddress)
		}
		vault := common.HexToAddress(cfg.VaultAddress)
		c.vault = &vault
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = util.SugarOrNop(c.logger)
	return c, nil
}

// Address returns the signing address, or the zero address without a key.
func (c *Client) Address() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// Assets returns the configured resolver, fetching the universe from the
// info endpoint on first use.
func (c *Client) Assets(ctx context.Context) (exchange.AssetResolver, error) {
	if c.assets != nil {
		return c.assets, nil
	}
	u, err := c.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset universe: %w", err)
	}
	c.assets = u
	return u, nil
}

// post sends body as JSON to path and decodes the answer into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debugw("http_post", "path", path, "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
			if e.Message != "" {
				msg += ": " + e.Message
			}
		}
		return &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
