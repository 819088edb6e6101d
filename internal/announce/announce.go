// Package announce submits signed bundles to a ledger endpoint over HTTP.
//
// Endpoint contract:
//
//	PUT /transactions                {"payload": "<envelope hex>"}
//	PUT /transactions/partial        {"payload": "<envelope hex>"}
//	GET /transactions/{hash}/status  {"hash": "...", "group": "unconfirmed|confirmed|failed"}
package announce

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"Apostille/internal/bundler"
	"Apostille/internal/ledger"
	"Apostille/internal/logger"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultRetries        = 3
	defaultRetryWait      = 500 * time.Millisecond
	defaultPollInterval   = 2 * time.Second
	defaultConfirmTimeout = 5 * time.Minute
)

// Group is the ledger-side state of an announced operation.
type Group string

// Ledger status groups.
const (
	GroupUnconfirmed Group = "unconfirmed"
	GroupConfirmed   Group = "confirmed"
	GroupFailed      Group = "failed"
)

var (
	// ErrRejected is returned when the endpoint refuses a submission.
	ErrRejected = errors.New("ledger rejected the operation")

	// ErrOperationFailed is returned when the ledger reports an operation as failed.
	ErrOperationFailed = errors.New("ledger reported the operation as failed")

	// ErrConfirmationTimeout is returned when an operation stays unconfirmed too long.
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")
)

// Config configures a Client. Zero fields take defaults.
type Config struct {
	Endpoint       string        // Endpoint is the ledger base URL
	Timeout        time.Duration // Timeout bounds each HTTP request
	Retries        int           // Retries counts retries on transport and 5xx errors; negative disables
	RetryWait      time.Duration // RetryWait is the initial backoff between retries
	PollInterval   time.Duration // PollInterval is the status polling period
	ConfirmTimeout time.Duration // ConfirmTimeout bounds a wait for confirmation
}

// Client announces bundles to one ledger endpoint.
type Client struct {
	http *resty.Client // http is the configured REST client
	cfg  Config        // cfg holds the resolved settings
}

// submission is the body of a PUT request.
type submission struct {
	Payload string `json:"payload"`
}

// statusResponse is the body of a status query.
type statusResponse struct {
	Hash  string `json:"hash"`
	Group Group  `json:"group"`
}

// errorResponse is the body the endpoint returns on 4xx and 5xx.
type errorResponse struct {
	Error string `json:"error"`
}

// New creates a client for cfg.Endpoint.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}

	rc := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(8 * cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: rc, cfg: cfg}
}

// Config returns the resolved settings.
func (c *Client) Config() Config {
	return c.cfg
}

// Announce submits every step of b in order. A step marked AwaitConfirmation must
// be confirmed before the next one is sent.
func (c *Client) Announce(ctx context.Context, b bundler.Bundle) error {
	for i, step := range b.Steps() {
		if err := c.Submit(ctx, step.Operation, step.Partial); err != nil {
			return fmt.Errorf("step %d of %s bundle:\n%w", i+1, b.Kind, err)
		}

		if !step.AwaitConfirmation {
			continue
		}

		if err := c.WaitConfirmed(ctx, step.Operation.Hash); err != nil {
			return fmt.Errorf("step %d of %s bundle:\n%w", i+1, b.Kind, err)
		}
	}

	return nil
}

// Submit sends one signed operation. Partial selects the bonded aggregate route.
func (c *Client) Submit(ctx context.Context, op *ledger.SignedOperation, partial bool) error {
	path := "/transactions"
	if partial {
		path = "/transactions/partial"
	}

	var failure errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(submission{Payload: hex.EncodeToString(op.Bytes())}).
		SetError(&failure).
		Put(path)
	if err != nil {
		return fmt.Errorf("submit %s:\n%w", op.HashHex(), err)
	}

	if resp.IsError() {
		return fmt.Errorf("%w: %s: status %d: %s", ErrRejected, op.HashHex(), resp.StatusCode(), failure.Error)
	}

	logger.Info("operation announced",
		"hash", op.HashHex(),
		"type", op.Type.String(),
		"partial", partial,
	)

	return nil
}

// Status queries the ledger group of the operation with hash.
func (c *Client) Status(ctx context.Context, hash [32]byte) (Group, error) {
	var status statusResponse
	var failure errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("hash", hex.EncodeToString(hash[:])).
		SetResult(&status).
		SetError(&failure).
		Get("/transactions/{hash}/status")
	if err != nil {
		return "", fmt.Errorf("query status %x:\n%w", hash, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return GroupUnconfirmed, nil
	}

	if resp.IsError() {
		return "", fmt.Errorf("query status %x: status %d: %s", hash, resp.StatusCode(), failure.Error)
	}

	return status.Group, nil
}

// WaitConfirmed polls the status of hash until it is confirmed, failed, ctx is done,
// or the configured confirmation timeout elapses.
func (c *Client) WaitConfirmed(ctx context.Context, hash [32]byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		group, err := c.Status(ctx, hash)
		if err != nil && ctx.Err() == nil {
			logger.Warn("status query failed", "hash", hex.EncodeToString(hash[:]), "error", err)
		}

		switch group {
		case GroupConfirmed:
			logger.Debug("operation confirmed", "hash", hex.EncodeToString(hash[:]))
			return nil
		case GroupFailed:
			return fmt.Errorf("%w: %x", ErrOperationFailed, hash)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %x after %s", ErrConfirmationTimeout, hash, c.cfg.ConfirmTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
