// Package ledger provides the LedgerClient implementations: an HTTP client
// for a remote ledger gateway and an embedded LevelDB ledger.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/health-attestation-server/internal/domain"
)

// GatewayClient talks to a ledger gateway that signs and relays contract
// transactions. Writes block until the gateway reports the transaction final.
type GatewayClient struct {
	baseURL    string
	apiToken   string
	retryCount int
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type submitRequest struct {
	Identity        string `json:"identity"`
	AttestationHash string `json:"attestationHash"`
	MetadataHash    string `json:"metadataHash"`
	DataSource      string `json:"dataSource"`
}

type validateRequest struct {
	Verified bool `json:"verified"`
}

type txResponse struct {
	TxRef string `json:"txRef"`
}

type credentialsResponse struct {
	Count       int                       `json:"count"`
	Credentials []domain.CredentialRecord `json:"credentials"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// gatewayError is a definitive answer from the gateway (a contract revert or
// a rejected request). It does not count against the circuit breaker and is
// never retried.
type gatewayError struct {
	status  int
	message string
	cause   error
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("ledger gateway returned status %d: %s", e.status, e.message)
}

func (e *gatewayError) Unwrap() error {
	return e.cause
}

// NewGatewayClient creates a new gateway client
func NewGatewayClient(cfg domain.GatewayLedgerConfig, logger *logrus.Logger) (*GatewayClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ledger gateway base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger gateway base URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if logger == nil {
		logger = logrus.New()
	}

	c := &GatewayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiToken:   cfg.APIToken,
		retryCount: cfg.RetryCount,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:    logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "LedgerGateway",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var gwErr *gatewayError
			return err == nil || errors.As(err, &gwErr)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return c, nil
}

var errNoTxRef = errors.New("ledger gateway returned no transaction reference")

// Submit records a commitment under the submitter identity. It is never retried.
func (c *GatewayClient) Submit(ctx context.Context, submission domain.LedgerSubmission) (domain.TxRef, error) {
	body, err := json.Marshal(submitRequest(submission))
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}

	var resp txResponse
	if err := c.execute(ctx, http.MethodPost, "/credentials", body, &resp); err != nil {
		return "", err
	}
	if resp.TxRef == "" {
		return "", errNoTxRef
	}

	c.logger.WithFields(logrus.Fields{
		"identity": submission.Identity,
		"tx_ref":   resp.TxRef,
	}).Debug("Commitment submitted to ledger gateway")
	return domain.TxRef(resp.TxRef), nil
}

// ReadCredentials returns the credentials of identity in ledger order.
// Reads are side-effect free and retried up to the configured count.
func (c *GatewayClient) ReadCredentials(ctx context.Context, identity string) ([]domain.CredentialRecord, error) {
	path := "/credentials/" + url.PathEscape(identity)

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var resp credentialsResponse
		err := c.execute(ctx, http.MethodGet, path, nil, &resp)
		if err == nil {
			if resp.Credentials == nil {
				resp.Credentials = []domain.CredentialRecord{}
			}
			return resp.Credentials, nil
		}
		lastErr = err

		var gwErr *gatewayError
		if errors.As(err, &gwErr) || errors.Is(err, domain.ErrLedgerUnavailable) || ctx.Err() != nil {
			break
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"identity": identity,
			"attempt":  attempt + 1,
		}).Warn("Ledger gateway read failed")
	}
	return nil, lastErr
}

// SetVerified sets the verified flag of one credential. It is never retried.
func (c *GatewayClient) SetVerified(ctx context.Context, identity string, index int, verified bool) (domain.TxRef, error) {
	body, err := json.Marshal(validateRequest{Verified: verified})
	if err != nil {
		return "", fmt.Errorf("failed to encode validation: %w", err)
	}

	path := fmt.Sprintf("/credentials/%s/%d/validate", url.PathEscape(identity), index)
	var resp txResponse
	if err := c.execute(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	if resp.TxRef == "" {
		return "", errNoTxRef
	}
	return domain.TxRef(resp.TxRef), nil
}

// execute runs one rate-limited request through the circuit breaker.
func (c *GatewayClient) execute(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return err
}

func (c *GatewayClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Health-Attestation-Server/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("ledger gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, respBody)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// classify maps a 4xx gateway response onto the ledger sentinels.
func classify(status int, body []byte) error {
	var payload errorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	gwErr := &gatewayError{status: status, message: message}
	switch {
	case strings.Contains(message, domain.ErrInvalidCredentialIndex.Error()):
		gwErr.cause = domain.ErrInvalidCredentialIndex
	case strings.Contains(message, domain.ErrOnlyOwner.Error()):
		gwErr.cause = domain.ErrOnlyOwner
	case strings.Contains(message, domain.ErrNotAuthorized.Error()), status == http.StatusUnauthorized, status == http.StatusForbidden:
		gwErr.cause = domain.ErrNotAuthorized
	case status == http.StatusNotFound:
		gwErr.cause = domain.ErrNotFound
	}
	return gwErr
}
