// Package asset implements the external media store adapter.
package asset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

// =============================================================================
// HTTP Asset Store Adapter
// =============================================================================

// Config holds asset store configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StoreAdapter implements out.AssetStore against an HTTP media service.
// Calls run through a circuit breaker so a degraded media service fails
// fast instead of stalling dish creation and cleanup.
type StoreAdapter struct {
	cfg    Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewStoreAdapter creates a new HTTP asset store adapter.
func NewStoreAdapter(cfg Config) *StoreAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	cbSettings := gobreaker.Settings{
		Name:     "asset-store",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			_, ok := err.(*nonCircuitError)
			return ok
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &StoreAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Upload stores image bytes and returns the public URL and asset id.
func (a *StoreAdapter) Upload(ctx context.Context, data []byte, folder string) (*domain.AssetRef, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "upload")
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write upload payload: %w", err)
	}
	if folder != "" {
		if err := writer.WriteField("folder", folder); err != nil {
			return nil, fmt.Errorf("failed to write upload folder: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	var ref domain.AssetRef
	cbErr := a.execute(ctx, "Upload", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/upload", bytes.NewReader(body.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return a.statusError(resp)
		}

		var payload struct {
			SecureURL string `json:"secure_url"`
			PublicID  string `json:"public_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("failed to decode upload response: %w", err)
		}
		ref = domain.AssetRef{URL: payload.SecureURL, ID: payload.PublicID}
		return nil
	})
	if cbErr != nil {
		return nil, fmt.Errorf("asset upload failed: %w", cbErr)
	}
	return &ref, nil
}

// Delete removes a stored asset. A 404 from the store counts as
// success so cleanup retries stay idempotent.
func (a *StoreAdapter) Delete(ctx context.Context, assetID string) error {
	cbErr := a.execute(ctx, "Delete", func() error {
		endpoint := a.cfg.BaseURL + "/assets/" + url.PathEscape(assetID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
			return nil
		default:
			return a.statusError(resp)
		}
	})
	if cbErr != nil {
		return fmt.Errorf("asset delete failed: %w", cbErr)
	}
	return nil
}

// execute wraps a store call with circuit breaker protection. Client
// errors (4xx) do not trip the breaker; only transport errors and
// server-side failures count.
func (a *StoreAdapter) execute(ctx context.Context, operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if se, ok := err.(*statusError); ok && se.code >= 400 && se.code < 500 {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		logger.WithFields(map[string]any{
			"operation": operation,
			"state":     a.cb.State().String(),
		}).WithError(err).Error("asset store call failed")
	}
	return err
}

func (a *StoreAdapter) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &statusError{code: resp.StatusCode, body: string(body)}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("asset store returned %d: %s", e.code, e.body)
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

// Interface compliance
var _ out.AssetStore = (*StoreAdapter)(nil)
