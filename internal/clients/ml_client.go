package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/resilience"
)

// MLClient calls the fraud-probability model service. Every call runs
// through the resilience chain; when no attempt succeeds the client
// degrades to the unavailable prediction sentinel so scoring falls back
// to rule-only rather than failing the pipeline.
type MLClient struct {
	baseURL string
	http    *http.Client
	policy  *resilience.Client[domain.MLPrediction]
	log     *logger.Logger
}

// NewMLClient creates the resilient ML predictor client.
func NewMLClient(cfg config.ClientsConfig, policy config.PolicyConfig, log *logger.Logger, opts ...resilience.Option[domain.MLPrediction]) *MLClient {
	c := &MLClient{
		baseURL: cfg.MLPredictorURL,
		http:    &http.Client{},
		log:     log.Named("ml_client"),
	}
	fallback := func(context.Context, error) (domain.MLPrediction, error) {
		return domain.UnavailablePrediction(), nil
	}
	c.policy = resilience.New("ml-predictor", policy, fallback, log, opts...)
	return c
}

// Predict returns the model's fraud probability for a transaction, or the
// unavailable sentinel after the policy chain gives up.
func (c *MLClient) Predict(ctx context.Context, tx *domain.Transaction) (domain.MLPrediction, error) {
	return c.policy.Call(ctx, func(ctx context.Context) (domain.MLPrediction, error) {
		return c.predict(ctx, tx)
	})
}

func (c *MLClient) predict(ctx context.Context, tx *domain.Transaction) (domain.MLPrediction, error) {
	var prediction domain.MLPrediction

	body, err := json.Marshal(tx)
	if err != nil {
		return prediction, domain.NewExternalServiceError("ml-predictor", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predict", bytes.NewReader(body))
	if err != nil {
		return prediction, domain.NewExternalServiceError("ml-predictor", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return prediction, domain.NewExternalServiceError("ml-predictor", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return prediction, domain.NewExternalServiceError("ml-predictor",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return prediction, domain.NewExternalServiceError("ml-predictor", err)
	}

	return prediction, nil
}
