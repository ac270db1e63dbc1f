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
)

// RuleEngineClient calls the external rule engine. It is deliberately
// not wrapped in the resilience chain: there is no safe rule-less
// default, so failures propagate and abort the assessment.
type RuleEngineClient struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewRuleEngineClient creates a rule engine client with a hard request
// timeout.
func NewRuleEngineClient(cfg config.ClientsConfig, log *logger.Logger) *RuleEngineClient {
	return &RuleEngineClient{
		baseURL: cfg.RuleEngineURL,
		http:    &http.Client{Timeout: cfg.RuleEngineTimeout},
		log:     log.Named("rule_engine_client"),
	}
}

type evaluateRequest struct {
	Transaction *domain.Transaction      `json:"transaction"`
	Velocity    domain.VelocityMetrics   `json:"velocity"`
	Geography   domain.GeographicContext `json:"geography"`
}

type evaluateResponse struct {
	Triggers []domain.RuleTrigger `json:"triggers"`
}

// Evaluate submits the transaction and its gathered signals and returns
// the rules that fired.
func (c *RuleEngineClient) Evaluate(ctx context.Context, tx *domain.Transaction, velocity domain.VelocityMetrics, geo domain.GeographicContext) ([]domain.RuleTrigger, error) {
	body, err := json.Marshal(evaluateRequest{Transaction: tx, Velocity: velocity, Geography: geo})
	if err != nil {
		return nil, domain.NewExternalServiceError("rule-engine", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewExternalServiceError("rule-engine", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError("rule-engine", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, domain.NewExternalServiceError("rule-engine",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var decoded evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.NewExternalServiceError("rule-engine", err)
	}

	return decoded.Triggers, nil
}
