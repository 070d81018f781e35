package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultGraphQLEndpoint is Cloudflare's analytics API.
const DefaultGraphQLEndpoint = "https://api.cloudflare.com/client/v4/graphql"

// ErrAnalyticsDisabled is returned when no account or token is configured.
var ErrAnalyticsDisabled = errors.New("analytics not configured")

// AnalyticsSource fetches invocation metrics keyed by script name.
type AnalyticsSource interface {
	Fetch(ctx context.Context, scripts []string) (map[string]Analytics, error)
}

// CloudflareConfig configures the analytics client.
type CloudflareConfig struct {
	AccountID string
	APIToken  string
	Endpoint  string
	Timeout   time.Duration
}

// CloudflareClient queries Workers invocation analytics over GraphQL.
type CloudflareClient struct {
	cfg    CloudflareConfig
	client *http.Client
	now    func() time.Time
	logger *zap.Logger
}

// NewCloudflareClient creates a client.
func NewCloudflareClient(cfg CloudflareConfig, logger *zap.Logger) *CloudflareClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGraphQLEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CloudflareClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		logger: logger,
	}
}

const invocationsQuery = `query($account: String!, $since: Time!, $scripts: [String!]) {
  viewer {
    accounts(filter: {accountTag: $account}) {
      workersInvocationsAdaptive(
        filter: {datetime_gt: $since, scriptName_in: $scripts}
        limit: 100
        orderBy: [datetime_ASC]
      ) {
        dimensions { scriptName }
        sum { requests errors }
        quantiles { cpuTimeP50 }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type invocationRow struct {
	Dimensions struct {
		ScriptName string `json:"scriptName"`
	} `json:"dimensions"`
	Sum struct {
		Requests int64 `json:"requests"`
		Errors   int64 `json:"errors"`
	} `json:"sum"`
	Quantiles struct {
		CPUTimeP50 float64 `json:"cpuTimeP50"`
	} `json:"quantiles"`
}

type graphQLResponse struct {
	Data struct {
		Viewer struct {
			Accounts []struct {
				Rows []invocationRow `json:"workersInvocationsAdaptive"`
			} `json:"accounts"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Fetch returns 24h totals per script. Rows for the same script are summed;
// CPU time is the most recent row's median.
func (c *CloudflareClient) Fetch(ctx context.Context, scripts []string) (map[string]Analytics, error) {
	if c.cfg.AccountID == "" || c.cfg.APIToken == "" {
		return nil, ErrAnalyticsDisabled
	}
	body, err := json.Marshal(graphQLRequest{
		Query: invocationsQuery,
		Variables: map[string]any{
			"account": c.cfg.AccountID,
			"since":   c.now().Add(-24 * time.Hour).UTC().Format(time.RFC3339),
			"scripts": scripts,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analytics request: status %d", resp.StatusCode)
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("analytics query: %s", out.Errors[0].Message)
	}

	result := make(map[string]Analytics)
	if accts := out.Data.Viewer.Accounts; len(accts) > 0 {
		for _, row := range accts[0].Rows {
			a := result[row.Dimensions.ScriptName]
			a.Invocations24h += row.Sum.Requests
			a.Errors24h += row.Sum.Errors
			a.AvgCPUMs = row.Quantiles.CPUTimeP50
			result[row.Dimensions.ScriptName] = a
		}
	}
	c.logger.Debug("analytics fetched", zap.Int("scripts", len(result)))
	return result, nil
}
