package features

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Scorer predicts the probability that a submitted transaction lands
// successfully. Scores are in [0, 1]; a negative score means no
// prediction is available and downstream consumers fall back to their
// conservative defaults.
type Scorer interface {
	Score(ctx context.Context, features map[string]float64) (float64, error)
}

// ConstantScorer returns a fixed score. Used when no model endpoint is
// configured; a negative constant disables score-driven behavior.
type ConstantScorer float64

func (c ConstantScorer) Score(_ context.Context, _ map[string]float64) (float64, error) {
	return float64(c), nil
}

// HTTPScorer calls an external model service.
type HTTPScorer struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPScorerConfig holds the parameters for NewHTTPScorer.
type HTTPScorerConfig struct {
	URL     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewHTTPScorer creates a scorer client against a model service.
func NewHTTPScorer(cfg HTTPScorerConfig) (s *HTTPScorer, err error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("scorer URL is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	return &HTTPScorer{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}, nil
}

type scoreRequest struct {
	Features map[string]float64 `json:"features"`
}

type scoreResponse struct {
	Probability float64 `json:"probability"`
	Error       string  `json:"error,omitempty"`
}

// Score posts the feature vector and returns the model's probability.
func (s *HTTPScorer) Score(ctx context.Context, features map[string]float64) (float64, error) {
	start := time.Now()

	body, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return -1, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("failed to read score response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("score request returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed scoreResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("failed to parse score response: %w", err)
	}
	if parsed.Error != "" {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("model error: %s", parsed.Error)
	}
	if parsed.Probability < 0 || parsed.Probability > 1 {
		ScoreRequestsTotal.WithLabelValues("error").Inc()
		return -1, fmt.Errorf("model returned probability %f outside [0, 1]", parsed.Probability)
	}

	ScoreRequestsTotal.WithLabelValues("success").Inc()
	ScoreDurationSeconds.Observe(time.Since(start).Seconds())
	ScoreDistribution.Observe(parsed.Probability)

	s.logger.Debug("scored-opportunity",
		zap.Float64("probability", parsed.Probability),
		zap.Duration("duration", time.Since(start)))

	return parsed.Probability, nil
}
