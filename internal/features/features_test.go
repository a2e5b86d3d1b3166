package features

import (
	"context"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dexarb/internal/testutil"
	"dexarb/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestNewSchema(t *testing.T) {
	tests := []struct {
		name        string
		expected    []string
		expectErr   bool
		expectNames int
	}{
		{"empty-means-full-contract", nil, false, 16},
		{"subset", []string{FeatNetProfitUSD, FeatMaxFeeGwei}, false, 2},
		{"unknown-feature-rejected", []string{FeatNetProfitUSD, "poolVolatility24h"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchema(tt.expected)
			if (err != nil) != tt.expectErr {
				t.Fatalf("NewSchema() error = %v, expectErr %v", err, tt.expectErr)
			}
			if err != nil {
				return
			}
			if len(s.Names()) != tt.expectNames {
				t.Errorf("Names() length = %d, want %d", len(s.Names()), tt.expectNames)
			}
		})
	}
}

func testInputs() Inputs {
	sim := testutil.SimulationResult()
	sim.Opportunity.DiscoveredAt = time.Now().Add(-250 * time.Millisecond)
	return Inputs{
		Sim: sim,
		Gas: &types.GasParams{
			MaxFeePerGas:         big.NewInt(42e9),
			MaxPriorityFeePerGas: big.NewInt(2e9),
		},
		GasCostUSD:   12.5,
		CurrentBlock: 18_500_000,
		BaseFee:      big.NewInt(20e9),
	}
}

func TestVector_PopulatesContract(t *testing.T) {
	s, err := NewSchema(nil)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	vec := s.Vector(testInputs())

	if len(vec) != 16 {
		t.Fatalf("vector has %d entries, want 16", len(vec))
	}

	checks := map[string]float64{
		FeatNetProfitUSD:    48.0,
		FeatGasCostUSD:      12.5,
		FeatPathLength:      2,
		FeatTokenCount:      2,
		FeatDexCount:        2, // uniswap-v2 + sushiswap
		FeatCrossDex:        1,
		FeatBlockNumber:     18_500_000,
		FeatBaseFeeGwei:     20,
		FeatMaxFeeGwei:      42,
		FeatPriorityFeeGwei: 2,
	}
	for name, want := range checks {
		if got := vec[name]; math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	// Inapplicable keys carry neutral defaults, not absence.
	for _, name := range []string{FeatUsesFlashLoan, FeatFlashLoanAmountUSD, FeatFlashLoanFeeUSD, FeatMinLiquidityUSD, FeatAvgLiquidityUSD} {
		got, ok := vec[name]
		if !ok {
			t.Errorf("%s missing from vector", name)
			continue
		}
		if got != 0 {
			t.Errorf("%s = %v, want neutral 0", name, got)
		}
	}

	if vec[FeatOpportunityAgeMS] < 200 {
		t.Errorf("%s = %v, want >= 200", FeatOpportunityAgeMS, vec[FeatOpportunityAgeMS])
	}
}

func TestVector_SameDexPath(t *testing.T) {
	s, err := NewSchema(nil)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	in := testInputs()
	in.Sim.Opportunity.Path[1].DexName = in.Sim.Opportunity.Path[0].DexName

	vec := s.Vector(in)
	if vec[FeatCrossDex] != 0 {
		t.Errorf("%s = %v, want 0", FeatCrossDex, vec[FeatCrossDex])
	}
	if vec[FeatDexCount] != 1 {
		t.Errorf("%s = %v, want 1", FeatDexCount, vec[FeatDexCount])
	}
}

func TestVector_SubsetSchemaOmitsOthers(t *testing.T) {
	s, err := NewSchema([]string{FeatNetProfitUSD, FeatBaseFeeGwei})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	vec := s.Vector(testInputs())
	if len(vec) != 2 {
		t.Fatalf("vector has %d entries, want 2", len(vec))
	}
	if _, ok := vec[FeatPathLength]; ok {
		t.Error("unselected feature present in vector")
	}
}

func TestVector_NilBaseFee(t *testing.T) {
	s, err := NewSchema(nil)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	in := testInputs()
	in.BaseFee = nil

	if got := s.Vector(in)[FeatBaseFeeGwei]; got != 0 {
		t.Errorf("%s = %v with nil base fee, want 0", FeatBaseFeeGwei, got)
	}
}

func TestConstantScorer(t *testing.T) {
	score, err := ConstantScorer(-1).Score(context.Background(), nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score != -1 {
		t.Errorf("Score() = %v, want -1", score)
	}
}

func TestNewHTTPScorer_Validation(t *testing.T) {
	if _, err := NewHTTPScorer(HTTPScorerConfig{Logger: zap.NewNop()}); err == nil {
		t.Error("empty URL accepted")
	}
	if _, err := NewHTTPScorer(HTTPScorerConfig{URL: "http://model"}); err == nil {
		t.Error("nil logger accepted")
	}
}

func TestHTTPScorer_Score(t *testing.T) {
	var gotFeatures map[string]float64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFeatures = req.Features
		_ = json.NewEncoder(w).Encode(scoreResponse{Probability: 0.83})
	}))
	defer srv.Close()

	s, err := NewHTTPScorer(HTTPScorerConfig{URL: srv.URL, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewHTTPScorer() error = %v", err)
	}

	score, err := s.Score(context.Background(), map[string]float64{FeatPathLength: 2})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score != 0.83 {
		t.Errorf("Score() = %v, want 0.83", score)
	}
	if gotFeatures[FeatPathLength] != 2 {
		t.Errorf("model received %v for %s, want 2", gotFeatures[FeatPathLength], FeatPathLength)
	}
}

func TestHTTPScorer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"model-side-error",
			func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(scoreResponse{Error: "model not loaded"})
			},
		},
		{
			"http-error-status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			"probability-above-one",
			func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(scoreResponse{Probability: 1.2})
			},
		},
		{
			"negative-probability",
			func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(scoreResponse{Probability: -0.1})
			},
		},
		{
			"garbage-body",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s, err := NewHTTPScorer(HTTPScorerConfig{URL: srv.URL, Logger: zap.NewNop()})
			if err != nil {
				t.Fatalf("NewHTTPScorer() error = %v", err)
			}

			score, err := s.Score(context.Background(), nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if score != -1 {
				t.Errorf("failure score = %v, want -1 sentinel", score)
			}
		})
	}
}
