package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Execution modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Submission paths.
const (
	SubmitBroadcast = "broadcast"
	SubmitBundle    = "bundle"
)

// ExecutionResult is the terminal record of one submission attempt.
type ExecutionResult struct {
	AttemptID     string
	OpportunityID string
	Mode          string
	Submission    string
	SubmittedAt   time.Time
	TxHash        common.Hash
	BundleHash    string
	Nonce         uint64
	Success       bool
	Err           error
}
