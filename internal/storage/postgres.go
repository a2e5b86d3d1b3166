package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"dexarb/pkg/types"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreSimulation stores a simulation result in PostgreSQL. Amounts are
// stored as numeric text, Postgres NUMERIC has no trouble with wei.
func (p *PostgresStorage) StoreSimulation(ctx context.Context, sim *types.SimulationResult) error {
	opp := sim.Opportunity

	var simErr sql.NullString
	if sim.Err != nil {
		simErr = sql.NullString{String: sim.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO simulations (
			opportunity_id, source_tx_hash, source_block, discovered_at,
			pool_leg1, pool_leg2, dex_leg1, dex_leg2,
			entry_amount, amount_out_leg1, amount_out_leg2,
			gross_profit, gas_cost, net_profit, net_profit_usd,
			profitable, reject_reason, sim_error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.SourceTxHash.Hex(),
		opp.SourceBlockNumber,
		opp.DiscoveredAt,
		opp.Path[0].PoolAddress.Hex(),
		opp.Path[1].PoolAddress.Hex(),
		opp.Path[0].DexName,
		opp.Path[1].DexName,
		bigString(sim.AmountInLeg1),
		bigString(sim.AmountOutLeg1),
		bigString(sim.AmountOutLeg2),
		bigString(sim.GrossProfit),
		bigString(sim.GasCost),
		bigString(sim.NetProfit),
		sim.NetProfitUSD,
		sim.Profitable,
		sim.Flags.Reason(),
		simErr,
	)

	if err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}

	p.logger.Debug("simulation-stored",
		zap.String("opportunity-id", opp.ID),
		zap.Bool("profitable", sim.Profitable))

	return nil
}

// StoreExecution stores an execution attempt outcome in PostgreSQL.
func (p *PostgresStorage) StoreExecution(ctx context.Context, res *types.ExecutionResult) error {
	var execErr sql.NullString
	if res.Err != nil {
		execErr = sql.NullString{String: res.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO executions (
			attempt_id, opportunity_id, mode, submission, submitted_at,
			tx_hash, bundle_hash, nonce, success, exec_error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		res.AttemptID,
		res.OpportunityID,
		res.Mode,
		res.Submission,
		res.SubmittedAt,
		res.TxHash.Hex(),
		res.BundleHash,
		res.Nonce,
		res.Success,
		execErr,
	)

	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	p.logger.Debug("execution-stored",
		zap.String("attempt-id", res.AttemptID),
		zap.Bool("success", res.Success))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
