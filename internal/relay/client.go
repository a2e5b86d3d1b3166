package relay

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	contentTypeJSON  = "application/json"
	signatureHeader  = "X-Flashbots-Signature"
	methodSendBundle = "eth_sendBundle"
)

// Client submits single-transaction bundles to a private relay,
// bypassing the public transaction pool. Requests are authenticated by
// signing the payload hash with a relay identity key.
type Client struct {
	relayURL   string
	authKey    *ecdsa.PrivateKey
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds relay client configuration.
type Config struct {
	RelayURL string
	AuthKey  *ecdsa.PrivateKey
	Timeout  time.Duration
	Logger   *zap.Logger
}

// New creates a relay client.
func New(cfg *Config) (c *Client, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RelayURL == "" {
		return nil, errors.New("relay URL cannot be empty")
	}
	if cfg.AuthKey == nil {
		return nil, errors.New("auth key cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	c = &Client{
		relayURL: cfg.RelayURL,
		authKey:  cfg.AuthKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: cfg.Logger,
	}

	return c, nil
}

type bundleParams struct {
	Txs         []string `json:"txs"`
	BlockNumber string   `json:"blockNumber"`
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result *struct {
		BundleHash string `json:"bundleHash"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendBundle submits the signed raw transactions targeting one block.
func (c *Client) SendBundle(ctx context.Context, signedTxs []string, targetBlock uint64) (bundleHash string, err error) {
	if len(signedTxs) == 0 {
		return "", errors.New("bundle cannot be empty")
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  methodSendBundle,
		Params: []interface{}{
			bundleParams{
				Txs:         signedTxs,
				BlockNumber: hexutil.EncodeUint64(targetBlock),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	header, err := c.signPayload(payload)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(signatureHeader, header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		BundlesTotal.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		BundlesTotal.WithLabelValues("http_error").Inc()
		return "", fmt.Errorf("relay returned status %d: %s", resp.StatusCode, body)
	}

	var decoded rpcResponse
	err = json.Unmarshal(body, &decoded)
	if err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}

	if decoded.Error != nil {
		BundlesTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("relay rejected bundle: %s (code %d)", decoded.Error.Message, decoded.Error.Code)
	}
	if decoded.Result == nil || decoded.Result.BundleHash == "" {
		return "", errors.New("relay response has no bundle hash")
	}

	BundlesTotal.WithLabelValues("accepted").Inc()

	c.logger.Info("bundle-accepted",
		zap.String("bundle_hash", decoded.Result.BundleHash),
		zap.Uint64("target_block", targetBlock),
		zap.Int("tx_count", len(signedTxs)))

	return decoded.Result.BundleHash, nil
}

// signPayload produces the relay authentication header: the identity
// address and a signature over the hashed payload.
func (c *Client) signPayload(payload []byte) (string, error) {
	digest := accounts.TextHash([]byte(hexutil.Encode(crypto.Keccak256(payload))))

	sig, err := crypto.Sign(digest, c.authKey)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%s",
		crypto.PubkeyToAddress(c.authKey.PublicKey).Hex(),
		hexutil.Encode(sig),
	), nil
}
