package sequencer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
)

// DigestSigner produces an (r, s) signature over a 32-byte digest. The
// recovery bit is not part of the protocol; SignTx derives it by trial
// recovery against the known account address.
type DigestSigner interface {
	SignDigest(ctx context.Context, digest common.Hash) (r, s [32]byte, err error)
}

// HTTPSigner talks to a remote signing service over a minimal
// digest-signing protocol: request {digest}, response {r, s}.
type HTTPSigner struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSigner creates a remote signer client.
func NewHTTPSigner(url string) (*HTTPSigner, error) {
	if url == "" {
		return nil, errors.New("signer URL cannot be empty")
	}

	return &HTTPSigner{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

type signRequest struct {
	Digest string `json:"digest"`
}

type signResponse struct {
	R     string `json:"r"`
	S     string `json:"s"`
	Error string `json:"error,omitempty"`
}

// SignDigest requests a signature over the digest.
func (h *HTTPSigner) SignDigest(ctx context.Context, digest common.Hash) (r, s [32]byte, err error) {
	payload, err := json.Marshal(signRequest{Digest: digest.Hex()})
	if err != nil {
		return r, s, fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return r, s, fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return r, s, fmt.Errorf("signer request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return r, s, fmt.Errorf("signer returned status %d", resp.StatusCode)
	}

	var decoded signResponse
	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return r, s, fmt.Errorf("decode sign response: %w", err)
	}
	if decoded.Error != "" {
		return r, s, fmt.Errorf("signer error: %s", decoded.Error)
	}

	rBytes, err := hexutil.Decode(decoded.R)
	if err != nil || len(rBytes) != 32 {
		return r, s, fmt.Errorf("signer returned malformed r component")
	}
	sBytes, err := hexutil.Decode(decoded.S)
	if err != nil || len(sBytes) != 32 {
		return r, s, fmt.Errorf("signer returned malformed s component")
	}

	copy(r[:], rBytes)
	copy(s[:], sBytes)

	return r, s, nil
}

// LocalSigner signs digests with an in-process key. Used in tests and
// paper deployments without a signing service.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalSigner wraps a private key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// SignDigest signs the digest and discards the recovery bit, matching
// the remote protocol.
func (l *LocalSigner) SignDigest(ctx context.Context, digest common.Hash) (r, s [32]byte, err error) {
	sig, err := crypto.Sign(digest.Bytes(), l.key)
	if err != nil {
		return r, s, err
	}

	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])

	return r, s, nil
}

// SignTx signs a transaction through a DigestSigner and derives the
// recovery bit by trial-recovering both parities against the account
// address. Key encodings never get hand-parsed here; recovery goes
// through the curve library.
func SignTx(ctx context.Context, tx *ethtypes.Transaction, signer ethtypes.Signer, ds DigestSigner, account common.Address) (*ethtypes.Transaction, error) {
	digest := signer.Hash(tx)

	r, s, err := ds.SignDigest(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])

	for v := byte(0); v < 2; v++ {
		sig[64] = v

		pub, err := crypto.Ecrecover(digest.Bytes(), sig)
		if err != nil {
			continue
		}

		recovered := common.BytesToAddress(crypto.Keccak256(pub[1:])[12:])
		if recovered == account {
			return tx.WithSignature(signer, sig)
		}
	}

	return nil, types.ErrSignerMismatch
}
