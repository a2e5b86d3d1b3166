package sequencer

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"dexarb/internal/testutil"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
)

func unsignedTx() *ethtypes.Transaction {
	to := testutil.RouterA
	return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     7,
		GasTipCap: big.NewInt(2e9),
		GasFeeCap: big.NewInt(40e9),
		Gas:       300_000,
		To:        &to,
		Value:     new(big.Int),
		Data:      []byte{0x01, 0x02},
	})
}

func TestSignTx_LocalSignerRecoversAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	signer := ethtypes.LatestSignerForChainID(big.NewInt(1))

	signed, err := SignTx(context.Background(), unsignedTx(), signer, NewLocalSigner(key), account)
	if err != nil {
		t.Fatalf("SignTx() error = %v", err)
	}

	sender, err := ethtypes.Sender(signer, signed)
	if err != nil {
		t.Fatalf("Sender() error = %v", err)
	}
	if sender != account {
		t.Errorf("recovered %s, want %s", sender.Hex(), account.Hex())
	}
}

func TestSignTx_WrongAccountIsMismatch(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	signer := ethtypes.LatestSignerForChainID(big.NewInt(1))

	// Neither recovery bit can recover an address the key does not own.
	_, err = SignTx(context.Background(), unsignedTx(), signer, NewLocalSigner(key), testutil.BotAccount)
	if !errors.Is(err, types.ErrSignerMismatch) {
		t.Errorf("err = %v, want ErrSignerMismatch", err)
	}
}

func TestSignTx_SignerErrorPropagates(t *testing.T) {
	signer := ethtypes.LatestSignerForChainID(big.NewInt(1))
	failing := signDigestFunc(func(ctx context.Context, digest common.Hash) (r, s [32]byte, err error) {
		return r, s, errors.New("hsm offline")
	})

	if _, err := SignTx(context.Background(), unsignedTx(), signer, failing, testutil.BotAccount); err == nil {
		t.Error("expected error, got nil")
	}
}

type signDigestFunc func(ctx context.Context, digest common.Hash) (r, s [32]byte, err error)

func (f signDigestFunc) SignDigest(ctx context.Context, digest common.Hash) (r, s [32]byte, err error) {
	return f(ctx, digest)
}

func TestNewHTTPSigner_EmptyURL(t *testing.T) {
	if _, err := NewHTTPSigner(""); err == nil {
		t.Error("empty URL accepted")
	}
}

// TestHTTPSigner_SignDigest backs the HTTP signer with a real key behind
// the wire protocol, so the signature stays verifiable end to end.
func TestHTTPSigner_SignDigest(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		digest := common.HexToHash(req.Digest)
		sig, err := crypto.Sign(digest.Bytes(), key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(signResponse{
			R: hexutil.Encode(sig[:32]),
			S: hexutil.Encode(sig[32:64]),
		})
	}))
	defer srv.Close()

	hs, err := NewHTTPSigner(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPSigner() error = %v", err)
	}

	signer := ethtypes.LatestSignerForChainID(big.NewInt(1))
	signed, err := SignTx(context.Background(), unsignedTx(), signer, hs, account)
	if err != nil {
		t.Fatalf("SignTx() error = %v", err)
	}

	sender, err := ethtypes.Sender(signer, signed)
	if err != nil {
		t.Fatalf("Sender() error = %v", err)
	}
	if sender != account {
		t.Errorf("recovered %s, want %s", sender.Hex(), account.Hex())
	}
}

func TestHTTPSigner_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http-error-status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unauthorized", http.StatusForbidden)
			},
		},
		{
			"signer-side-error",
			func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(signResponse{Error: "key not loaded"})
			},
		},
		{
			"malformed-r-component",
			func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(signResponse{R: "0x01", S: "0x02"})
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

			hs, err := NewHTTPSigner(srv.URL)
			if err != nil {
				t.Fatalf("NewHTTPSigner() error = %v", err)
			}

			if _, _, err := hs.SignDigest(context.Background(), common.HexToHash("0xabc")); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
