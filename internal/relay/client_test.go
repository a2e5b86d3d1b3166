package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	c, err := New(&Config{
		RelayURL: url,
		AuthKey:  key,
		Timeout:  time.Second,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	tests := []struct {
		name      string
		cfg       *Config
		expectErr bool
	}{
		{"nil-config", nil, true},
		{"empty-url", &Config{AuthKey: key, Logger: zap.NewNop()}, true},
		{"nil-auth-key", &Config{RelayURL: "https://relay", Logger: zap.NewNop()}, true},
		{"nil-logger", &Config{RelayURL: "https://relay", AuthKey: key}, true},
		{"valid", &Config{RelayURL: "https://relay", AuthKey: key, Logger: zap.NewNop()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.expectErr {
				t.Errorf("New() error = %v, expectErr %v", err, tt.expectErr)
			}
		})
	}
}

func TestSendBundle_SignsAndParses(t *testing.T) {
	var (
		gotSignature string
		gotBody      []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Flashbots-Signature")
		gotBody, _ = io.ReadAll(r.Body)

		_, _ = w.Write([]byte(`{"result":{"bundleHash":"0xbundlehash"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	hash, err := c.SendBundle(context.Background(), []string{"0xf86c0a"}, 18_500_001)
	if err != nil {
		t.Fatalf("SendBundle() error = %v", err)
	}
	if hash != "0xbundlehash" {
		t.Errorf("bundle hash = %q, want 0xbundlehash", hash)
	}

	// Header format: <identity address>:<signature hex>.
	parts := strings.SplitN(gotSignature, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed signature header %q", gotSignature)
	}
	if !common.IsHexAddress(parts[0]) {
		t.Errorf("identity %q is not an address", parts[0])
	}

	// The signature verifies against the payload the relay received.
	sig, err := hexutil.Decode(parts[1])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	digest := accounts.TextHash([]byte(hexutil.Encode(crypto.Keccak256(gotBody))))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		t.Fatalf("recover signer: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(parts[0]) {
		t.Error("signature does not recover the claimed identity")
	}

	// The body carries the JSON-RPC bundle envelope.
	var req struct {
		Method string `json:"method"`
		Params []struct {
			Txs         []string `json:"txs"`
			BlockNumber string   `json:"blockNumber"`
		} `json:"params"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if req.Method != "eth_sendBundle" {
		t.Errorf("method = %q, want eth_sendBundle", req.Method)
	}
	if len(req.Params) != 1 || len(req.Params[0].Txs) != 1 {
		t.Fatal("params do not carry one bundle with one tx")
	}
	if req.Params[0].BlockNumber != hexutil.EncodeUint64(18_500_001) {
		t.Errorf("blockNumber = %q", req.Params[0].BlockNumber)
	}
}

func TestSendBundle_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"relay-rejects-bundle",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":{"code":-32000,"message":"bundle underpriced"}}`))
			},
		},
		{
			"http-error-status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "relay overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			"missing-bundle-hash",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"result":{}}`))
			},
		},
		{
			"garbage-response",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := testClient(t, srv.URL)
			if _, err := c.SendBundle(context.Background(), []string{"0xf86c0a"}, 1); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSendBundle_EmptyBundle(t *testing.T) {
	c := testClient(t, "https://relay.invalid")
	if _, err := c.SendBundle(context.Background(), nil, 1); err == nil {
		t.Error("empty bundle accepted")
	}
}
