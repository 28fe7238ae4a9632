package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltoken"
)

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func rpcServer(t *testing.T, handle func(req rpcRequest) string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(handle(req)))
	}))
}

func TestGetAccountInfo(t *testing.T) {
	owner := soltoken.TokenProgramID

	server := rpcServer(t, func(req rpcRequest) string {
		assert.Equal(t, "getAccountInfo", req.Method)
		return fmt.Sprintf(
			`{"jsonrpc":"2.0","id":1,"result":{"value":{"lamports":2039280,"owner":"%s"}}}`,
			owner,
		)
	})
	defer server.Close()

	kp, err := soltoken.NewKeypair()
	require.NoError(t, err)

	client := NewClient(server.URL, time.Second)
	info, err := client.GetAccountInfo(kp.PublicKey())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, uint64(2039280), info.Lamports)
	assert.Equal(t, owner, info.Owner)
}

func TestGetAccountInfo_Missing(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"value":null}}`
	})
	defer server.Close()

	kp, err := soltoken.NewKeypair()
	require.NoError(t, err)

	client := NewClient(server.URL, time.Second)
	info, err := client.GetAccountInfo(kp.PublicKey())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetLatestBlockhash(t *testing.T) {
	kp, err := soltoken.NewKeypair()
	require.NoError(t, err)
	encoded := kp.PublicKey().String()

	server := rpcServer(t, func(req rpcRequest) string {
		assert.Equal(t, "getLatestBlockhash", req.Method)
		return fmt.Sprintf(
			`{"jsonrpc":"2.0","id":1,"result":{"value":{"blockhash":"%s","lastValidBlockHeight":100}}}`,
			encoded,
		)
	})
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	hash, err := client.GetLatestBlockhash()
	require.NoError(t, err)
	assert.Equal(t, encoded, hash.String())
}

func TestSendTransaction(t *testing.T) {
	payer, err := soltoken.NewKeypair()
	require.NoError(t, err)
	program, err := soltoken.NewKeypair()
	require.NoError(t, err)

	var recent soltoken.Hash
	msg, err := soltoken.CompileMessage(payer.PublicKey(), recent, []soltoken.Instruction{{
		ProgramID: program.PublicKey(),
		Accounts:  []soltoken.AccountMeta{{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true}},
	}})
	require.NoError(t, err)

	tx, err := soltoken.NewTransaction(msg)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))

	server := rpcServer(t, func(req rpcRequest) string {
		assert.Equal(t, "sendTransaction", req.Method)
		return fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"result":"%s"}`, tx.Signatures[0])
	})
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	sig, err := client.SendTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0].String(), sig)
}

func TestCall_RpcErrorObject(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Blockhash not found"}}`
	})
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.GetLatestBlockhash()
	assert.True(t, errors.Is(err, soltoken.ErrRpcFailed))
	assert.Contains(t, err.Error(), "Blockhash not found")
}

func TestCall_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.GetLatestBlockhash()
	assert.True(t, errors.Is(err, soltoken.ErrTransport))
}

func TestGetSignatureStatus(t *testing.T) {
	responses := map[string]string{
		"confirmed-sig": `{"jsonrpc":"2.0","id":1,"result":{"value":[{"confirmationStatus":"finalized"}]}}`,
		"pending-sig":   `{"jsonrpc":"2.0","id":1,"result":{"value":[{"confirmationStatus":"processed"}]}}`,
		"unknown-sig":   `{"jsonrpc":"2.0","id":1,"result":{"value":[null]}}`,
	}

	server := rpcServer(t, func(req rpcRequest) string {
		assert.Equal(t, "getSignatureStatuses", req.Method)
		sigs, ok := req.Params[0].([]any)
		require.True(t, ok)
		return responses[sigs[0].(string)]
	})
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	confirmed, err := client.GetSignatureStatus("confirmed-sig")
	require.NoError(t, err)
	assert.True(t, confirmed)

	confirmed, err = client.GetSignatureStatus("pending-sig")
	require.NoError(t, err)
	assert.False(t, confirmed)

	confirmed, err = client.GetSignatureStatus("unknown-sig")
	require.NoError(t, err)
	assert.False(t, confirmed)
}
