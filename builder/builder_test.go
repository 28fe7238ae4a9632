package builder

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltoken"
)

func unsignedTxBase64(t *testing.T, payer *soltoken.Keypair) string {
	t.Helper()

	program, err := soltoken.NewKeypair()
	require.NoError(t, err)

	var recent soltoken.Hash
	msg, err := soltoken.CompileMessage(payer.PublicKey(), recent, []soltoken.Instruction{{
		ProgramID: program.PublicKey(),
		Accounts:  []soltoken.AccountMeta{{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true}},
		Data:      []byte("op"),
	}})
	require.NoError(t, err)

	tx, err := soltoken.NewTransaction(msg)
	require.NoError(t, err)

	encoded, err := tx.EncodeBase64()
	require.NoError(t, err)

	return encoded
}

func TestFetchUnsigned(t *testing.T) {
	payer, err := soltoken.NewKeypair()
	require.NoError(t, err)

	id, err := soltoken.NewUserID("alice")
	require.NoError(t, err)

	encoded := unsignedTxBase64(t, payer)

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"tx": encoded})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	tx, err := client.FetchUnsigned(CreateUserOp{Payer: payer.PublicKey(), UserID: id})
	require.NoError(t, err)

	assert.Equal(t, "/create_user", gotPath)
	assert.Equal(t, payer.PublicKey().String(), gotBody["payer_pubkey"])
	assert.Equal(t, id.Base64(), gotBody["user_id"])
	assert.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero())
}

func TestFetchUnsigned_MapsRemoteErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   soltoken.ErrNotEnoughFunds.Error(),
			"details": "treasury has 0",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchUnsigned(MintOp{Amount: 1})

	assert.True(t, errors.Is(err, soltoken.ErrBuilderRejected))
	assert.Contains(t, err.Error(), soltoken.ErrNotEnoughFunds.Error())
}

func TestFetchUnsigned_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tx": "not base64!!"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchUnsigned(MintOp{Amount: 1})
	assert.True(t, errors.Is(err, soltoken.ErrMalformedResponse))

	serverEmpty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverEmpty.Close()

	client = NewClient(serverEmpty.URL, time.Second)
	_, err = client.FetchUnsigned(MintOp{Amount: 1})
	assert.True(t, errors.Is(err, soltoken.ErrMalformedResponse))
}

func TestFetchUnsigned_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchUnsigned(MintOp{Amount: 1})
	assert.True(t, errors.Is(err, soltoken.ErrBuilderUnavailable))
}

func TestBroadcast(t *testing.T) {
	payer, err := soltoken.NewKeypair()
	require.NoError(t, err)

	tx, err := soltoken.DecodeBase64Transaction(unsignedTxBase64(t, payer))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/broadcast", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"sig": "abc123"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	sig, err := client.Broadcast(tx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", sig)
}

func TestBroadcast_Rejected(t *testing.T) {
	payer, err := soltoken.NewKeypair()
	require.NoError(t, err)

	tx, err := soltoken.DecodeBase64Transaction(unsignedTxBase64(t, payer))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": soltoken.ErrUnknownUser.Error()})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err = client.Broadcast(tx)
	assert.True(t, errors.Is(err, soltoken.ErrBroadcastRejected))
	assert.Contains(t, err.Error(), soltoken.ErrUnknownUser.Error())
}

func TestQueries(t *testing.T) {
	id, err := soltoken.NewUserID("bob")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/balance_user":
			assert.Equal(t, http.MethodPost, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]uint64{"free_balance": 70, "frozen_balance": 30})
		case "/total_supply":
			assert.Equal(t, http.MethodGet, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]uint64{"amount": 1000, "decimals": 6})
		case "/balance_treasury":
			assert.Equal(t, http.MethodGet, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]uint64{"amount": 900, "decimals": 6})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	balance, err := client.BalanceUser(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), balance.Free)
	assert.Equal(t, uint64(30), balance.Frozen)

	supply, err := client.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), supply.Amount)
	assert.Equal(t, uint8(6), supply.Decimals)

	treasury, err := client.BalanceTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(900), treasury.Amount)
}

func TestQueries_ErrorsWrapErrQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": soltoken.ErrUnknownUser.Error()})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.TotalSupply()
	assert.True(t, errors.Is(err, soltoken.ErrQuery))
	assert.Contains(t, err.Error(), soltoken.ErrUnknownUser.Error())
}
