// Package rpc is a minimal JSON-RPC client for the ledger network node. It
// covers only what account resolution needs: account lookups, a recent
// blockhash, transaction submission and confirmation-status lookups.
package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"soltoken"
)

func NewClient(url string, timeout time.Duration) (client *Client) {
	if timeout <= 0 {
		timeout = soltoken.DefaultTimeout
	}
	client = &Client{
		URL:  url,
		http: &http.Client{Timeout: timeout},
	}
	return
}

type Client struct {
	URL  string
	http *http.Client
}

func (c *Client) call(method string, params any) (result gjson.Result, err error) {
	jsn, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	rsp, err := c.http.Post(c.URL, "application/json", bytes.NewReader(jsn))
	if err != nil {
		err = errors.Wrapf(soltoken.ErrTransport, "%s: %v", method, err)
		return
	}
	defer func() {
		_ = rsp.Body.Close()
	}()

	out, err := io.ReadAll(rsp.Body)
	if err != nil {
		err = errors.Wrapf(soltoken.ErrTransport, "%s: %v", method, err)
		return
	}

	parsed := gjson.ParseBytes(out)
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		err = errors.Wrapf(
			soltoken.ErrRpcFailed,
			"%s: %s (code %d)",
			method,
			rpcErr.Get("message").String(),
			rpcErr.Get("code").Int(),
		)
		return
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		err = errors.Wrapf(soltoken.ErrRpcFailed, "%s: status %d with body %s", method, rsp.StatusCode, string(out))
		return
	}

	result = parsed.Get("result")
	return
}

type AccountInfo struct {
	Owner    soltoken.PublicKey
	Lamports uint64
}

// GetAccountInfo returns nil when no account exists at the address.
func (c *Client) GetAccountInfo(address soltoken.PublicKey) (info *AccountInfo, err error) {
	result, err := c.call("getAccountInfo", []any{
		address.String(),
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return
	}

	value := result.Get("value")
	if !value.Exists() || value.Type == gjson.Null {
		return
	}

	info = &AccountInfo{
		Lamports: value.Get("lamports").Uint(),
	}
	if owner := value.Get("owner").String(); owner != "" {
		if info.Owner, err = soltoken.ParsePublicKey(owner); err != nil {
			err = errors.Wrapf(soltoken.ErrRpcFailed, "getAccountInfo: %v", err)
			info = nil
			return
		}
	}

	return
}

func (c *Client) GetLatestBlockhash() (hash soltoken.Hash, err error) {
	result, err := c.call("getLatestBlockhash", []any{})
	if err != nil {
		return
	}

	encoded := result.Get("value.blockhash").String()
	if encoded == "" {
		err = errors.Wrap(soltoken.ErrRpcFailed, "getLatestBlockhash: no blockhash in response")
		return
	}

	hash, err = soltoken.ParseHash(encoded)
	err = errors.Wrapf(err, "getLatestBlockhash")
	return
}

func (c *Client) SendTransaction(tx *soltoken.Transaction) (sig string, err error) {
	encoded, err := tx.EncodeBase64()
	if err != nil {
		return
	}

	result, err := c.call("sendTransaction", []any{
		encoded,
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return
	}

	sig = result.String()
	if sig == "" {
		err = errors.Wrap(soltoken.ErrRpcFailed, "sendTransaction: no signature in response")
	}

	return
}

// GetSignatureStatus reports whether the transaction with the given
// confirmation id has been included.
func (c *Client) GetSignatureStatus(sig string) (confirmed bool, err error) {
	result, err := c.call("getSignatureStatuses", []any{[]string{sig}})
	if err != nil {
		return
	}

	status := result.Get("value.0")
	if !status.Exists() || status.Type == gjson.Null {
		return
	}

	switch status.Get("confirmationStatus").String() {
	case "confirmed", "finalized":
		confirmed = true
	}

	return
}
