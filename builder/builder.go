// Package builder is the typed client for the remote transaction builder
// service. It fetches unsigned transactions for the closed set of ledger
// operations, submits signed transactions for broadcast, and serves the
// read-only balance and supply queries.
package builder

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"soltoken"
)

func NewClient(baseURL string, timeout time.Duration) (client *Client) {
	if timeout <= 0 {
		timeout = soltoken.DefaultTimeout
	}
	client = &Client{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     soltoken.Log(),
	}
	return
}

type Client struct {
	BaseURL string
	http    *http.Client
	log     *zerolog.Logger
}

// req performs the round trip. A non-nil err means the request never
// produced a response (connection failure, timeout); status handling is
// left to the caller since each pipeline stage maps it differently.
func (c *Client) req(method, path string, body io.Reader) (status int, out []byte, err error) {
	httpReq, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	if method == http.MethodPost {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	rsp, err := c.http.Do(httpReq)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	defer func() {
		_ = rsp.Body.Close()
	}()

	status = rsp.StatusCode

	out, err = io.ReadAll(rsp.Body)
	err = errors.WithStack(err)
	return
}

func (c *Client) post(path string, in any) (status int, out []byte, err error) {
	jsn, err := json.Marshal(in)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	return c.req(http.MethodPost, path, bytes.NewReader(jsn))
}

// serviceError is the builder's error body. Known error strings map back to
// the package sentinels so callers can use errors.Is across the boundary.
type serviceError struct {
	Err     string `json:"error"`
	Details string `json:"details"`
}

func remoteError(out []byte) error {
	errRsp := &serviceError{}
	if decodeErr := json.Unmarshal(out, errRsp); decodeErr != nil || errRsp.Err == "" {
		return nil
	}
	for _, known := range soltoken.AllErrors {
		if errRsp.Err == known.Error() {
			if errRsp.Details != "" {
				return errors.Wrap(known, errRsp.Details)
			}
			return known
		}
	}
	return errors.New(errRsp.Err)
}

// FetchUnsigned requests the unsigned transaction for op from the builder
// service and deserializes it. The service is the authority on whether the
// operation is well formed; no field semantics are re-validated here.
func (c *Client) FetchUnsigned(op Operation) (tx *soltoken.Transaction, err error) {
	c.log.Debug().Msgf("fetching unsigned %s transaction", op.Route())

	status, out, err := c.post("/"+op.Route(), op.body())
	if err != nil {
		err = errors.Wrapf(soltoken.ErrBuilderUnavailable, "%s: %v", op.Route(), err)
		return
	}

	if status < 200 || status > 299 {
		if remote := remoteError(out); remote != nil {
			err = errors.Wrapf(soltoken.ErrBuilderRejected, "%s: %v", op.Route(), remote)
			return
		}
		err = errors.Wrapf(soltoken.ErrBuilderRejected, "%s: status %d with body %s", op.Route(), status, string(out))
		return
	}

	payload := &struct {
		Tx string `json:"tx"`
	}{}
	if err = json.Unmarshal(out, payload); err != nil || payload.Tx == "" {
		err = errors.Wrapf(soltoken.ErrMalformedResponse, "%s: no transaction in body %s", op.Route(), string(out))
		return
	}

	tx, err = soltoken.DecodeBase64Transaction(payload.Tx)
	if err != nil {
		err = errors.Wrapf(soltoken.ErrMalformedResponse, "%s: %v", op.Route(), err)
		return
	}

	return
}

// Broadcast submits the signed transaction and returns the confirmation id.
// There is no automatic retry: resubmitting without first checking inclusion
// risks a duplicate-effect submission.
func (c *Client) Broadcast(tx *soltoken.Transaction) (sig string, err error) {
	encoded, err := tx.EncodeBase64()
	if err != nil {
		return
	}

	c.log.Debug().Msgf("broadcasting transaction with %d signatures", len(tx.Signatures))

	status, out, err := c.post("/broadcast", map[string]string{"tx": encoded})
	if err != nil {
		err = errors.Wrapf(soltoken.ErrTransport, "broadcast: %v", err)
		return
	}

	if status < 200 || status > 299 {
		if remote := remoteError(out); remote != nil {
			err = errors.Wrapf(soltoken.ErrBroadcastRejected, "%v", remote)
			return
		}
		err = errors.Wrapf(soltoken.ErrBroadcastRejected, "status %d with body %s", status, string(out))
		return
	}

	payload := &struct {
		Sig string `json:"sig"`
	}{}
	if err = json.Unmarshal(out, payload); err != nil || payload.Sig == "" {
		err = errors.Wrapf(soltoken.ErrMalformedResponse, "broadcast: no confirmation id in body %s", string(out))
		return
	}

	sig = payload.Sig
	return
}

type UserBalance struct {
	Free   uint64 `json:"free_balance"`
	Frozen uint64 `json:"frozen_balance"`
}

type SupplyInfo struct {
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

func (c *Client) query(method, path string, in, target any) (err error) {
	var status int
	var out []byte

	if method == http.MethodGet {
		status, out, err = c.req(http.MethodGet, path, nil)
	} else {
		status, out, err = c.post(path, in)
	}
	if err != nil {
		err = errors.Wrapf(soltoken.ErrQuery, "%s: %v", path, err)
		return
	}

	if status < 200 || status > 299 {
		if remote := remoteError(out); remote != nil {
			err = errors.Wrapf(soltoken.ErrQuery, "%s: %v", path, remote)
			return
		}
		err = errors.Wrapf(soltoken.ErrQuery, "%s: status %d with body %s", path, status, string(out))
		return
	}

	if err = json.Unmarshal(out, target); err != nil {
		err = errors.Wrapf(soltoken.ErrQuery, "%s: unable to unmarshal body %s", path, string(out))
		return
	}

	return
}

func (c *Client) BalanceUser(id soltoken.UserID) (out *UserBalance, err error) {
	out = &UserBalance{}
	err = c.query(http.MethodPost, "/balance_user", map[string]string{"user_id": id.Base64()}, out)
	return
}

func (c *Client) TotalSupply() (out *SupplyInfo, err error) {
	out = &SupplyInfo{}
	err = c.query(http.MethodGet, "/total_supply", nil, out)
	return
}

func (c *Client) BalanceTreasury() (out *SupplyInfo, err error) {
	out = &SupplyInfo{}
	err = c.query(http.MethodGet, "/balance_treasury", nil, out)
	return
}
