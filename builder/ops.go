package builder

import (
	"soltoken"
)

const (
	RouteCreateUser = "create_user"
	RouteMint       = "mint"
	RouteTransfer   = "transfer"
	RouteDeposit    = "deposit"
)

// Operation is the closed set of mutating ledger operations. One variant per
// builder route; adding or removing a route is a compile-time-checked change.
type Operation interface {
	Route() string
	body() any
}

type CreateUserOp struct {
	Payer  soltoken.PublicKey
	UserID soltoken.UserID
}

func (o CreateUserOp) Route() string { return RouteCreateUser }

func (o CreateUserOp) body() any {
	return struct {
		PayerPubkey string `json:"payer_pubkey"`
		UserID      string `json:"user_id"`
	}{
		PayerPubkey: o.Payer.String(),
		UserID:      o.UserID.Base64(),
	}
}

type MintOp struct {
	Payer  soltoken.PublicKey
	Mint   soltoken.PublicKey
	Amount uint64
}

func (o MintOp) Route() string { return RouteMint }

func (o MintOp) body() any {
	return struct {
		PayerPubkey string `json:"payer_pubkey"`
		MintPubkey  string `json:"mint_pubkey"`
		Amount      uint64 `json:"amount"`
	}{
		PayerPubkey: o.Payer.String(),
		MintPubkey:  o.Mint.String(),
		Amount:      o.Amount,
	}
}

type TransferOp struct {
	Payer            soltoken.PublicKey
	Mint             soltoken.PublicKey
	FromID           soltoken.UserID
	ToID             soltoken.UserID
	Amount           uint64
	FromTokenAccount soltoken.PublicKey
	ToTokenAccount   soltoken.PublicKey
}

func (o TransferOp) Route() string { return RouteTransfer }

func (o TransferOp) body() any {
	return struct {
		PayerPubkey      string `json:"payer_pubkey"`
		MintPubkey       string `json:"mint_pubkey"`
		FromID           string `json:"from_id"`
		ToID             string `json:"to_id"`
		Amount           uint64 `json:"amount"`
		FromTokenAccount string `json:"from_token_account"`
		ToTokenAccount   string `json:"to_token_account"`
	}{
		PayerPubkey:      o.Payer.String(),
		MintPubkey:       o.Mint.String(),
		FromID:           o.FromID.Base64(),
		ToID:             o.ToID.Base64(),
		Amount:           o.Amount,
		FromTokenAccount: o.FromTokenAccount.String(),
		ToTokenAccount:   o.ToTokenAccount.String(),
	}
}

type DepositOp struct {
	Payer            soltoken.PublicKey
	Mint             soltoken.PublicKey
	UserID           soltoken.UserID
	Amount           uint64
	UserTokenAccount soltoken.PublicKey
}

func (o DepositOp) Route() string { return RouteDeposit }

func (o DepositOp) body() any {
	return struct {
		PayerPubkey      string `json:"payer_pubkey"`
		MintPubkey       string `json:"mint_pubkey"`
		UserID           string `json:"user_id"`
		Amount           uint64 `json:"amount"`
		UserTokenAccount string `json:"user_token_account"`
	}{
		PayerPubkey:      o.Payer.String(),
		MintPubkey:       o.Mint.String(),
		UserID:           o.UserID.Base64(),
		Amount:           o.Amount,
		UserTokenAccount: o.UserTokenAccount.String(),
	}
}
