// Package ledger composes the fetch → sign → broadcast pipeline for each
// mutating ledger operation, and surfaces the read-only queries. Each call
// is a terminal pipeline: a failure at any stage aborts the whole call and
// the caller decides whether to retry from scratch.
package ledger

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"soltoken"
	"soltoken/builder"
	"soltoken/rpc"
)

// NodeClient is the slice of the network node the ledger needs for account
// resolution and confirmation lookups.
type NodeClient interface {
	GetAccountInfo(address soltoken.PublicKey) (info *rpc.AccountInfo, err error)
	GetLatestBlockhash() (hash soltoken.Hash, err error)
	SendTransaction(tx *soltoken.Transaction) (sig string, err error)
	GetSignatureStatus(sig string) (confirmed bool, err error)
}

var _ NodeClient = &rpc.Client{}

type Options struct {
	Config  *soltoken.Config
	Keypair *soltoken.Keypair
	Builder *builder.Client
	Node    NodeClient
	Store   soltoken.Database
	Log     *zerolog.Logger
}

func New(options Options) (l *Ledger, err error) {
	if options.Config == nil {
		err = errors.New("ledger requires a config")
		return
	}
	if options.Keypair == nil {
		err = errors.New("ledger requires a keypair")
		return
	}
	if options.Builder == nil {
		err = errors.New("ledger requires a builder client")
		return
	}
	if options.Store == nil {
		options.Store = soltoken.NewInMemoryDatabase()
	}
	if options.Log == nil {
		options.Log = soltoken.Log()
	}

	l = &Ledger{
		cfg:      options.Config,
		keypair:  options.Keypair,
		builder:  options.Builder,
		node:     options.Node,
		store:    options.Store,
		resolver: NewResolver(options.Node, options.Log),
		log:      options.Log,
	}

	return
}

type Ledger struct {
	cfg      *soltoken.Config
	keypair  *soltoken.Keypair
	builder  *builder.Client
	node     NodeClient
	store    soltoken.Database
	resolver *Resolver
	log      *zerolog.Logger
}

// submit runs the pipeline for one operation. No stage inspects or branches
// on the unsigned transaction's contents.
func (l *Ledger) submit(op builder.Operation) (sig string, err error) {
	l.log.Info().Msgf("executing %s", op.Route())

	tx, err := l.builder.FetchUnsigned(op)
	if err != nil {
		return
	}

	if err = tx.Sign(l.keypair); err != nil {
		return
	}

	sig, err = l.builder.Broadcast(tx)
	if err != nil {
		return
	}

	// Already broadcast at this point: a failed log write must not fail the
	// operation.
	if storeErr := l.store.RecordSubmission(soltoken.Submission{
		Signature: sig,
		Route:     op.Route(),
		Payer:     l.keypair.PublicKey().String(),
	}); storeErr != nil {
		l.log.Error().Msgf("failed to record submission %s: %+v", sig, storeErr)
	}

	l.log.Info().Msgf("%s confirmed as %s", op.Route(), sig)

	return
}

func (l *Ledger) CreateUser(id soltoken.UserID) (sig string, err error) {
	return l.submit(builder.CreateUserOp{
		Payer:  l.keypair.PublicKey(),
		UserID: id,
	})
}

func (l *Ledger) MintToTreasury(amount uint64) (sig string, err error) {
	return l.submit(builder.MintOp{
		Payer:  l.keypair.PublicKey(),
		Mint:   l.cfg.MintPubkey,
		Amount: amount,
	})
}

// TransferFromTreasury moves amount from the treasury token account to the
// user's token account. The user id is both source and destination on the
// ledger side; the token accounts carry the actual funds.
func (l *Ledger) TransferFromTreasury(id soltoken.UserID, amount uint64, treasuryAccount, userTokenAccount soltoken.PublicKey) (sig string, err error) {
	return l.submit(builder.TransferOp{
		Payer:            l.keypair.PublicKey(),
		Mint:             l.cfg.MintPubkey,
		FromID:           id,
		ToID:             id,
		Amount:           amount,
		FromTokenAccount: treasuryAccount,
		ToTokenAccount:   userTokenAccount,
	})
}

// DepositToUser credits amount to the user's free balance. treasuryAccount
// is accepted for call-site symmetry with TransferFromTreasury; the builder
// derives the treasury side itself.
func (l *Ledger) DepositToUser(id soltoken.UserID, amount uint64, treasuryAccount, userTokenAccount soltoken.PublicKey) (sig string, err error) {
	_ = treasuryAccount

	return l.submit(builder.DepositOp{
		Payer:            l.keypair.PublicKey(),
		Mint:             l.cfg.MintPubkey,
		UserID:           id,
		Amount:           amount,
		UserTokenAccount: userTokenAccount,
	})
}

func (l *Ledger) BalanceOfUser(id soltoken.UserID) (out *builder.UserBalance, err error) {
	return l.builder.BalanceUser(id)
}

func (l *Ledger) TotalSupply() (out *builder.SupplyInfo, err error) {
	return l.builder.TotalSupply()
}

func (l *Ledger) BalanceOfTreasury() (out *builder.SupplyInfo, err error) {
	return l.builder.BalanceTreasury()
}

// TreasuryAddress derives the program's treasury token account for the
// configured mint. Pure, recomputed on demand.
func (l *Ledger) TreasuryAddress() (addr soltoken.PublicKey, bump uint8, err error) {
	return soltoken.FindProgramAddress(
		[][]byte{[]byte("treasury"), l.cfg.MintPubkey.Bytes()},
		l.cfg.ProgramID,
	)
}

// EnsureTokenAccount resolves the payer's associated token account for the
// configured mint, creating it on-chain when absent. Idempotent.
func (l *Ledger) EnsureTokenAccount() (addr soltoken.PublicKey, err error) {
	if l.node == nil {
		err = errors.New("ledger has no node client configured")
		return
	}
	return l.resolver.EnsureTokenAccount(l.keypair, l.cfg.MintPubkey)
}

// Confirmed reports whether a previously broadcast transaction was included,
// by confirmation id. A caller retrying a pipeline should check this first
// to avoid a duplicate-effect submission.
func (l *Ledger) Confirmed(sig string) (confirmed bool, err error) {
	if l.node == nil {
		err = errors.New("ledger has no node client configured")
		return
	}
	return l.node.GetSignatureStatus(sig)
}

// WasSubmitted reports whether this process previously broadcast sig.
func (l *Ledger) WasSubmitted(sig string) (submitted bool, err error) {
	_, err = l.store.GetSubmission(sig)
	if errors.Is(err, soltoken.ErrSubmissionNotFound) {
		err = nil
		return
	}
	if err != nil {
		return
	}
	submitted = true
	return
}
