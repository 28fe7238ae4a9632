package ledger

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"soltoken"
)

const (
	// A freshly created account may not be visible to an immediate read;
	// re-check a few times before giving up on observing it.
	ensureReadAttempts = 5
	ensureReadInterval = 400 * time.Millisecond
)

// Resolver owns the effectful half of address resolution: checking whether
// the derived token account exists on-chain and creating it when it does
// not.
type Resolver struct {
	node NodeClient
	log  *zerolog.Logger
}

func NewResolver(node NodeClient, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		logger = soltoken.Log()
	}
	return &Resolver{node: node, log: logger}
}

// EnsureTokenAccount returns the associated token account for payer/mint,
// creating and funding it via the network node when absent. A second call
// with the same pair observes the existing account and performs no further
// mutation.
func (r *Resolver) EnsureTokenAccount(payer *soltoken.Keypair, mint soltoken.PublicKey) (addr soltoken.PublicKey, err error) {
	owner := payer.PublicKey()

	addr, err = soltoken.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return
	}

	info, err := r.node.GetAccountInfo(addr)
	if err != nil {
		return
	}
	if info != nil {
		r.log.Debug().Msgf("token account %s already exists", addr)
		return
	}

	r.log.Info().Msgf("creating token account %s for mint %s", addr, mint)

	instr, err := soltoken.CreateAssociatedTokenAccountInstruction(owner, owner, mint)
	if err != nil {
		return
	}

	recent, err := r.node.GetLatestBlockhash()
	if err != nil {
		return
	}

	msg, err := soltoken.CompileMessage(owner, recent, []soltoken.Instruction{instr})
	if err != nil {
		return
	}

	tx, err := soltoken.NewTransaction(msg)
	if err != nil {
		return
	}

	if err = tx.Sign(payer); err != nil {
		return
	}

	if _, err = r.node.SendTransaction(tx); err != nil {
		err = errors.Wrapf(err, "failed to create token account %s", addr)
		return
	}

	for i := 0; i < ensureReadAttempts; i++ {
		if info, err = r.node.GetAccountInfo(addr); err != nil {
			return
		}
		if info != nil {
			return
		}
		time.Sleep(ensureReadInterval)
	}

	r.log.Warn().Msgf("token account %s not yet visible after creation", addr)

	return
}
