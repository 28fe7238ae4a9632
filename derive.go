package soltoken

import (
	"crypto/sha256"
	"fmt"

	"github.com/pkg/errors"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32

	// derivationMarker is appended to the seed hash so that a derived address
	// can never collide with a hash computed for any other purpose.
	derivationMarker = "ProgramDerivedAddress"
)

var errAddressOnCurve = fmt.Errorf("derived address falls on the ed25519 curve")

func validateSeeds(seeds [][]byte) (err error) {
	if len(seeds) > MaxSeeds {
		return errors.Wrapf(ErrInvalidSeeds, "at most %d seeds allowed, got %d", MaxSeeds, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return errors.Wrapf(ErrInvalidSeeds, "seed %d is %d bytes, max %d", i, len(seed), MaxSeedLength)
		}
	}
	return
}

// CreateProgramAddress hashes the seeds with the program id and the
// derivation marker. The result is only a valid program address when it
// falls off the curve, otherwise errAddressOnCurve is returned and the
// caller must try a different bump seed.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (addr PublicKey, err error) {
	if err = validateSeeds(seeds); err != nil {
		return
	}

	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(derivationMarker))
	copy(addr[:], h.Sum(nil))

	if addr.IsOnCurve() {
		addr = PublicKey{}
		err = errors.WithStack(errAddressOnCurve)
	}

	return
}

// FindProgramAddress derives the canonical program address for the given
// seeds, trying bump values from 255 downwards until the hash falls off the
// curve. The derivation is a pure function of its inputs: the same seeds and
// program id always produce the same address and bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (addr PublicKey, bump uint8, err error) {
	if err = validateSeeds(seeds); err != nil {
		return
	}

	for i := 255; i >= 0; i-- {
		bumped := append(append([][]byte{}, seeds...), []byte{uint8(i)})
		addr, err = CreateProgramAddress(bumped, programID)
		if err == nil {
			bump = uint8(i)
			return
		}
		if !errors.Is(err, errAddressOnCurve) {
			return
		}
	}

	err = errors.WithStack(ErrDerivationExhausted)
	return
}

// AssociatedTokenAddress derives the canonical token-holding account for an
// (owner, mint) pair. Pure, no network call.
func AssociatedTokenAddress(owner, mint PublicKey) (addr PublicKey, err error) {
	addr, _, err = FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	return
}

// CreateAssociatedTokenAccountInstruction builds the instruction that funds
// and initialises the associated token account for owner/mint, paid for by
// payer.
func CreateAssociatedTokenAccountInstruction(payer, owner, mint PublicKey) (instr Instruction, err error) {
	ata, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return
	}

	instr = Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: ata, IsWritable: true},
			{PublicKey: owner},
			{PublicKey: mint},
			{PublicKey: SystemProgramID},
			{PublicKey: TokenProgramID},
		},
	}

	return
}
