package soltoken

import (
	"bytes"
	"testing"
)

func TestFindProgramAddress_Deterministic(t *testing.T) {
	programID := MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	seeds := [][]byte{[]byte("treasury"), bytes.Repeat([]byte{7}, 32)}

	addr1, bump1, err := FindProgramAddress(seeds, programID)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	addr2, bump2, err := FindProgramAddress(seeds, programID)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if addr1 != addr2 || bump1 != bump2 {
		t.Fatalf("expected identical derivation, got %s/%d and %s/%d", addr1, bump1, addr2, bump2)
	}
}

func TestFindProgramAddress_OffCurve(t *testing.T) {
	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	addr, _, err := FindProgramAddress([][]byte{[]byte("any-seed")}, kp.PublicKey())
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if addr.IsOnCurve() {
		t.Fatalf("derived address %s must be off-curve", addr)
	}
}

func TestFindProgramAddress_DifferentSeedsDiffer(t *testing.T) {
	programID := SystemProgramID

	addr1, _, err := FindProgramAddress([][]byte{[]byte("seed-a")}, programID)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	addr2, _, err := FindProgramAddress([][]byte{[]byte("seed-b")}, programID)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if addr1 == addr2 {
		t.Fatal("different seeds must not derive the same address")
	}
}

func TestFindProgramAddress_SeedLimits(t *testing.T) {
	programID := SystemProgramID

	_, _, err := FindProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, programID)
	if err == nil {
		t.Fatal("expected error for oversized seed")
	}

	tooMany := make([][]byte, MaxSeeds+1)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, _, err = FindProgramAddress(tooMany, programID)
	if err == nil {
		t.Fatal("expected error for too many seeds")
	}
}

func TestAssociatedTokenAddress(t *testing.T) {
	owner, err := NewKeypair()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	mint, err := NewKeypair()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	ata, err := AssociatedTokenAddress(owner.PublicKey(), mint.PublicKey())
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// The ATA is itself a PDA under the associated token program.
	ownerPk := owner.PublicKey()
	mintPk := mint.PublicKey()
	expected, _, err := FindProgramAddress(
		[][]byte{ownerPk[:], TokenProgramID[:], mintPk[:]},
		AssociatedTokenProgramID,
	)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if ata != expected {
		t.Fatalf("expected %s, got %s", expected, ata)
	}

	if ata.IsOnCurve() {
		t.Fatal("associated token address must be off-curve")
	}
}
