package soltoken

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const SignatureLength = 64

type Signature [SignatureLength]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Hash is a 32-byte recent blockhash.
type Hash [32]byte

func ParseHash(encoded string) (hash Hash, err error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode hash '%s'", encoded)
		return
	}
	if len(decoded) != len(hash) {
		err = errors.Errorf("expected a %d byte hash, got %d", len(hash), len(decoded))
		return
	}
	copy(hash[:], decoded)
	return
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

// Compact-u16 length prefix used throughout the wire format.
func encodeLength(buf *bytes.Buffer, n int) {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

func decodeLength(r *bytes.Reader) (n int, err error) {
	for shift := 0; ; shift += 7 {
		var b byte
		b, err = r.ReadByte()
		if err != nil {
			err = errors.Wrap(err, "truncated length prefix")
			return
		}
		n |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return
		}
		if shift >= 14 {
			err = errors.New("length prefix too long")
			return
		}
	}
}

type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// Message is the signed portion of a transaction in its legacy layout.
// Fetched transactions are treated as opaque bytes; this structure exists
// for messages the client compiles itself and for tooling that needs to
// look inside one.
type Message struct {
	NumRequiredSignatures uint8
	NumReadonlySigned     uint8
	NumReadonlyUnsigned   uint8
	AccountKeys           []PublicKey
	RecentBlockhash       Hash
	Instructions          []CompiledInstruction
}

func (m *Message) Serialize() (out []byte, err error) {
	if int(m.NumRequiredSignatures) > len(m.AccountKeys) {
		err = errors.Errorf(
			"message requires %d signatures but carries %d account keys",
			m.NumRequiredSignatures,
			len(m.AccountKeys),
		)
		return
	}

	buf := &bytes.Buffer{}
	buf.WriteByte(m.NumRequiredSignatures)
	buf.WriteByte(m.NumReadonlySigned)
	buf.WriteByte(m.NumReadonlyUnsigned)

	encodeLength(buf, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf.Write(key[:])
	}

	buf.Write(m.RecentBlockhash[:])

	encodeLength(buf, len(m.Instructions))
	for _, instr := range m.Instructions {
		buf.WriteByte(instr.ProgramIDIndex)
		encodeLength(buf, len(instr.AccountIndexes))
		buf.Write(instr.AccountIndexes)
		encodeLength(buf, len(instr.Data))
		buf.Write(instr.Data)
	}

	out = buf.Bytes()
	return
}

// ParseMessage decodes a legacy message. Version-prefixed messages are
// rejected: the client never needs to decompile one, it only signs over
// their raw bytes.
func ParseMessage(raw []byte) (m *Message, err error) {
	if len(raw) == 0 {
		err = errors.New("empty message")
		return
	}
	if raw[0]&0x80 != 0 {
		err = errors.Errorf("cannot parse version %d message", raw[0]&0x7f)
		return
	}

	r := bytes.NewReader(raw)
	m = &Message{}

	header := make([]byte, 3)
	if _, err = io.ReadFull(r, header); err != nil {
		err = errors.Wrap(err, "truncated message header")
		return
	}
	m.NumRequiredSignatures = header[0]
	m.NumReadonlySigned = header[1]
	m.NumReadonlyUnsigned = header[2]

	numKeys, err := decodeLength(r)
	if err != nil {
		return
	}
	for i := 0; i < numKeys; i++ {
		var key PublicKey
		if _, err = io.ReadFull(r, key[:]); err != nil {
			err = errors.Wrapf(err, "truncated account key %d", i)
			return
		}
		m.AccountKeys = append(m.AccountKeys, key)
	}

	if _, err = io.ReadFull(r, m.RecentBlockhash[:]); err != nil {
		err = errors.Wrap(err, "truncated recent blockhash")
		return
	}

	numInstructions, err := decodeLength(r)
	if err != nil {
		return
	}
	for i := 0; i < numInstructions; i++ {
		var instr CompiledInstruction
		var b byte
		if b, err = r.ReadByte(); err != nil {
			err = errors.Wrapf(err, "truncated instruction %d", i)
			return
		}
		instr.ProgramIDIndex = b

		var numAccounts int
		if numAccounts, err = decodeLength(r); err != nil {
			return
		}
		instr.AccountIndexes = make([]uint8, numAccounts)
		if _, err = io.ReadFull(r, instr.AccountIndexes); err != nil {
			err = errors.Wrapf(err, "truncated instruction %d accounts", i)
			return
		}

		var dataLen int
		if dataLen, err = decodeLength(r); err != nil {
			return
		}
		instr.Data = make([]byte, dataLen)
		if _, err = io.ReadFull(r, instr.Data); err != nil {
			err = errors.Wrapf(err, "truncated instruction %d data", i)
			return
		}

		m.Instructions = append(m.Instructions, instr)
	}

	if r.Len() != 0 {
		err = errors.Errorf("%d trailing bytes after message", r.Len())
		return
	}

	return
}

// CompileMessage assembles a legacy message from instructions, with the fee
// payer in the first signer slot. Duplicate accounts are merged, privileges
// are combined, and accounts are laid out signer-writable first as the
// runtime expects.
func CompileMessage(payer PublicKey, recent Hash, instructions []Instruction) (m *Message, err error) {
	if payer.IsZero() {
		err = errors.New("compile requires a fee payer")
		return
	}
	if len(instructions) == 0 {
		err = errors.New("compile requires at least one instruction")
		return
	}

	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true}}

	merge := func(meta AccountMeta) {
		for i := range metas {
			if metas[i].PublicKey == meta.PublicKey {
				metas[i].IsSigner = metas[i].IsSigner || meta.IsSigner
				metas[i].IsWritable = metas[i].IsWritable || meta.IsWritable
				return
			}
		}
		metas = append(metas, meta)
	}

	for _, instr := range instructions {
		for _, meta := range instr.Accounts {
			merge(meta)
		}
		merge(AccountMeta{PublicKey: instr.ProgramID})
	}

	var ordered []AccountMeta
	for _, pick := range []func(meta AccountMeta) bool{
		func(meta AccountMeta) bool { return meta.IsSigner && meta.IsWritable },
		func(meta AccountMeta) bool { return meta.IsSigner && !meta.IsWritable },
		func(meta AccountMeta) bool { return !meta.IsSigner && meta.IsWritable },
		func(meta AccountMeta) bool { return !meta.IsSigner && !meta.IsWritable },
	} {
		for _, meta := range metas {
			if pick(meta) {
				ordered = append(ordered, meta)
			}
		}
	}

	m = &Message{RecentBlockhash: recent}

	indexOf := map[PublicKey]uint8{}
	for i, meta := range ordered {
		m.AccountKeys = append(m.AccountKeys, meta.PublicKey)
		indexOf[meta.PublicKey] = uint8(i)

		if meta.IsSigner {
			m.NumRequiredSignatures++
			if !meta.IsWritable {
				m.NumReadonlySigned++
			}
		} else if !meta.IsWritable {
			m.NumReadonlyUnsigned++
		}
	}

	for _, instr := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: indexOf[instr.ProgramID],
			Data:           instr.Data,
		}
		for _, meta := range instr.Accounts {
			compiled.AccountIndexes = append(compiled.AccountIndexes, indexOf[meta.PublicKey])
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	return
}

// Transaction is a message plus its signature slots. Message bytes from the
// builder service are carried verbatim; signing never mutates them.
type Transaction struct {
	Signatures []Signature
	Message    []byte
}

func NewTransaction(m *Message) (tx *Transaction, err error) {
	raw, err := m.Serialize()
	if err != nil {
		return
	}
	tx = &Transaction{
		Signatures: make([]Signature, m.NumRequiredSignatures),
		Message:    raw,
	}
	return
}

func DecodeTransaction(raw []byte) (tx *Transaction, err error) {
	r := bytes.NewReader(raw)

	numSigs, err := decodeLength(r)
	if err != nil {
		return
	}

	tx = &Transaction{Signatures: make([]Signature, numSigs)}
	for i := 0; i < numSigs; i++ {
		if _, err = io.ReadFull(r, tx.Signatures[i][:]); err != nil {
			err = errors.Wrapf(err, "truncated signature %d", i)
			tx = nil
			return
		}
	}

	if r.Len() == 0 {
		err = errors.New("transaction carries no message")
		tx = nil
		return
	}

	tx.Message = make([]byte, r.Len())
	_, _ = r.Read(tx.Message)

	return
}

func DecodeBase64Transaction(encoded string) (tx *Transaction, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		err = errors.Wrap(err, "failed to decode base64 transaction")
		return
	}
	return DecodeTransaction(raw)
}

func (t *Transaction) Encode() (out []byte, err error) {
	if len(t.Message) == 0 {
		err = errors.New("transaction carries no message")
		return
	}

	buf := &bytes.Buffer{}
	encodeLength(buf, len(t.Signatures))
	for _, sig := range t.Signatures {
		buf.Write(sig[:])
	}
	buf.Write(t.Message)

	out = buf.Bytes()
	return
}

func (t *Transaction) EncodeBase64() (encoded string, err error) {
	raw, err := t.Encode()
	if err != nil {
		return
	}
	encoded = base64.StdEncoding.EncodeToString(raw)
	return
}

// requiredSigners reads the leading signer keys out of the message, handling
// both legacy and version-prefixed layouts. Everything past the static keys
// stays opaque.
func (t *Transaction) requiredSigners() (signers []PublicKey, err error) {
	body := t.Message
	if len(body) == 0 {
		err = errors.Wrap(ErrSigning, "empty message")
		return
	}
	if body[0]&0x80 != 0 {
		body = body[1:]
	}
	if len(body) < 3 {
		err = errors.Wrap(ErrSigning, "truncated message header")
		return
	}

	numRequired := int(body[0])

	r := bytes.NewReader(body[3:])
	numKeys, err := decodeLength(r)
	if err != nil {
		err = errors.Wrapf(ErrSigning, "unreadable account keys: %v", err)
		return
	}
	if numKeys < numRequired {
		err = errors.Wrapf(ErrSigning, "message requires %d signers but carries %d keys", numRequired, numKeys)
		return
	}

	for i := 0; i < numRequired; i++ {
		var key PublicKey
		if _, err = io.ReadFull(r, key[:]); err != nil {
			err = errors.Wrapf(ErrSigning, "truncated signer key %d", i)
			return
		}
		signers = append(signers, key)
	}

	return
}

// Sign fills every required signer slot from the supplied keypairs, in the
// order the message expects. All slots must be satisfiable.
func (t *Transaction) Sign(keypairs ...*Keypair) (err error) {
	signers, err := t.requiredSigners()
	if err != nil {
		return
	}

	sigs := make([]Signature, len(signers))
	for i, signer := range signers {
		found := false
		for _, kp := range keypairs {
			if kp.PublicKey() == signer {
				sigs[i] = kp.Sign(t.Message)
				found = true
				break
			}
		}
		if !found {
			err = errors.Wrapf(ErrSigning, "no keypair for required signer %s", signer)
			return
		}
	}

	t.Signatures = sigs
	return
}

// VerifySignatures checks every signature slot against its signer key and
// the exact message bytes.
func (t *Transaction) VerifySignatures() (err error) {
	signers, err := t.requiredSigners()
	if err != nil {
		return
	}
	if len(t.Signatures) != len(signers) {
		return errors.Errorf("message requires %d signatures, transaction carries %d", len(signers), len(t.Signatures))
	}

	for i, signer := range signers {
		if !ed25519.Verify(ed25519.PublicKey(signer[:]), t.Message, t.Signatures[i][:]) {
			return errors.Errorf("invalid signature %d for signer %s", i, signer)
		}
	}

	return
}
