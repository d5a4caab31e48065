package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"claimgate/crypto"
)

// ProofDomainV1 prefixes every canonical eligibility message so signatures
// cannot be replayed across unrelated signing schemes.
const ProofDomainV1 = "CLAIMGATE_ELIGIBILITY_V1"

// proofFutureTolerance bounds how far ahead of local time a proof timestamp
// may sit before it is rejected outright.
const proofFutureTolerance = 30 * time.Second

// Proof is a signed attestation that an off-chain verifier observed the
// claimant satisfying an activity's criteria at Timestamp.
type Proof struct {
	Claimant  [20]byte
	KindTag   string
	Timestamp time.Time
	Signature []byte
}

// NewProof normalises the raw fields of a submitted proof.
func NewProof(claimant [20]byte, kindTag string, timestamp int64, signature []byte) (*Proof, error) {
	tag := strings.TrimSpace(kindTag)
	if tag == "" {
		return nil, fmt.Errorf("%w: kind tag required", ErrProofMalformed)
	}
	if timestamp <= 0 {
		return nil, fmt.Errorf("%w: timestamp required", ErrProofMalformed)
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: signature required", ErrProofMalformed)
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	return &Proof{
		Claimant:  claimant,
		KindTag:   tag,
		Timestamp: time.Unix(timestamp, 0).UTC(),
		Signature: sig,
	}, nil
}

// CanonicalMessage renders the deterministic pipe-delimited payload covered by
// the proof signature.
func (p *Proof) CanonicalMessage() (string, error) {
	if p == nil {
		return "", ErrProofNil
	}
	if strings.TrimSpace(p.KindTag) == "" {
		return "", fmt.Errorf("%w: kind tag required", ErrProofMalformed)
	}
	if p.Timestamp.IsZero() {
		return "", fmt.Errorf("%w: timestamp required", ErrProofMalformed)
	}
	var builder strings.Builder
	builder.WriteString(ProofDomainV1)
	builder.WriteString("|claimant=")
	builder.WriteString(crypto.NewAddress(p.Claimant).String())
	builder.WriteString("|kind=")
	builder.WriteString(strings.TrimSpace(p.KindTag))
	builder.WriteString("|ts=")
	builder.WriteString(strconv.FormatInt(p.Timestamp.Unix(), 10))
	return builder.String(), nil
}

// Hash returns the keccak digest of the canonical message.
func (p *Proof) Hash() ([]byte, error) {
	msg, err := p.CanonicalMessage()
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256([]byte(msg)), nil
}

// ID returns the hex digest identifying this proof for replay bookkeeping.
func (p *Proof) ID() (string, error) {
	hash, err := p.Hash()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash), nil
}

// Verify authenticates the proof against the expected claimant, the
// configured signing key, and the activity's kind tag. ttl of zero disables
// the staleness check.
func (p *Proof) Verify(claimant [20]byte, signer [20]byte, kindTag string, now time.Time, ttl time.Duration) error {
	if p == nil {
		return ErrProofNil
	}
	if p.Claimant != claimant {
		return fmt.Errorf("%w: claimant mismatch", ErrProofMalformed)
	}
	if strings.TrimSpace(p.KindTag) != strings.TrimSpace(kindTag) {
		return fmt.Errorf("%w: kind tag mismatch", ErrProofMalformed)
	}
	if len(p.Signature) != 65 {
		return ErrProofSignature
	}
	hash, err := p.Hash()
	if err != nil {
		return err
	}
	pubKey, err := ethcrypto.SigToPub(hash, p.Signature)
	if err != nil {
		return ErrProofSignature
	}
	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	if [20]byte(recovered) != signer {
		return ErrProofSignature
	}
	ts := p.Timestamp
	if ts.After(now.Add(proofFutureTolerance)) {
		return ErrProofFuture
	}
	if ttl > 0 && now.Sub(ts) > ttl {
		return ErrProofExpired
	}
	return nil
}

// SignProof produces a proof for claimant over kindTag at ts, signed with
// key. Verifier deployments and tests both use it to mint valid attestations.
func SignProof(key *crypto.PrivateKey, claimant [20]byte, kindTag string, ts time.Time) (*Proof, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: signing key required", ErrProofMalformed)
	}
	proof, err := NewProof(claimant, kindTag, ts.Unix(), make([]byte, 1))
	if err != nil {
		return nil, err
	}
	hash, err := proof.Hash()
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(hash, key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("activity: sign proof: %w", err)
	}
	proof.Signature = sig
	return proof, nil
}
