package crypto

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/crypto/sha3"
)

// Agent sources: actions signed for mainnet use "a", everything else "b".
const (
	SourceMainnet = "a"
	SourceTestnet = "b"
)

// EIP712Domain represents the domain separator for EIP-712 typed data
type EIP712Domain struct {
	Name              string         // "Exchange"
	Version           string         // "1"
	ChainID           *big.Int       // 1337 for L1 actions
	VerifyingContract common.Address // zero for off-chain signing
}

// ExchangeDomain returns the domain exchange actions are signed under
func ExchangeDomain() EIP712Domain {
	return EIP712Domain{
		Name:              "Exchange",
		Version:           "1",
		ChainID:           big.NewInt(1337),
		VerifyingContract: common.Address{},
	}
}

// ActionHash is the connection id the phantom agent carries:
// keccak256(action || nonce as 8 bytes big-endian || vault flag [|| vault]).
func ActionHash(action []byte, nonce uint64, vault *common.Address) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(action)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])

	if vault == nil {
		h.Write([]byte{0x00})
	} else {
		h.Write([]byte{0x01})
		h.Write(vault.Bytes())
	}

	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ActionSigner signs exchange actions through a phantom agent
type ActionSigner struct {
	domain  EIP712Domain
	mainnet bool
}

func NewActionSigner(mainnet bool) *ActionSigner {
	return &ActionSigner{domain: ExchangeDomain(), mainnet: mainnet}
}

func (a *ActionSigner) source() string {
	if a.mainnet {
		return SourceMainnet
	}
	return SourceTestnet
}

// HashAgent hashes the phantom agent for connectionID according to EIP-712
// Returns the digest that should be signed
func (a *ActionSigner) HashAgent(connectionID common.Hash) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": []apitypes.Type{
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              a.domain.Name,
			Version:           a.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(a.domain.ChainID),
			VerifyingContract: a.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"source":       a.source(),
			"connectionId": connectionID.Bytes(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// Final digest: keccak256("\x19\x01" || domainSeparator || typedDataHash)
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	return crypto.Keccak256Hash(rawData).Bytes(), nil
}

// SignAction signs the JSON-encoded action for the given nonce and vault
func (a *ActionSigner) SignAction(signer *Signer, action []byte, nonce uint64, vault *common.Address) (Signature, error) {
	digest, err := a.HashAgent(ActionHash(action, nonce, vault))
	if err != nil {
		return Signature{}, fmt.Errorf("failed to hash action: %w", err)
	}

	sig, err := signer.Sign(digest)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign action: %w", err)
	}

	return SignatureFromBytes(sig)
}

// RecoverActionSigner returns the address that produced sig over the action
func (a *ActionSigner) RecoverActionSigner(action []byte, nonce uint64, vault *common.Address, sig Signature) (common.Address, error) {
	digest, err := a.HashAgent(ActionHash(action, nonce, vault))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash action: %w", err)
	}

	raw, err := sig.Bytes()
	if err != nil {
		return common.Address{}, err
	}

	return RecoverAddress(digest, raw)
}
