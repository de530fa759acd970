// Package signer produces the relayer authorization for destination-side
// mint/release calls: a keccak digest binding the effect to its source event,
// signed as an EIP-191 personal message. The destination contracts recompute
// the same digest and recover the relayer address from (v, r, s).
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signature holds the three components the bridge contracts verify.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// Signer is the injected signing capability. A threshold or HSM-backed
// implementation can be substituted without touching the relay logic.
type Signer interface {
	Sign(digest common.Hash) (Signature, error)
	Address() common.Address
}

// AuthorizationDigest binds (recipient, amount, sourceChainId, sourceTxHash,
// nonce) with solidity-packed encoding. Field order must match the
// destination contract's verification exactly.
func AuthorizationDigest(recipient common.Address, amount *big.Int, sourceChainID int, sourceTxHash common.Hash, nonce uint64) common.Hash {
	packed := make([]byte, 0, 20+32*4)
	packed = append(packed, recipient.Bytes()...)
	packed = append(packed, math.U256Bytes(new(big.Int).Set(amount))...)
	packed = append(packed, math.U256Bytes(big.NewInt(int64(sourceChainID)))...)
	packed = append(packed, sourceTxHash.Bytes()...)
	packed = append(packed, math.U256Bytes(new(big.Int).SetUint64(nonce))...)
	return crypto.Keccak256Hash(packed)
}

func prefixHash(data []byte) common.Hash {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256Hash([]byte(msg))
}

// KeySigner signs with a held secp256k1 private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "instantiating private key")
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) Sign(digest common.Hash) (Signature, error) {
	sig, err := crypto.Sign(prefixHash(digest.Bytes()).Bytes(), s.key)
	if err != nil {
		return Signature{}, errors.Wrap(err, "signing digest")
	}

	var out Signature
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	// contracts expect the legacy 27/28 recovery id
	out.V = sig[64] + 27
	return out, nil
}
