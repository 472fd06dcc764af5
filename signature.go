package marketd

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is the boundary encoding of a secp256k1 signature: recovery
// indicator plus the two scalar components. V accepts 27/28 as well as 0/1.
type Signature struct {
	V byte
	R [32]byte
	S [32]byte
}

// ParseSignature decodes the three hex-encoded components clients submit.
func ParseSignature(vHex, rHex, sHex string) (Signature, error) {
	sig := Signature{}
	v, err := hexutil.Decode(vHex)
	if err != nil || len(v) != 1 {
		return sig, ErrSignatureInvalid
	}
	r, err := hexutil.Decode(rHex)
	if err != nil || len(r) != 32 {
		return sig, ErrSignatureInvalid
	}
	s, err := hexutil.Decode(sHex)
	if err != nil || len(s) != 32 {
		return sig, ErrSignatureInvalid
	}
	sig.V = v[0]
	copy(sig.R[:], r)
	copy(sig.S[:], s)
	return sig, nil
}

// SignatureFromBytes splits a 65-byte r||s||v blob.
func SignatureFromBytes(raw []byte) (Signature, error) {
	sig := Signature{}
	if len(raw) != 65 {
		return sig, ErrSignatureInvalid
	}
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	return sig, nil
}

// SettleHash builds the digest both settlement signatures commit to:
// keccak256(0x19 || 0x00 || marketplace || scriptHash || seller || value).
// The 0x19/0x00 prefix and the marketplace's own address domain-separate the
// digest, so a signature can never be replayed against another purchase or
// another marketplace instance.
func SettleHash(marketplace common.Address, scriptHash common.Hash, seller common.Address, value *big.Int) common.Hash {
	buf := make([]byte, 0, 2+common.AddressLength*2+common.HashLength*2)
	buf = append(buf, 0x19, 0x00)
	buf = append(buf, marketplace.Bytes()...)
	buf = append(buf, scriptHash.Bytes()...)
	buf = append(buf, seller.Bytes()...)
	buf = append(buf, common.LeftPadBytes(value.Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// RecoverSigner returns the address that signed the settle hash. Signers
// wrap the hash with the standard signed-message prefix, so the recovery
// runs over accounts.TextHash of the digest.
func RecoverSigner(settleHash common.Hash, sig Signature) (common.Address, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, ErrSignatureInvalid
	}
	raw := make([]byte, 65)
	copy(raw[:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = v

	pubkey, err := crypto.SigToPub(accounts.TextHash(settleHash.Bytes()), raw)
	if err != nil {
		return common.Address{}, ErrSignatureInvalid
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// VerifySigner checks that sig over settleHash recovers to expected. It is
// invoked twice per settlement, once with the seller and once with the buyer
// as the expected party.
func VerifySigner(expected common.Address, settleHash common.Hash, sig Signature) error {
	signer, err := RecoverSigner(settleHash, sig)
	if err != nil {
		return err
	}
	if signer != expected {
		return ErrSignatureInvalid
	}
	return nil
}
