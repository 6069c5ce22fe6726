// Package envelope unwraps the AES content key embedded in an SPC and
// wraps the AES content key returned in a CKC.
//
// The block-cipher helpers (CBC encrypt/decrypt, PKCS-less raw block
// operations) are adapted from pkg/ntag424/crypto.go's aesCBCEncrypt/
// aesCBCDecrypt and implemented here on crypto/aes and crypto/cipher.
// RSA-OAEP unwrap of the per-session AES key has no
// analogue in the teacher or the rest of the retrieval pack — crypto/rsa
// is used directly and documented in DESIGN.md as a stdlib exception.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
)

// Version distinguishes the SPC v1 (1024-bit RSA, SHA-1 OAEP) envelope
// from the SPC v2 (2048-bit RSA, SHA-256 OAEP) envelope.
type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

// UnwrapSessionKey recovers the AES-128 session key R1 was encrypted
// under, by RSA-OAEP decrypting the wrapped key blob with the server's
// private key for the SPC's declared version.
func UnwrapSessionKey(priv *rsa.PrivateKey, version Version, wrapped []byte) ([]byte, error) {
	hash := sha1.New()
	if version == V2 {
		hash = sha256.New()
	}
	key, err := rsa.DecryptOAEP(hash, rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInvalidCertificateErr, fmt.Errorf("unwrap session key: %w", err))
	}
	return key, nil
}

// DecryptCBC decrypts data under key/iv, the way aesCBCDecrypt in the
// teacher does. data must be a multiple of the AES block size.
func DecryptCBC(key, iv, data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fpserrors.New(fpserrors.CodeInvalidCertificateErr)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInvalidCertificateErr, err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// EncryptCBC encrypts data under key/iv for the CKC response payload.
func EncryptCBC(key, iv, data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fpserrors.New(fpserrors.CodeInternalErr)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// DecryptECB decrypts data under key one block at a time, generalizing
// aesECBEncrypt in the teacher to the decrypt direction and to more than
// one 16-byte block. crypto/cipher deliberately has no ECB mode (ECB
// leaks block-repetition patterns), so this loops aes.Cipher.Decrypt
// over the buffer the same way the teacher loops its single-block
// Encrypt. Used for the security-level-report TLLV, the one field
// encrypted under ECB rather than CBC.
func DecryptECB(key, data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
	}
	out := make([]byte, len(data))
	for off := 0; off < len(data); off += aes.BlockSize {
		block.Decrypt(out[off:off+aes.BlockSize], data[off:off+aes.BlockSize])
	}
	return out, nil
}
