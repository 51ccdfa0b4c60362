// Package vault cifra secretos de terceros (API keys de Stripe) en reposo.
//
// El formato almacenado es hex(iv) + ":" + hex(ciphertext) con AES-256-CBC y
// relleno PKCS#7. CBC no autentica el texto cifrado: una alteracion solo se
// detecta si rompe el relleno.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize = 32
	ivSize  = aes.BlockSize
)

var (
	ErrInvalidKeyLength    = errors.New("invalid encryption key length")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Vault guarda la clave simetrica. La longitud se valida en cada llamada.
type Vault struct {
	key []byte
}

func New(key string) *Vault {
	return &Vault{key: []byte(key)}
}

// CheckKey falla si la clave no mide exactamente 32 bytes.
func (v *Vault) CheckKey() error {
	if len(v.key) != KeySize {
		return fmt.Errorf("%w: %d, must be %d bytes", ErrInvalidKeyLength, len(v.key), KeySize)
	}
	return nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if err := v.CheckKey(); err != nil {
		return "", err
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (v *Vault) Decrypt(token string) (string, error) {
	if err := v.CheckKey(); err != nil {
		return "", err
	}

	ivHex, ctHex, ok := strings.Cut(token, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing separator", ErrMalformedCiphertext)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: bad iv", ErrMalformedCiphertext)
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad ciphertext", ErrMalformedCiphertext)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty block", ErrMalformedCiphertext)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
		}
	}
	return data[:len(data)-n], nil
}
