package notecipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Typed failures. Callers report ErrIntegrity as a security event; the other
// two are configuration or data-handling mistakes.
var (
	ErrFormat    = errors.New("ciphertext envelope malformed")
	ErrIntegrity = errors.New("ciphertext integrity check failed")
	ErrKey       = errors.New("encryption key invalid")
)

const (
	keySize = 32 // AES-256
	tagSize = sha256.Size
)

// Cipher encrypts note content with AES-256-CBC and authenticates it with
// HMAC-SHA256 over iv||ciphertext using a separate MAC key. The envelope is
// hex(iv):hex(ciphertext):hex(tag). The tag is verified in constant time
// before any decryption happens.
type Cipher struct {
	block  cipher.Block
	macKey []byte
}

// New builds a Cipher from a 32-byte encryption key and a 32-byte MAC key.
// The two keys must differ.
func New(encKey, macKey []byte) (*Cipher, error) {
	if len(encKey) != keySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", ErrKey, keySize, len(encKey))
	}
	if len(macKey) != keySize {
		return nil, fmt.Errorf("%w: mac key must be %d bytes, got %d", ErrKey, keySize, len(macKey))
	}
	if subtle.ConstantTimeCompare(encKey, macKey) == 1 {
		return nil, fmt.Errorf("%w: encryption and mac keys must differ", ErrKey)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKey, err)
	}

	return &Cipher{block: block, macKey: macKey}, nil
}

// NewFromHex builds a Cipher from hex-encoded keys, the form they take in
// configuration.
func NewFromHex(encKeyHex, macKeyHex string) (*Cipher, error) {
	encKey, err := hex.DecodeString(encKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid hex", ErrKey)
	}
	macKey, err := hex.DecodeString(macKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: mac key is not valid hex", ErrKey)
	}
	return New(encKey, macKey)
}

// Encrypt seals plaintext into an envelope. Empty plaintext is rejected
// before any cryptographic work. A fresh random IV is drawn for every call,
// so encrypting the same plaintext twice yields different output.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", fmt.Errorf("%w: plaintext must not be empty", ErrFormat)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	tag := c.tag(iv, ciphertext)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext) + ":" + hex.EncodeToString(tag), nil
}

// Decrypt verifies and opens an envelope produced by Encrypt. The MAC is
// checked before the ciphertext is touched; a failed check returns
// ErrIntegrity without decrypting anything.
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	iv, ciphertext, tag, err := splitEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, c.tag(iv, ciphertext)) != 1 {
		return nil, ErrIntegrity
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpadPKCS7(plaintext, aes.BlockSize)
	if err != nil {
		// The tag verified, so the envelope is intact; bad padding means the
		// envelope was sealed under different keys.
		return nil, ErrKey
	}

	return unpadded, nil
}

func (c *Cipher) tag(iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func splitEnvelope(envelope string) (iv, ciphertext, tag []byte, err error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrFormat, len(parts))
	}

	iv, err = hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return nil, nil, nil, fmt.Errorf("%w: bad iv segment", ErrFormat)
	}
	ciphertext, err = hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil, nil, fmt.Errorf("%w: bad ciphertext segment", ErrFormat)
	}
	tag, err = hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, fmt.Errorf("%w: bad tag segment", ErrFormat)
	}

	return iv, ciphertext, tag, nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
