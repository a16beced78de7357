package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	signInfo    = "authstarter-cookie-sign-v1"
	encryptInfo = "authstarter-cookie-encrypt-v1"
)

var b64 = base64.RawURLEncoding

type keyPair struct {
	aead cipher.AEAD
	mac  []byte
}

// deriveKeys expands one secret into independent signing and encryption keys.
func deriveKeys(secret string) (keyPair, error) {
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(signInfo)), macKey); err != nil {
		return keyPair{}, err
	}

	encKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(encryptInfo)), encKey); err != nil {
		return keyPair{}, err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return keyPair{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return keyPair{}, err
	}

	return keyPair{aead: gcm, mac: macKey}, nil
}

// Sign returns "<base64 value>.<base64 hmac>".
func (m *Manager) Sign(value string) string {
	encoded := b64.EncodeToString([]byte(value))
	return encoded + "." + b64.EncodeToString(mac(m.keys[0].mac, encoded))
}

// Verify accepts signatures made with any configured secret.
func (m *Manager) Verify(signed string) (string, error) {
	encoded, sig, ok := strings.Cut(signed, ".")
	if !ok {
		return "", ErrInvalidFormat
	}
	got, err := b64.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidFormat
	}
	for _, k := range m.keys {
		if subtle.ConstantTimeCompare(got, mac(k.mac, encoded)) == 1 {
			value, err := b64.DecodeString(encoded)
			if err != nil {
				return "", ErrInvalidFormat
			}
			return string(value), nil
		}
	}
	return "", ErrInvalidSignature
}

// Seal encrypts plaintext with the name as additional data, so a sealed
// value cannot be replayed under another cookie name.
func (m *Manager) Seal(name, plaintext string) (string, error) {
	aead := m.keys[0].aead
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return b64.EncodeToString(aead.Seal(nonce, nonce, []byte(plaintext), []byte(name))), nil
}

func (m *Manager) Open(name, sealed string) (string, error) {
	raw, err := b64.DecodeString(sealed)
	if err != nil {
		return "", ErrInvalidFormat
	}
	for _, k := range m.keys {
		ns := k.aead.NonceSize()
		if len(raw) < ns {
			return "", ErrInvalidFormat
		}
		plain, err := k.aead.Open(nil, raw[:ns], raw[ns:], []byte(name))
		if err == nil {
			return string(plain), nil
		}
	}
	return "", ErrDecryptionFailed
}

func mac(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// IsTampered reports whether err means the cookie was forged or corrupted
// rather than simply missing.
func IsTampered(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrDecryptionFailed) || errors.Is(err, ErrInvalidFormat)
}
