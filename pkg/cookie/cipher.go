package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
)

// seal encrypts value with the first 32 bytes of secret. The random nonce
// is prepended to the ciphertext.
func seal(secret, value string) (string, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(value), nil)), nil
}

func open(secrets []string, sealed string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrInvalidFormat
	}
	for _, secret := range secrets {
		gcm, err := newGCM(secret)
		if err != nil || len(data) < gcm.NonceSize() {
			continue
		}
		nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
		if plain, err := gcm.Open(nil, nonce, ciphertext, nil); err == nil {
			return string(plain), nil
		}
	}
	return "", ErrDecryptionFailed
}

func newGCM(secret string) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(secret[:32]))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
