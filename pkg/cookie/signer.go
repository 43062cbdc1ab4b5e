package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// sign encodes value as base64(value) "|" base64(hmac).
func sign(secret, value string) string {
	return base64.URLEncoding.EncodeToString([]byte(value)) + "|" + mac(secret, []byte(value))
}

func verify(secrets []string, signed string) (string, error) {
	encoded, tag, ok := strings.Cut(signed, "|")
	if !ok {
		return "", ErrInvalidFormat
	}
	value, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidFormat
	}
	for _, secret := range secrets {
		if subtle.ConstantTimeCompare([]byte(tag), []byte(mac(secret, value))) == 1 {
			return string(value), nil
		}
	}
	return "", ErrInvalidSignature
}

func mac(secret string, value []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(value)
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}
