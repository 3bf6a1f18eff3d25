package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ComputeSignature returns the gateway signature for a notification:
// hex(SHA512(orderID + statusCode + grossAmount + serverKey)).
func ComputeSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature with the server key and compares
// it to the supplied one in constant time.
func VerifySignature(orderID, statusCode, grossAmount, signatureKey, serverKey string) bool {
	sig := strings.ToLower(strings.TrimSpace(signatureKey))
	key := strings.TrimSpace(serverKey)
	if sig == "" || key == "" {
		return false
	}

	expected := ComputeSignature(orderID, statusCode, grossAmount, key)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
