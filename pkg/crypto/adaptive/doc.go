// Package adaptive provides authenticated encryption with automatic algorithm
// selection.
//
// AES-256-GCM is used on platforms where Go's crypto/aes is hardware
// accelerated (amd64, arm64); ChaCha20-Poly1305 everywhere else. Both are
// exposed through the same Cipher interface, and the sealed output always
// carries its random nonce as a prefix.
//
// Keys are derived from an operator-supplied secret with HKDF-SHA256, so the
// configured secret may be any length of at least MinSecretSize bytes.
//
// Usage:
//
//	key, err := adaptive.DeriveKey(secret, salt, "crudkv backup v1")
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
