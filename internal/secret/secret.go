// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package secret encrypts connection passwords for on-disk model
// persistence (spec.md §3's Connection.password). Grounded on
// original_source/dkit/utilities/security.py's Fernet encryptor
// (generate_key/encrypt/decrypt over a single symmetric key), ported
// to golang.org/x/crypto/chacha20poly1305 since no Fernet-compatible
// AEAD construction ships in the retrieved Go ecosystem.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dkcore/dk/internal/dkerr"
)

// GenerateKey returns a new random base64-encoded key suitable for
// Open, mirroring Fernet.generate_key().
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Encryptor encrypts and decrypts strings under a single fixed key,
// e.g. the DEFAULT.key of spec.md's configuration file.
type Encryptor struct {
	aead chacha20poly1305.AEAD
}

// Open constructs an Encryptor from a base64-encoded key as produced
// by GenerateKey.
func Open(encodedKey string) (*Encryptor, error) {
	key, err := base64.URLEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, &dkerr.ConfigError{Detail: "encryption key is not valid base64: " + err.Error()}
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, &dkerr.ConfigError{Detail: "encryption key must decode to 32 bytes"}
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &dkerr.ConfigError{Detail: "invalid encryption key: " + err.Error()}
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt returns a base64-encoded nonce||ciphertext token for msg.
func (e *Encryptor) Encrypt(msg string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := e.aead.Seal(nonce, nonce, []byte(msg), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (e *Encryptor) Decrypt(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	if len(raw) < e.aead.NonceSize() {
		return "", errors.New("secret: token too short")
	}
	nonce, ciphertext := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plain, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("secret: decryption failed")
	}
	return string(plain), nil
}
