/*
 * Copyright 2026 QuestDB
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package questdb

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// parseAuthKey reconstructs the P-256 private key from the base64url-encoded
// JWK fields in the auth options.
func parseAuthKey(a *authOptions) (*ecdsa.PrivateKey, error) {
	d, err := base64.RawURLEncoding.DecodeString(a.privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	x, err := base64.RawURLEncoding.DecodeString(a.publicKeyX)
	if err != nil {
		return nil, fmt.Errorf("decode public key x: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(a.publicKeyY)
	if err != nil {
		return nil, fmt.Errorf("decode public key y: %w", err)
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		},
		D: new(big.Int).SetBytes(d),
	}
	if !key.Curve.IsOnCurve(key.X, key.Y) {
		return nil, fmt.Errorf("public key point is not on the P-256 curve")
	}
	return key, nil
}

// authenticate performs the ILP challenge/response on a fresh connection:
// send the key id, read the server's newline-terminated challenge, and
// respond with the base64 DER signature of its SHA-256 hash.
func authenticate(t transport, a *authOptions) error {
	key, err := parseAuthKey(a)
	if err != nil {
		return err
	}

	if _, err := t.Write([]byte(a.keyID + "\n")); err != nil {
		return fmt.Errorf("send key id: %w", err)
	}

	reader := bufio.NewReader(t)
	challenge, err := reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read challenge: %w", err)
	}
	challenge = challenge[:len(challenge)-1]

	hash := sha256.Sum256(challenge)
	sig, err := ecdsa.SignASN1(rand.Reader, key, hash[:])
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}
	if _, err := t.Write([]byte(base64.StdEncoding.EncodeToString(sig) + "\n")); err != nil {
		return fmt.Errorf("send signature: %w", err)
	}
	return nil
}
