// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential loads the backend service key and inspects its
// claims. Keys are JWTs issued by the hosted backend; they can sit on
// disk in plaintext or age-encrypted (a ".age" suffix selects
// decryption, with the identity read from a separate file).
//
// Inspect parses without verifying the signature — this process holds
// no verification secret and does not need one. The claims are used
// only to warn the operator before a key expires mid-show.
package credential

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/golang-jwt/jwt/v5"
)

// Info is what a service key says about itself.
type Info struct {
	// Role is the backend role claim ("service_role", "anon").
	Role string

	// Issuer is the iss claim.
	Issuer string

	// ExpiresAt is the exp claim. Zero when the key has no expiry.
	ExpiresAt time.Time
}

// ExpiresWithin reports whether the key expires within d of now. A
// key without an expiry never does.
func (i Info) ExpiresWithin(now time.Time, d time.Duration) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return i.ExpiresAt.Before(now.Add(d))
}

// Load reads the service key at path. A path ending in ".age" is
// decrypted with the age identity file at identityPath. The returned
// key is whitespace-trimmed.
func Load(path, identityPath string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("credential: reading key file: %w", err)
	}

	if strings.HasSuffix(path, ".age") {
		decrypted, err := decrypt(raw, identityPath)
		if err != nil {
			return "", err
		}
		raw = decrypted
	}

	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("credential: key file %s is empty", path)
	}
	return key, nil
}

// decrypt opens an age-encrypted key with the identities in
// identityPath.
func decrypt(ciphertext []byte, identityPath string) ([]byte, error) {
	if identityPath == "" {
		return nil, fmt.Errorf("credential: encrypted key requires an identity file")
	}
	identityFile, err := os.Open(identityPath)
	if err != nil {
		return nil, fmt.Errorf("credential: opening identity file: %w", err)
	}
	defer identityFile.Close()

	identities, err := age.ParseIdentities(identityFile)
	if err != nil {
		return nil, fmt.Errorf("credential: parsing identity file: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("credential: decrypting key: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("credential: reading decrypted key: %w", err)
	}
	return plaintext, nil
}

// Inspect parses the key's claims without signature verification.
func Inspect(serviceKey string) (Info, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(serviceKey, claims); err != nil {
		return Info{}, fmt.Errorf("credential: parsing service key: %w", err)
	}

	info := Info{}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if issuer, err := claims.GetIssuer(); err == nil {
		info.Issuer = issuer
	}
	if expiry, err := claims.GetExpirationTime(); err == nil && expiry != nil {
		info.ExpiresAt = expiry.Time
	}
	return info, nil
}
