// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt cost factor used for stored credentials.
const DefaultPasswordCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher performs salted one-way hashing with a fixed bcrypt cost.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher creates a [PasswordHasher]. Costs outside bcrypt's range
// fall back to [DefaultPasswordCost].
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a plain-text password. The salt is generated internally.
func (hasher *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with a stored hash.
//
// A corrupt or unrecognized hash yields false, never an error.
func (hasher *PasswordHasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// Burn spends the same CPU as a real [PasswordHasher.Verify] call.
//
// Login calls it for unknown usernames so both failure paths cost one bcrypt
// comparison at the configured cost.
func (hasher *PasswordHasher) Burn(plainTextPassword string) {
	hasher.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("folio-timing-equalizer"), hasher.cost)
		if err == nil {
			hasher.dummyHash = hash
		}
	})
	if hasher.dummyHash == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(hasher.dummyHash, []byte(plainTextPassword))
}

// Cost returns the bcrypt cost factor in use.
func (hasher *PasswordHasher) Cost() int {
	return hasher.cost
}
