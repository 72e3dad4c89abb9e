package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the lowest accepted bcrypt cost.
	MinCost = 10
	// MaxCost is the highest accepted bcrypt cost.
	MaxCost = 16
	// DefaultCost is used when no cost is configured.
	DefaultCost = 12

	// bcrypt only reads the first 72 bytes of input.
	maxPasswordBytes = 72
)

// ErrPasswordTooLong is returned by Hash for inputs bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Bcrypt hashes and compares passwords at a fixed cost.
//
// Bcrypt instances are intended to be configured during initialization and then treated as immutable.
type Bcrypt struct {
	cost int
}

// NewBcrypt describes the newbcrypt operation and its observable behavior.
//
// NewBcrypt returns an error when cost lies outside [MinCost, MaxCost]. A zero
// cost selects DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if err := ValidateCost(cost); err != nil {
		return nil, err
	}
	return &Bcrypt{cost: cost}, nil
}

// ValidateCost checks cost against the accepted bounds.
func ValidateCost(cost int) error {
	if cost < MinCost || cost > MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", MinCost, MaxCost, cost)
	}
	return nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash describes the hash operation and its observable behavior.
//
// Hash may return an error when the input is empty or longer than bcrypt can
// represent. Hash is safe for concurrent use.
func (b *Bcrypt) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password must not be empty")
	}
	if len(plain) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Compare reports whether plain matches hash. A malformed hash is returned
// as an error; a plain mismatch is (false, nil).
func (b *Bcrypt) Compare(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsRehash reports whether hash was produced at a different cost than b's.
func (b *Bcrypt) NeedsRehash(hash string) bool {
	cost, err := HashCost(hash)
	if err != nil {
		return true
	}
	return cost != b.cost
}

// HashCost extracts the cost embedded in a bcrypt hash.
func HashCost(hash string) (int, error) {
	return bcrypt.Cost([]byte(hash))
}

// IsHash reports whether s looks like a bcrypt hash rather than plaintext.
func IsHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
