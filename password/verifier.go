package password

import (
	"crypto/subtle"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Verifier checks submitted credentials against the single configured admin
// identity. It holds no state beyond configuration and is safe for
// concurrent use.
type Verifier struct {
	username string
	hash     string
	hasher   *Bcrypt
	logger   logrus.FieldLogger
}

// NewVerifier builds a [Verifier]. passwordHash must be a bcrypt hash; use
// [Bcrypt.Hash] first when holding plaintext.
func NewVerifier(username, passwordHash string, hasher *Bcrypt, logger logrus.FieldLogger) (*Verifier, error) {
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if !IsHash(passwordHash) {
		return nil, errors.New("admin password hash is not a bcrypt hash")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Verifier{
		username: username,
		hash:     passwordHash,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Verify reports whether username and password match the configured admin.
//
// The bcrypt comparison always runs, so a wrong username costs the same as a
// wrong password. Failures are logged without saying which field was wrong.
func (v *Verifier) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1

	passOK, err := v.hasher.Compare(v.hash, password)
	if err != nil {
		v.logger.WithError(err).Error("admin password hash could not be compared")
		return false
	}

	if !userOK || !passOK {
		v.logger.Warn("admin credential verification failed")
		return false
	}
	return true
}
