package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

const (
	recordFormatVersionCurrent = 1

	flagRevoked byte = 1 << 0

	maxPrincipalLength = math.MaxUint16
)

// ErrCorruptRecord is returned when a stored blob cannot be decoded.
var ErrCorruptRecord = errors.New("session record corrupt")

// Encode serializes r as
//
//	version(1) | flags(1) | principalLen(2, BE) | principal | issuedAtMillis(8, BE) | expiresAtMillis(8, BE)
func Encode(r Record) ([]byte, error) {
	if len(r.Principal) > maxPrincipalLength {
		return nil, errors.New("principal too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 1 + 2 + len(r.Principal) + 16)

	buf.WriteByte(recordFormatVersionCurrent)

	var flags byte
	if r.Revoked {
		flags |= flagRevoked
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Principal))); err != nil {
		return nil, err
	}
	buf.WriteString(r.Principal)

	if err := binary.Write(&buf, binary.BigEndian, r.IssuedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode]. Trailing bytes are rejected.
func Decode(data []byte) (Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, ErrCorruptRecord
	}
	if version != recordFormatVersionCurrent {
		return Record{}, ErrCorruptRecord
	}

	flags, err := reader.ReadByte()
	if err != nil || flags&^flagRevoked != 0 {
		return Record{}, ErrCorruptRecord
	}

	var principalLen uint16
	if err := binary.Read(reader, binary.BigEndian, &principalLen); err != nil {
		return Record{}, ErrCorruptRecord
	}
	principal := make([]byte, principalLen)
	if _, err := io.ReadFull(reader, principal); err != nil {
		return Record{}, ErrCorruptRecord
	}

	var issuedAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &issuedAt); err != nil {
		return Record{}, ErrCorruptRecord
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return Record{}, ErrCorruptRecord
	}
	if reader.Len() != 0 {
		return Record{}, ErrCorruptRecord
	}

	return Record{
		Principal: string(principal),
		IssuedAt:  time.UnixMilli(issuedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
		Revoked:   flags&flagRevoked != 0,
	}, nil
}
