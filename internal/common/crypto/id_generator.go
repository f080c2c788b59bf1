package crypto

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/google/uuid"
)

// EntityIDGenerator produces identifiers for persisted rows. Ids are
// assigned in the application so that rows referencing each other can be
// staged inside one commit; the primary key constraint backstops the
// (vanishingly unlikely) collision.
type EntityIDGenerator interface {
	NewID() (int64, error)
}

type RandomIDGenerator struct{}

func NewRandomIDGenerator() *RandomIDGenerator {
	return &RandomIDGenerator{}
}

func (g *RandomIDGenerator) NewID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	id := int64(binary.BigEndian.Uint64(b[:]) &^ (1 << 63))
	if id == 0 {
		id = 1
	}
	return id, nil
}

// TokenIDGenerator produces opaque string ids (jti claims, refresh token
// record ids).
type TokenIDGenerator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	return uuid.NewString(), nil
}
