// Package redeemcode produces the codes handed out with granted claims.
package redeemcode

import "github.com/google/uuid"

//go:generate mockgen -package=mocks -destination=mocks/mock_generator.go github.com/dropspot/dropspot-api/internal/pkg/redeemcode Generator
type Generator interface {
	NewCode() string
}

// UUIDGenerator returns random (version 4) UUIDs rendered as text.
type UUIDGenerator struct{}

func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewCode() string {
	return uuid.New().String()
}
