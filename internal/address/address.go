// Package address derives deterministic record addresses.
//
// Every record's address is a pure, collision-free function of its
// identifying data: the oracle address derives from the authority key alone,
// a prediction address from the oracle address and the sequence id. Any
// party that knows an authority can locate every record under it without an
// index.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// KeyLen is the length of a decoded authority key or record address.
const KeyLen = 32

// recordMarker domain-separates record addresses from ed25519 public keys.
const recordMarker = "AlphaOracleRecord"

const (
	seedOracle     = "oracle"
	seedPrediction = "prediction"
)

// namespace fixes the derivation domain for this ledger.
var namespace = sha256.Sum256([]byte("alpha-oracle:ledger:v1"))

// ForOracle derives the oracle record address for an authority key.
func ForOracle(authority string) (string, error) {
	auth, err := DecodeKey(authority)
	if err != nil {
		return "", fmt.Errorf("authority: %w", err)
	}
	addr, err := derive([]byte(seedOracle), auth)
	if err != nil {
		return "", fmt.Errorf("derive oracle address: %w", err)
	}
	return addr, nil
}

// ForPrediction derives the prediction record address for an oracle address
// and a sequence id.
func ForPrediction(oracleAddress string, predictionID uint64) (string, error) {
	oracle, err := DecodeKey(oracleAddress)
	if err != nil {
		return "", fmt.Errorf("oracle address: %w", err)
	}
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, predictionID)

	addr, err := derive([]byte(seedPrediction), oracle, id)
	if err != nil {
		return "", fmt.Errorf("derive prediction address: %w", err)
	}
	return addr, nil
}

// DecodeKey decodes a base58 key and checks it is exactly 32 bytes.
func DecodeKey(key string) ([]byte, error) {
	raw, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("decode base58 key: %w", err)
	}
	if len(raw) != KeyLen {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeyLen, len(raw))
	}
	return raw, nil
}

// derive hashes the seeds with a bump byte, searching from 255 downward for
// the first digest that is not a valid ed25519 curve point. Off-curve
// digests cannot collide with real signing keys.
func derive(seeds ...[]byte) (string, error) {
	for bump := 255; bump >= 0; bump-- {
		var data []byte
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, namespace[:]...)
		data = append(data, []byte(recordMarker)...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}
	return "", fmt.Errorf("no off-curve address found for seeds")
}

func isOnCurve(point []byte) bool {
	if len(point) != KeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
