package chain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOp    = "chainfuse/op/v1"
	DomainChain = "chainfuse/chain/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpHash computes the content-addressed ID of an operator. Structurally
// equal operators (after NFC normalization) share a hash.
func OpHash(op Op) string {
	return hashWithDomain(DomainOp, op.Canonical())
}

// ChainHash computes the content-addressed ID of a chain, covering the
// source shape, every operator in order and the terminal.
func ChainHash(c Chain) string {
	return hashWithDomain(DomainChain, c.Canonical())
}
