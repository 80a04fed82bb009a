package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetClass is the closed set of position kinds the valuation engine understands
type AssetClass string

const (
	AssetClassInterest AssetClass = "interest"
	AssetClassCrypto   AssetClass = "crypto"
	AssetClassFund     AssetClass = "fund"
)

// AssetClasses lists every asset class in recomputation order
var AssetClasses = []AssetClass{AssetClassInterest, AssetClassCrypto, AssetClassFund}

// ParseAssetClass converts a string into an AssetClass
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(strings.ToLower(strings.TrimSpace(s))) {
	case AssetClassInterest:
		return AssetClassInterest, nil
	case AssetClassCrypto:
		return AssetClassCrypto, nil
	case AssetClassFund:
		return AssetClassFund, nil
	}
	return "", invalid("unknown asset class %q (want interest, crypto or fund)", s)
}

// SnapshotMode selects how the snapshot store persists a new valuation
type SnapshotMode int

const (
	// SnapshotModeUpsert keeps one row per owner, overwritten in place
	SnapshotModeUpsert SnapshotMode = iota
	// SnapshotModeAppend adds a row per computation; latest = max computed_at
	SnapshotModeAppend
)

// SnapshotMode returns the persistence mode of the asset class
func (c AssetClass) SnapshotMode() SnapshotMode {
	if c == AssetClassCrypto {
		return SnapshotModeAppend
	}
	return SnapshotModeUpsert
}

// OwnerKey identifies the snapshot of a position: the owner, plus the symbol for
// multi-asset owners such as a crypto exchange
type OwnerKey struct {
	Class   AssetClass
	OwnerID uuid.UUID
	Symbol  string
}

// Validate ensures the key matches its asset class
func (k OwnerKey) Validate() error {
	if k.OwnerID == uuid.Nil {
		return invalid("owner id is required")
	}
	switch k.Class {
	case AssetClassCrypto:
		if k.Symbol == "" {
			return invalid("crypto snapshots are keyed by exchange and symbol")
		}
	case AssetClassInterest, AssetClassFund:
		if k.Symbol != "" {
			return invalid("%s snapshots are keyed by owner only", k.Class)
		}
	default:
		return invalid("unknown asset class %q", k.Class)
	}
	return nil
}

func (k OwnerKey) String() string {
	if k.Symbol == "" {
		return fmt.Sprintf("%s/%s", k.Class, k.OwnerID)
	}
	return fmt.Sprintf("%s/%s/%s", k.Class, k.OwnerID, k.Symbol)
}

// ValuationSnapshot is the most recently computed value of a position.
// For interest positions Value holds the projected monthly profit and AnnualValue
// the yearly one; other classes leave AnnualValue nil.
type ValuationSnapshot struct {
	ID          uuid.UUID
	Class       AssetClass
	OwnerID     uuid.UUID
	Symbol      string
	Value       decimal.Decimal
	AnnualValue *decimal.Decimal
	Currency    string
	ComputedAt  time.Time
}

// Key returns the owner key the snapshot is stored under
func (s *ValuationSnapshot) Key() OwnerKey {
	return OwnerKey{Class: s.Class, OwnerID: s.OwnerID, Symbol: s.Symbol}
}
