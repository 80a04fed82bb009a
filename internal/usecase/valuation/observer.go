package valuation

import "github.com/MiguelRipoll23/financeserver-sub001/internal/domain"

// Observer receives one notification per calculation run through Engine.Calculate
type Observer interface {
	Computed(key domain.OwnerKey, snap *domain.ValuationSnapshot)
	Skipped(key domain.OwnerKey, reason string)
	Failed(key domain.OwnerKey, err error)
}

// NopObserver discards every notification
type NopObserver struct{}

func (NopObserver) Computed(domain.OwnerKey, *domain.ValuationSnapshot) {}
func (NopObserver) Skipped(domain.OwnerKey, string)                     {}
func (NopObserver) Failed(domain.OwnerKey, error)                       {}
