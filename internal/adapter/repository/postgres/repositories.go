package postgres

import "github.com/MiguelRipoll23/financeserver-sub001/internal/domain"

// NewRepositories returns every repository backed by db
func NewRepositories(db *DB) domain.Repositories {
	return domain.Repositories{
		BankAccounts:   NewBankAccountRepository(db),
		Balances:       NewBalanceRepository(db),
		RatePeriods:    NewRatePeriodRepository(db),
		Exchanges:      NewCryptoExchangeRepository(db),
		CryptoBalances: NewCryptoBalanceRepository(db),
		Portfolios:     NewPortfolioRepository(db),
		FundHoldings:   NewFundHoldingRepository(db),
		Snapshots:      NewSnapshotRepository(db),
	}
}
