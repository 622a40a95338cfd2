package obolus

import (
	"context"
	"fmt"

	"github.com/core-coin/obolus/internal/models"
)

// Audit checks the ledger identities against the stored balances:
//
//	tip_sent == tip_received + platform_fee
//	platform balance == platform_fee
//	sum(payout balances) == tip_received - withdrawal
//	sum(account balances) == purchase - tip_sent
func (o *Obolus) Audit(ctx context.Context) (*models.AuditReport, error) {
	totals, err := o.repo.LedgerTotals(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.AuditReport{Totals: *totals, Discrepancies: []string{}}
	check := func(name string, got, want int64) {
		if got != want {
			report.Discrepancies = append(report.Discrepancies, fmt.Sprintf("%s: got %d, want %d", name, got, want))
		}
	}
	check("tips sent vs received plus fees", totals.TipsSent, totals.TipsReceived+totals.PlatformFees)
	check("platform balance vs fees", totals.PlatformBalance, totals.PlatformFees)
	check("payout balances vs received minus withdrawals", totals.PayoutBalances, totals.TipsReceived-totals.Withdrawals)
	check("account balances vs purchases minus tips", totals.AccountBalances, totals.Purchases-totals.TipsSent)
	return report, nil
}
