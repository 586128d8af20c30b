package leaderboard

// Payout is one contributor's share of a war payout
type Payout struct {
	Contributor
	Amount float64 `json:"amount"`
}

// PayoutPlan is the itemized split of a war's sale proceeds
type PayoutPlan struct {
	TotalSale        float64  `json:"total_sale"`
	ShareholderCount int      `json:"shareholder_count"`
	ShareholderPct   float64  `json:"shareholder_pct"`
	ShareholderCut   float64  `json:"shareholder_cut"`
	AmountAfterCut   float64  `json:"amount_after_cut"`
	TotalAttacks     int      `json:"total_attacks"`
	PayPerHit        float64  `json:"pay_per_hit"`
	Payouts          []Payout `json:"payouts"`
}

// ComputePayout splits totalSale by attack count after each shareholder
// takes pctPerHolder percent. Contributors without attacks count towards the
// totals but are left out of the itemized payouts.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func ComputePayout(contributors []Contributor, totalSale float64, shareholderCount int, pctPerHolder float64) PayoutPlan {
	plan := PayoutPlan{
		TotalSale:        totalSale,
		ShareholderCount: shareholderCount,
		ShareholderPct:   pctPerHolder,
		Payouts:          []Payout{},
	}

	if shareholderCount > 0 {
		plan.ShareholderCut = totalSale * float64(shareholderCount) * (pctPerHolder / 100)
	}
	plan.AmountAfterCut = totalSale - plan.ShareholderCut

	for _, c := range contributors {
		plan.TotalAttacks += c.Attacks
	}
	if plan.TotalAttacks > 0 {
		plan.PayPerHit = plan.AmountAfterCut / float64(plan.TotalAttacks)
	}

	for _, c := range contributors {
		if c.Attacks <= 0 {
			continue
		}
		plan.Payouts = append(plan.Payouts, Payout{
			Contributor: c,
			Amount:      float64(c.Attacks) * plan.PayPerHit,
		})
	}

	return plan
}
