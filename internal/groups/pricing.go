package groups

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DiscountTier maps a minimum group size to a discount percentage.
type DiscountTier struct {
	MinSize int
	Percent int
}

// DiscountTiers is a tier table ordered by ascending MinSize. Percent
// is monotonically non-decreasing: more participants never earn a
// smaller discount.
type DiscountTiers []DiscountTier

// DefaultDiscountTiers returns the standard clinic tier table.
func DefaultDiscountTiers() DiscountTiers {
	return DiscountTiers{
		{MinSize: 2, Percent: 5},
		{MinSize: 3, Percent: 10},
		{MinSize: 5, Percent: 15},
		{MinSize: 10, Percent: 20},
	}
}

// ParseTiers parses a "minSize:percent,minSize:percent" table, e.g.
// "2:5,3:10,5:15,10:20". An empty string yields the default table.
func ParseTiers(raw string) (DiscountTiers, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDiscountTiers(), nil
	}
	var tiers DiscountTiers
	for _, part := range strings.Split(raw, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("groups: malformed tier %q", part)
		}
		size, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || size < 2 {
			return nil, fmt.Errorf("groups: invalid tier size %q", fields[0])
		}
		pct, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("groups: invalid tier percent %q", fields[1])
		}
		tiers = append(tiers, DiscountTier{MinSize: size, Percent: pct})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinSize < tiers[j].MinSize })
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Percent < tiers[i-1].Percent {
			return nil, fmt.Errorf("groups: tier table must be non-decreasing, %d%% follows %d%%", tiers[i].Percent, tiers[i-1].Percent)
		}
	}
	return tiers, nil
}

// Percent returns the discount for a group of the given size: the
// highest tier whose MinSize the group reaches. Fewer than two
// participants always yield zero.
func (t DiscountTiers) Percent(count int) int {
	if count < 2 {
		return 0
	}
	pct := 0
	for _, tier := range t {
		if count >= tier.MinSize {
			pct = tier.Percent
		}
	}
	return pct
}

// Pricing summarizes group pricing in cents.
type Pricing struct {
	OriginalCents   int64
	DiscountPercent int
	DiscountCents   int64
	TotalCents      int64
}

// ComputePricing totals the participants' service prices and applies the
// tier table's discount for the group size.
func ComputePricing(participants []Participant, tiers DiscountTiers) Pricing {
	var original int64
	for _, p := range participants {
		original += p.Service.PriceCents
	}
	pct := tiers.Percent(len(participants))
	discount := original * int64(pct) / 100
	return Pricing{
		OriginalCents:   original,
		DiscountPercent: pct,
		DiscountCents:   discount,
		TotalCents:      original - discount,
	}
}
