package subscriptions

import (
	"github.com/otdoges/zapdev-sub005/pkg/config"
	"github.com/otdoges/zapdev-sub005/pkg/enums"
	stripe "github.com/stripe/stripe-go/v84"
)

// PlanMapper translates provider price ids into plan tiers. Unknown prices map
// to free so that a price added on the provider side before a deploy degrades
// access instead of granting it.
type PlanMapper struct {
	pro        map[string]struct{}
	enterprise map[string]struct{}
}

// NewPlanMapper builds a mapper from the configured price id lists.
func NewPlanMapper(cfg config.PlansConfig) *PlanMapper {
	m := &PlanMapper{
		pro:        make(map[string]struct{}, len(cfg.ProPriceIDs)),
		enterprise: make(map[string]struct{}, len(cfg.EnterprisePriceIDs)),
	}
	for _, id := range cfg.ProPriceIDs {
		m.pro[id] = struct{}{}
	}
	for _, id := range cfg.EnterprisePriceIDs {
		m.enterprise[id] = struct{}{}
	}
	return m
}

// MapPrice returns the tier for a single price id. Enterprise wins when a
// price id appears in both lists.
func (m *PlanMapper) MapPrice(priceID string) enums.PlanTier {
	if _, ok := m.enterprise[priceID]; ok {
		return enums.PlanTierEnterprise
	}
	if _, ok := m.pro[priceID]; ok {
		return enums.PlanTierPro
	}
	return enums.PlanTierFree
}

// MapSubscription returns the highest tier granted by any item on the
// subscription, along with the price id that granted it.
func (m *PlanMapper) MapSubscription(sub *stripe.Subscription) (enums.PlanTier, string) {
	if sub == nil || sub.Items == nil {
		return enums.PlanTierFree, ""
	}
	best := enums.PlanTierFree
	bestPrice := ""
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		tier := m.MapPrice(item.Price.ID)
		if outranks(tier, best) {
			best = tier
			bestPrice = item.Price.ID
		}
		if bestPrice == "" {
			bestPrice = item.Price.ID
		}
	}
	return best, bestPrice
}

func outranks(a, b enums.PlanTier) bool {
	return rank(a) > rank(b)
}

func rank(tier enums.PlanTier) int {
	switch tier {
	case enums.PlanTierEnterprise:
		return 2
	case enums.PlanTierPro:
		return 1
	default:
		return 0
	}
}
