package helpers

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
)

// ResolvedLine is one checkout line after price and seller re-derivation.
type ResolvedLine struct {
	Detail models.OrderDetail
	Seller orders.SellerRef
}

// SellerGroup holds the lines destined for one seller order.
type SellerGroup struct {
	Seller orders.SellerRef
	Lines  []ResolvedLine
}

// GroupBySeller splits resolved lines into one group per (sellerType, sellerID),
// ordered deterministically so repeated checkouts of the same cart produce
// orders in the same sequence.
func GroupBySeller(lines []ResolvedLine) []SellerGroup {
	index := make(map[orders.SellerRef]int, len(lines))
	var groups []SellerGroup
	for _, line := range lines {
		pos, ok := index[line.Seller]
		if !ok {
			index[line.Seller] = len(groups)
			groups = append(groups, SellerGroup{Seller: line.Seller})
			pos = len(groups) - 1
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Seller.Type != groups[j].Seller.Type {
			return groups[i].Seller.Type < groups[j].Seller.Type
		}
		return groups[i].Seller.ID < groups[j].Seller.ID
	})
	return groups
}

// Subtotal sums the line totals of one seller group.
func Subtotal(lines []ResolvedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Detail.LineTotal())
	}
	return total
}
