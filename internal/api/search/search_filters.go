package search

import (
	"slices"
	"strings"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

type shopFilter func(types.ShopWithDistance) bool

// filtersFor builds the in-memory filters in the order they apply. Bounds
// only act on shops that have the field.
func filtersFor(f types.SearchFilters) []shopFilter {
	var out []shopFilter
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		out = append(out, func(s types.ShopWithDistance) bool {
			return strings.Contains(strings.ToLower(s.Name), q) ||
				strings.Contains(strings.ToLower(s.Address), q) ||
				strings.Contains(strings.ToLower(s.City), q)
		})
	}
	if f.MinRating != nil {
		lo := *f.MinRating
		out = append(out, func(s types.ShopWithDistance) bool {
			return s.Rating == nil || *s.Rating >= lo
		})
	}
	if f.MaxRating != nil {
		hi := *f.MaxRating
		out = append(out, func(s types.ShopWithDistance) bool {
			return s.Rating == nil || *s.Rating <= hi
		})
	}
	if len(f.Categories) > 0 {
		out = append(out, func(s types.ShopWithDistance) bool {
			for _, c := range s.Categories {
				if slices.Contains(f.Categories, c) {
					return true
				}
			}
			return false
		})
	}
	if len(f.PriceLevels) > 0 {
		out = append(out, func(s types.ShopWithDistance) bool {
			return s.PriceLevel == nil || slices.Contains(f.PriceLevels, *s.PriceLevel)
		})
	}
	return out
}

func applyFilters(shops []types.ShopWithDistance, filters []shopFilter) []types.ShopWithDistance {
	out := make([]types.ShopWithDistance, 0, len(shops))
next:
	for _, s := range shops {
		for _, keep := range filters {
			if !keep(s) {
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}

// paginate slices one page out of shops and reports whether more follow it.
func paginate(shops []types.ShopWithDistance, offset, limit int) ([]types.ShopWithDistance, bool) {
	hasMore := len(shops) > offset+limit
	if offset >= len(shops) {
		return []types.ShopWithDistance{}, hasMore
	}
	end := min(offset+limit, len(shops))
	return shops[offset:end], hasMore
}
