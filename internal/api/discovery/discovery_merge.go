package discovery

import "github.com/FACorreiaa/go-coffee-finder/internal/types"

// Merge reconciles a stored shop with fresh provider data. Present incoming
// fields win, absent ones keep the stored value, review count never drops and
// categories and photos are unioned with stored entries first.
func Merge(existing, incoming types.Shop) types.Shop {
	merged := existing

	merged.Name = pickString(incoming.Name, existing.Name)
	merged.Address = pickString(incoming.Address, existing.Address)
	merged.City = pickString(incoming.City, existing.City)
	merged.State = pickString(incoming.State, existing.State)
	merged.ZipCode = pickString(incoming.ZipCode, existing.ZipCode)
	merged.Country = pickString(incoming.Country, existing.Country)

	merged.GooglePlaceID = pick(incoming.GooglePlaceID, existing.GooglePlaceID)
	merged.Phone = pick(incoming.Phone, existing.Phone)
	merged.Website = pick(incoming.Website, existing.Website)
	merged.Email = pick(incoming.Email, existing.Email)
	merged.Rating = pick(incoming.Rating, existing.Rating)
	merged.PriceLevel = pick(incoming.PriceLevel, existing.PriceLevel)
	merged.LastSyncedAt = pick(incoming.LastSyncedAt, existing.LastSyncedAt)

	// coordinates travel as a pair
	if incoming.Latitude != nil && incoming.Longitude != nil {
		merged.Latitude, merged.Longitude = incoming.Latitude, incoming.Longitude
	}
	if incoming.Hours != nil {
		merged.Hours = incoming.Hours
	}

	merged.ReviewCount = max(existing.ReviewCount, incoming.ReviewCount)
	merged.Categories = union(existing.Categories, incoming.Categories)
	merged.Photos = union(existing.Photos, incoming.Photos)

	return merged
}

func pickString(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func pick[T any](incoming, existing *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}

// union keeps a's order, appends b's new entries and drops duplicates from both.
func union(a, b []string) []string {
	if len(a)+len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
