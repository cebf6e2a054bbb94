// Package matching computes want/sell overlaps between two users.
//
// Cards are matched by name only, case-sensitive as stored. Edition, foil,
// language and quantity are ignored.
package matching

import "card-trader/models"

type Summary struct {
	WantsMatches int `json:"wantsMatches"`
	WantsTotal   int `json:"wantsTotal"`
	SellsMatches int `json:"sellsMatches"`
	SellsTotal   int `json:"sellsTotal"`
}

type MatchingCards struct {
	MyMatchingCards    []models.CardEntry `json:"myMatchingCards"`
	TheirMatchingCards []models.CardEntry `json:"theirMatchingCards"`
}

// ComputeMatches counts how many of a's wants b sells and how many of a's
// sells b wants.
func ComputeMatches(a, b *models.User) Summary {
	aWants, aSells := lists(a)
	bWants, bSells := lists(b)

	return Summary{
		WantsMatches: len(overlap(aWants, names(bSells))),
		WantsTotal:   len(aWants),
		SellsMatches: len(overlap(aSells, names(bWants))),
		SellsTotal:   len(aSells),
	}
}

// ComputeMatchingCards returns the full sell entries on each side that the
// other side wants.
func ComputeMatchingCards(a, b *models.User) MatchingCards {
	aWants, aSells := lists(a)
	bWants, bSells := lists(b)

	return MatchingCards{
		MyMatchingCards:    overlap(aSells, names(bWants)),
		TheirMatchingCards: overlap(bSells, names(aWants)),
	}
}

func lists(u *models.User) (wants, sells []models.CardEntry) {
	if u == nil {
		return nil, nil
	}
	return u.Wants, u.Sells
}

func names(cards []models.CardEntry) map[string]struct{} {
	set := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		set[c.CardName] = struct{}{}
	}
	return set
}

// overlap keeps the entries of cards whose name is in the set, preserving order.
func overlap(cards []models.CardEntry, set map[string]struct{}) []models.CardEntry {
	out := make([]models.CardEntry, 0)
	for _, c := range cards {
		if _, ok := set[c.CardName]; ok {
			out = append(out, c)
		}
	}
	return out
}
