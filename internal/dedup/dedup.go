// Package dedup collapses raw candidates from many sources into canonical
// opportunities. Merging is commutative and idempotent: the same candidate
// set, in any order and any number of times, yields the same opportunity.
package dedup

import (
	"sort"

	"github.com/amizuno/winscope/internal/types"
)

// Merge groups candidates by canonical identity and folds each group into
// one opportunity. Output order is stable: by posted date, then identity.
func Merge(candidates []types.RawCandidate) []types.Opportunity {
	groups := make(map[string][]types.RawCandidate)
	for _, c := range candidates {
		id := types.DeriveIdentity(c)
		groups[id] = append(groups[id], c)
	}

	opportunities := make([]types.Opportunity, 0, len(groups))
	for id, group := range groups {
		opportunities = append(opportunities, mergeGroup(id, group))
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if !opportunities[i].PostedDate.Equal(opportunities[j].PostedDate) {
			return opportunities[i].PostedDate.Before(opportunities[j].PostedDate)
		}
		return opportunities[i].ID < opportunities[j].ID
	})
	return opportunities
}

// mergeGroup folds candidates sharing one identity. Candidates are first
// sorted into a canonical order (earliest posted, then source name) so the
// fold is independent of arrival order.
func mergeGroup(id string, group []types.RawCandidate) types.Opportunity {
	sort.Slice(group, func(i, j int) bool {
		if !group[i].PostedDate.Equal(group[j].PostedDate) {
			return group[i].PostedDate.Before(group[j].PostedDate)
		}
		return group[i].Source < group[j].Source
	})

	opp := types.Opportunity{ID: id}
	seenSources := make(map[string]bool)
	codes := make(map[string]bool)
	attachments := make(map[string]bool)

	for _, c := range group {
		opp.Reference = preferString(opp.Reference, c.Reference)
		opp.Title = preferString(opp.Title, c.Title)
		opp.Agency = preferString(opp.Agency, c.Agency)
		opp.SetAside = preferString(opp.SetAside, c.SetAside)
		opp.Location = preferString(opp.Location, c.Location)

		// A longer description is more specific; later sources may override.
		if len(c.Description) > len(opp.Description) {
			opp.Description = c.Description
		}

		// A parsed monetary estimate beats an unknown one.
		if opp.EstimatedValue == 0 && c.EstimatedValue != 0 {
			opp.EstimatedValue = c.EstimatedValue
		}

		if opp.PostedDate.IsZero() || (!c.PostedDate.IsZero() && c.PostedDate.Before(opp.PostedDate)) {
			opp.PostedDate = c.PostedDate
		}
		if opp.DueDate.IsZero() && !c.DueDate.IsZero() {
			opp.DueDate = c.DueDate
		}

		for _, code := range c.Codes {
			codes[code] = true
		}
		for _, att := range c.Attachments {
			attachments[att] = true
		}
		if !seenSources[c.Source] {
			seenSources[c.Source] = true
			opp.Sources = append(opp.Sources, c.Source)
		}
	}

	opp.Codes = sortedKeys(codes)
	opp.Attachments = sortedKeys(attachments)
	sort.Strings(opp.Sources)
	return opp
}

// preferString keeps the earliest-seen non-empty value.
func preferString(current, incoming string) string {
	if current != "" {
		return current
	}
	return incoming
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
