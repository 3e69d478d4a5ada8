// Package search filters list results on the client.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/fieldops/fieldops/internal/dto"
)

// Keys extracts the searchable text of an item.
type Keys[T any] func(item T) []string

// Filter keeps the items where some key contains the characters of query in
// order, ignoring case. Results are ordered by match distance; ties keep
// their input order. An empty query returns items unchanged.
func Filter[T any](items []T, query string, keys Keys[T]) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	type hit struct {
		item T
		rank int
	}
	hits := make([]hit, 0, len(items))
	for _, item := range items {
		best := -1
		for _, key := range keys(item) {
			r := fuzzy.RankMatchFold(query, key)
			if r >= 0 && (best < 0 || r < best) {
				best = r
			}
		}
		if best >= 0 {
			hits = append(hits, hit{item: item, rank: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}

// MachineKeys searches machines by name and model.
func MachineKeys(m dto.Machine) []string {
	return []string{m.Name, m.Model}
}

// PartKeys searches spare parts by name and part number.
func PartKeys(p dto.SparePart) []string {
	return []string{p.Name, p.PartNo}
}

// ProductKeys searches registered products by serial number, machine and
// customer.
func ProductKeys(p dto.RegisteredProduct) []string {
	return []string{p.SerialNo, p.Machine.Label, p.Customer.Label}
}

// RequestKeys searches service requests by request id, machine and
// customer.
func RequestKeys(r dto.ServiceRequest) []string {
	return []string{r.RequestID, r.Machine.Label, r.Customer.Label}
}

// CustomerKeys searches customers by name, mobile and email.
func CustomerKeys(c dto.Customer) []string {
	return []string{c.Name, c.Mobile, c.Email}
}
