package services

import (
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
)

// ProgressItem is one content item and whether it has a recorded response.
type ProgressItem struct {
	Domain    string
	Completed bool
}

type ProgressReport struct {
	Domains []types.DomainProgress `json:"domains"`
	Overall int                    `json:"overall"`
}

// ComputeDomainProgress groups items by domain. Declared domains come first
// and are always present, even with no items; domains seen only on items
// follow in first-seen order.
func ComputeDomainProgress(items []ProgressItem, declared []string) []types.DomainProgress {
	idx := map[string]int{}
	out := make([]types.DomainProgress, 0, len(declared))
	add := func(domain string) int {
		if i, ok := idx[domain]; ok {
			return i
		}
		idx[domain] = len(out)
		out = append(out, types.DomainProgress{Domain: domain})
		return len(out) - 1
	}
	for _, d := range declared {
		if d != "" {
			add(d)
		}
	}
	for _, it := range items {
		d := it.Domain
		if d == "" {
			d = types.DefaultDomain
		}
		i := add(d)
		out[i].Total++
		if it.Completed {
			out[i].Completed++
		}
	}
	for i := range out {
		out[i].Percentage = types.Percent(out[i].Completed, out[i].Total)
	}
	return out
}

// OverallProgress is round(sum(completed)/sum(total)*100), 0 for no items.
func OverallProgress(list []types.DomainProgress) int {
	completed, total := 0, 0
	for _, p := range list {
		completed += p.Completed
		total += p.Total
	}
	return types.Percent(completed, total)
}

func buildReport(items []ProgressItem, declared []string) *ProgressReport {
	domains := ComputeDomainProgress(items, declared)
	return &ProgressReport{Domains: domains, Overall: OverallProgress(domains)}
}
