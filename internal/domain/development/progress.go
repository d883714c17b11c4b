package development

import "math"

// DomainProgress is a derived view; it is never persisted.
type DomainProgress struct {
	Domain     string `json:"domain"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Percentage int    `json:"percentage"`
}

// Percent is round(part/total*100), 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
