package testutil

import (
	"github.com/yungbote/devjourney-backend/internal/domain/development"
)

func PtrInt(v int) *int { return &v }

// Entry builds an active catalog entry for the given band.
func Entry(id, domain string, minMonths, maxMonths int, week *int, order int) development.CatalogEntry {
	return development.CatalogEntry{
		ID:           id,
		AgeMinMonths: minMonths,
		AgeMaxMonths: maxMonths,
		Week:         week,
		OrderIndex:   order,
		Domain:       domain,
		Prompt:       "prompt " + id,
		IsActive:     true,
	}
}
