package main

import (
	"sort"

	"github.com/samber/lo"

	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func sortedActivities(c *progression.Catalog) []domain.ActionType {
	keys := lo.Keys(c.Activities)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
