package analytics

import (
	"math"
	"strconv"

	"github.com/peternagy/consultadmin/internal/database"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/types"
)

type distributions struct {
	leadStatus        []types.GroupCount
	universityCountry []types.GroupCount
	updateType        []types.GroupCount
	b2b               []types.GroupCount
	successStory      []types.GroupCount
	userRole          []types.GroupCount
}

func buildAnalytics(t totals, recentLeads, recentB2B int64, d distributions) types.Analytics {
	leadStatus := sorted(d.leadStatus)
	b2b := sorted(d.b2b)

	converted := GroupCountOf(leadStatus, entity.StatusConverted)
	contacted := GroupCountOf(leadStatus, entity.StatusContacted) +
		GroupCountOf(leadStatus, entity.StatusQualified) +
		converted

	health := make(map[string]bool, len(t))
	for _, def := range entity.All() {
		health[def.HealthKey] = t[def.Kind] > 0
	}

	return types.Analytics{
		LeadStatusDistribution:        leadStatus,
		UniversityCountryDistribution: sorted(d.universityCountry),
		UpdateTypeDistribution:        sorted(d.updateType),
		B2BLeadStats:                  b2b,
		SuccessStoryStats:             sorted(d.successStory),
		UserRoleStats:                 sorted(d.userRole),
		ConversionRate:                Rate(converted, t[entity.Leads]),
		ContactRate:                   Rate(contacted, t[entity.Leads]),
		TotalB2BValue:                 TotalValue(b2b),
		LeadsGrowth:                   Growth(recentLeads),
		B2BGrowth:                     Growth(recentB2B),
		DataHealth:                    health,
	}
}

func sorted(groups []types.GroupCount) []types.GroupCount {
	if groups == nil {
		return []types.GroupCount{}
	}
	database.SortGroups(groups)
	return groups
}

// Rate returns part/total as a percentage in [0,100] rounded to two
// decimals, or 0 when total is not positive.
func Rate(part, total int64) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	pct := float64(part) / float64(total) * 100
	return math.Round(math.Min(pct, 100)*100) / 100
}

// Growth renders a recent-activity count as "+N", or "0" when there was none.
func Growth(recent int64) string {
	if recent <= 0 {
		return "0"
	}
	return "+" + strconv.FormatInt(recent, 10)
}

// GroupCountOf returns the count of the group with the given id, or 0.
func GroupCountOf(groups []types.GroupCount, id string) int64 {
	for _, g := range groups {
		if g.ID == id {
			return g.Count
		}
	}
	return 0
}

// TotalValue sums the totalValue of every group.
func TotalValue(groups []types.GroupCount) float64 {
	var sum float64
	for _, g := range groups {
		if g.TotalValue != nil {
			sum += *g.TotalValue
		}
	}
	return sum
}
