package analytics

import (
	"time"

	"github.com/peternagy/consultadmin/internal/types"
)

// FallbackLastUpdated is the fixed timestamp of the fallback snapshot.
const FallbackLastUpdated = "2025-01-15T09:00:00Z"

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// Fallback returns the static snapshot served when the store is unreachable.
// Every call returns a fresh copy of the same values.
func Fallback() types.DashboardSnapshot {
	return types.DashboardSnapshot{
		TotalLeads:          10,
		TotalUniversities:   25,
		TotalB2BLeads:       4,
		TotalSuccessStories: 12,
		TotalUpdates:        8,
		TotalUsers:          3,
		TotalDestinations:   6,

		RecentLeads:    3,
		RecentB2BLeads: 1,

		RecentLeadsList: []types.LeadSummary{
			{ID: "fallback-lead-1", Name: "Aisha Rahman", Email: "aisha@example.com", Status: "new", InterestedCountry: "UK", CreatedAt: day("2025-01-14")},
			{ID: "fallback-lead-2", Name: "Daniel Okafor", Email: "daniel@example.com", Status: "contacted", InterestedCountry: "Canada", CreatedAt: day("2025-01-12")},
			{ID: "fallback-lead-3", Name: "Mei Lin", Email: "mei@example.com", Status: "qualified", InterestedCountry: "Australia", CreatedAt: day("2025-01-10")},
		},
		RecentUniversities: []types.UniversitySummary{
			{ID: "fallback-university-1", Name: "University of Manchester", Country: "UK", City: "Manchester", UpdatedAt: day("2025-01-13")},
			{ID: "fallback-university-2", Name: "University of Melbourne", Country: "Australia", City: "Melbourne", UpdatedAt: day("2025-01-11")},
			{ID: "fallback-university-3", Name: "University of Toronto", Country: "Canada", City: "Toronto", UpdatedAt: day("2025-01-09")},
		},
		RecentUpdates: []types.UpdateSummary{
			{ID: "fallback-update-1", Title: "UK September intake applications open", Type: "news", Status: "published", UpdatedAt: day("2025-01-14")},
			{ID: "fallback-update-2", Title: "Study abroad fair", Type: "event", Status: "published", UpdatedAt: day("2025-01-08")},
			{ID: "fallback-update-3", Title: "Merit scholarships for Canada", Type: "scholarship", Status: "published", UpdatedAt: day("2025-01-05")},
		},
		RecentSuccessStories: []types.SuccessStorySummary{
			{ID: "fallback-story-1", StudentName: "Rahul Verma", University: "University of Leeds", Country: "UK", Featured: true, UpdatedAt: day("2025-01-12")},
			{ID: "fallback-story-2", StudentName: "Sara Haddad", University: "Monash University", Country: "Australia", Featured: true, UpdatedAt: day("2025-01-07")},
			{ID: "fallback-story-3", StudentName: "Tomás Silva", University: "McGill University", Country: "Canada", Featured: false, UpdatedAt: day("2025-01-03")},
		},

		Analytics: types.Analytics{
			LeadStatusDistribution: []types.GroupCount{
				{ID: "new", Count: 4},
				{ID: "contacted", Count: 3},
				{ID: "qualified", Count: 2},
				{ID: "converted", Count: 1},
			},
			UniversityCountryDistribution: []types.GroupCount{
				{ID: "UK", Count: 8},
				{ID: "Australia", Count: 6},
				{ID: "Canada", Count: 5},
				{ID: "USA", Count: 4},
				{ID: "Ireland", Count: 2},
			},
			UpdateTypeDistribution: []types.GroupCount{
				{ID: "news", Count: 4},
				{ID: "event", Count: 2},
				{ID: "scholarship", Count: 2},
			},
			B2BLeadStats: []types.GroupCount{
				{ID: "new", Count: 2, TotalValue: f64(15000)},
				{ID: "negotiating", Count: 1, TotalValue: f64(25000)},
				{ID: "won", Count: 1, TotalValue: f64(40000)},
			},
			SuccessStoryStats: []types.GroupCount{
				{ID: "UK", Count: 5, Featured: i64(2)},
				{ID: "Australia", Count: 4, Featured: i64(1)},
				{ID: "Canada", Count: 3, Featured: i64(1)},
			},
			UserRoleStats: []types.GroupCount{
				{ID: "editor", Count: 2, Active: i64(2)},
				{ID: "admin", Count: 1, Active: i64(1)},
			},
			ConversionRate: 10.0,
			ContactRate:    60.0,
			TotalB2BValue:  80000,
			LeadsGrowth:    "+3",
			B2BGrowth:      "+1",
			DataHealth: map[string]bool{
				"hasLeads":          true,
				"hasUniversities":   true,
				"hasB2BLeads":       true,
				"hasSuccessStories": true,
				"hasUpdates":        true,
				"hasUsers":          true,
				"hasDestinations":   true,
			},
		},

		LastUpdated: FallbackLastUpdated,
		DataSource:  types.SourceFallback,
	}
}
