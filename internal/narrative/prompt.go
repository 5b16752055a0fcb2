package narrative

import (
	"fmt"
	"strings"

	"palatlas-go/internal/types"
)

const (
	promptCategories = 8
	promptLeaders    = 3
	chatMarker       = "**USER INQUIRY:**"
)

// BuildAnalysisPrompt renders the summary into the fixed analysis brief.
func BuildAnalysisPrompt(s types.Summary) string {
	var b strings.Builder
	b.WriteString("You are a senior business analyst specializing in market intelligence and location-based business insights. ")
	b.WriteString("Your role is to provide direct, actionable business analysis without any introductory phrases or AI assistant language.\n\n")
	b.WriteString("**BUSINESS ENVIRONMENT ANALYSIS BRIEF**\n\n")
	fmt.Fprintf(&b, "**Location:** %s, %s\n", s.City, s.Country)
	fmt.Fprintf(&b, "**Data Scope:** %d brands, %d businesses analyzed\n\n", len(s.Brands), len(s.Places))
	b.WriteString("**MARKET DATA**\n\n")
	fmt.Fprintf(&b, "**Brand Landscape:**\n%s\n\n", formatCategories(s.BrandCategories))
	fmt.Fprintf(&b, "**Business Categories:**\n%s\n\n", formatCategories(s.PlaceCategories))
	fmt.Fprintf(&b, "**Top Performing Businesses:**\n%s\n\n", formatTopPlaces(s.TopRatedPlaces))
	fmt.Fprintf(&b, "**Market Leaders:**\n%s\n\n", formatPopularBrands(s.PopularBrands))
	b.WriteString(`**ANALYSIS REQUIREMENTS**

Provide a structured business environment analysis in the following format:

**MARKET OVERVIEW**
[Direct analysis of the business environment type and characteristics]

**BUSINESS DIVERSITY**
[Assessment of market diversity and sector distribution]

**QUALITY METRICS**
[Evaluation of business quality based on ratings and performance]

**OPPORTUNITY LANDSCAPE**
[Identification of market gaps and business opportunities]

**COMPETITIVE DYNAMICS**
[Analysis of market competition and positioning]

**CONSUMER INSIGHTS**
[Key insights about local consumer preferences and behavior]

**EXECUTIVE SUMMARY**
[2-3 key takeaways for business decision-makers]

Write in a professional, direct tone suitable for executive briefings. Avoid any conversational phrases, introductions, or AI assistant language. Focus on actionable insights and data-driven conclusions. Target length: 350-450 words.
`)
	return b.String()
}

// BuildChatPrompt asks a follow-up question against a prior analysis.
func BuildChatPrompt(city, country, analysis, question string) string {
	return fmt.Sprintf(`You are a business intelligence specialist for %[1]s, %[2]s. Provide direct, professional responses without AI assistant language.

**BUSINESS CONTEXT:**
%[3]s

%[4]s %[5]s

Provide a concise, professional response (100-150 words) that directly addresses the user's question using the business analysis above. If the question is outside the analysis scope, provide relevant business insights about %[1]s. Write in a professional tone suitable for business communications.`,
		city, country, analysis, chatMarker, question)
}

func formatCategories(t *types.Tally) string {
	top := t.Top(promptCategories)
	if len(top) == 0 {
		return "No category data available"
	}
	lines := make([]string, 0, len(top))
	for _, cc := range top {
		lines = append(lines, fmt.Sprintf("• %s: %d businesses", cc.Category, cc.Count))
	}
	return strings.Join(lines, "\n")
}

func formatTopPlaces(places []types.RankedEntity) string {
	if len(places) == 0 {
		return "No rating data available"
	}
	var lines []string
	for _, p := range leaders(places) {
		lines = append(lines, fmt.Sprintf("• %s (Rating: %s, Categories: %s)",
			p.Name, formatRating(p.MetricValue), strings.Join(types.TagsPreview(p.TagsPreview), ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatPopularBrands(brands []types.RankedEntity) string {
	if len(brands) == 0 {
		return "No brand data available"
	}
	var lines []string
	for _, p := range leaders(brands) {
		lines = append(lines, fmt.Sprintf("• %s (Popularity: %s, Categories: %s)",
			p.Name, FormatPopularity(p.MetricValue), strings.Join(types.TagsPreview(p.TagsPreview), ", ")))
	}
	return strings.Join(lines, "\n")
}

func leaders(r []types.RankedEntity) []types.RankedEntity {
	if len(r) > promptLeaders {
		return r[:promptLeaders]
	}
	return r
}

// FormatPopularity renders a [0,1] popularity as a percentage; zero reads N/A.
func FormatPopularity(p float64) string {
	if p == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", p*100)
}

func formatRating(r float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", r), "0"), ".")
}
