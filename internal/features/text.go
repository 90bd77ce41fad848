package features

import (
	"strings"
	"unicode/utf8"
)

// 关键词表,只做静态匹配
var (
	technicalKeywords = []string{
		"api", "database", "frontend", "backend", "integration", "testing", "deployment",
		"security", "performance", "scalability", "architecture", "framework", "library",
		"algorithm", "optimization", "refactoring", "migration", "authentication",
		"authorization", "encryption", "caching",
	}
	complexityIndicators = []string{
		"complex", "complicated", "difficult", "challenging", "intricate",
		"sophisticated", "advanced", "comprehensive", "extensive", "detailed",
	}
	urgencyIndicators = []string{
		"urgent", "critical", "asap", "immediately", "rush", "priority",
		"deadline", "time-sensitive", "blocking", "blocker", "emergency",
	}
	riskIndicators = []string{
		"uncertain", "unclear", "ambiguous", "experimental", "prototype",
		"research", "investigation", "unknown", "risky", "dependency",
	}
)

// TextScores 计算标题与描述的文本特征。
// 关键词计数为标题和描述中各自出现的关键词种类数之和。
func TextScores(title, description string) map[string]float64 {
	t := strings.ToLower(title)
	d := strings.ToLower(description)
	return map[string]float64{
		TitleLength:               float64(utf8.RuneCountInString(title)),
		DescriptionLength:         float64(utf8.RuneCountInString(description)),
		TechnicalKeywordsCount:    countKeywords(t, technicalKeywords) + countKeywords(d, technicalKeywords),
		ComplexityIndicatorsCount: countKeywords(t, complexityIndicators) + countKeywords(d, complexityIndicators),
		UrgencyIndicatorsCount:    countKeywords(t, urgencyIndicators) + countKeywords(d, urgencyIndicators),
		RiskIndicatorsCount:       countKeywords(t, riskIndicators) + countKeywords(d, riskIndicators),
	}
}

func countKeywords(text string, keywords []string) float64 {
	var n float64
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
