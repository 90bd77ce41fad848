package features

// 规范特征名
const (
	EstimatedHours          = "estimated_hours"
	ProgressRatio           = "progress_ratio"
	DependencyCount         = "dependency_count"
	TeamSize                = "team_size"
	PriorityNumeric         = "priority_numeric"
	DomainComplexityScore   = "domain_complexity_score"
	AssigneeExperienceScore = "assignee_experience_score"
	ProjectComplexityScore  = "project_complexity_score"

	TitleLength               = "title_length"
	DescriptionLength         = "description_length"
	TechnicalKeywordsCount    = "technical_keywords_count"
	ComplexityIndicatorsCount = "complexity_indicators_count"
	UrgencyIndicatorsCount    = "urgency_indicators_count"
	RiskIndicatorsCount       = "risk_indicators_count"
)

// BaseFeatures 基础特征,顺序即模型输入顺序
var BaseFeatures = []string{
	EstimatedHours,
	ProgressRatio,
	DependencyCount,
	TeamSize,
	PriorityNumeric,
	DomainComplexityScore,
	AssigneeExperienceScore,
	ProjectComplexityScore,
}

// TextFeatures 由标题和描述派生的扩展特征
var TextFeatures = []string{
	TitleLength,
	DescriptionLength,
	TechnicalKeywordsCount,
	ComplexityIndicatorsCount,
	UrgencyIndicatorsCount,
	RiskIndicatorsCount,
}

// defaults 特征缺失时的默认值,构建与预测共用
var defaults = map[string]float64{
	EstimatedHours:          24,
	ProgressRatio:           0.5,
	DependencyCount:         0,
	TeamSize:                3,
	PriorityNumeric:         2,
	DomainComplexityScore:   25,
	AssigneeExperienceScore: 50,
	ProjectComplexityScore:  30,
}

// Default 返回特征默认值,文本特征和未知特征为 0
func Default(name string) float64 {
	return defaults[name]
}

// Schema 返回特征列
func Schema(textFeatures bool) []string {
	schema := append([]string(nil), BaseFeatures...)
	if textFeatures {
		schema = append(schema, TextFeatures...)
	}
	return schema
}

// domainComplexity 领域复杂度评分
var domainComplexity = map[string]float64{
	"frontend": 20,
	"backend":  30,
	"mobile":   35,
	"testing":  15,
	"ui/ux":    25,
	"api":      30,
	"database": 40,
	"devops":   45,
}

const unknownDomainComplexity = 25

// DomainComplexity 返回领域复杂度,未知领域为 25
func DomainComplexity(domain string) float64 {
	if v, ok := domainComplexity[domain]; ok {
		return v
	}
	return unknownDomainComplexity
}
