package features

import (
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
)

// Row 一个任务的特征行
type Row struct {
	TaskID        string
	Title         string
	ProjectID     string
	AssigneeID    string
	Status        types.TaskStatus
	Priority      types.Priority
	Domain        string
	DueDate       *time.Time
	CompletedDate *time.Time
	CreatedAt     time.Time
	Values        map[string]float64

	// 标签,由 LabelBuilder 填充
	Labeled   bool
	DelayDays float64
	Category  types.DelayCategory
	IsDelayed bool
	RiskScore float64
}

// Vector 按 schema 顺序返回特征值
func (r *Row) Vector(schema []string) []float64 {
	out := make([]float64, len(schema))
	for i, name := range schema {
		out[i] = r.Values[name]
	}
	return out
}

// Table 特征表
type Table struct {
	Schema []string
	Rows   []*Row
}

// Len 返回行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Matrix 按 schema 顺序返回特征矩阵
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Vector(t.Schema)
	}
	return out
}

// DelayDays 返回各行的延期天数
func (t *Table) DelayDays() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.DelayDays
	}
	return out
}

// Categories 返回各行的延期分类
func (t *Table) Categories() []types.DelayCategory {
	out := make([]types.DelayCategory, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Category
	}
	return out
}

// Filter 返回指定项目的行,projectID 为空时返回全部
func (t *Table) Filter(projectID string) *Table {
	if projectID == "" {
		return t
	}
	out := &Table{Schema: t.Schema}
	for _, r := range t.Rows {
		if r.ProjectID == projectID {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
