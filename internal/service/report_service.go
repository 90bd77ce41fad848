package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/storage"
	"github.com/mautops/pulse-analytics/internal/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// 报告格式
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// 报告文件名前缀
const (
	predictionsPrefix   = "predictions_"
	criticalTasksPrefix = "critical_tasks_"
	resultsPrefix       = "analysis_results_"
)

// ReportService 将分析结果写成文件,并可选上传到对象存储
type ReportService struct {
	dir       string
	formats   map[string]bool
	retention time.Duration
	uploader  storage.Uploader
	logger    *logrus.Logger
	now       func() time.Time
}

// ReportInfo 报告文件信息
type ReportInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportOutput 一次写报告的结果。写入或上传失败记录在 Warnings 中。
type ReportOutput struct {
	Files    []string `json:"files"`
	Uploaded []string `json:"uploaded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewReportService 创建报告服务,uploader 可以为 nil
func NewReportService(cfg config.ReportConfig, uploader storage.Uploader, logger *logrus.Logger) *ReportService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "results"
	}
	formats := make(map[string]bool)
	for _, f := range cfg.Formats {
		formats[strings.ToLower(strings.TrimSpace(f))] = true
	}
	if len(formats) == 0 {
		formats[FormatCSV] = true
		formats[FormatJSON] = true
	}
	return &ReportService{
		dir:       dir,
		formats:   formats,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		uploader:  uploader,
		logger:    logger,
		now:       time.Now,
	}
}

// Dir 返回报告目录
func (s *ReportService) Dir() string {
	return s.dir
}

// Write 写出预测 CSV、关键任务 CSV 以及 JSON/YAML 结果
func (s *ReportService) Write(ctx context.Context, result *FullAnalysisResult) *ReportOutput {
	out := &ReportOutput{Files: []string{}}
	if result == nil {
		return out
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("failed to create report directory: %v", err))
		return out
	}

	stamp := s.now().Format("20060102_150405")
	write := func(name string, fn func(path string) error) {
		path := filepath.Join(s.dir, name)
		if err := fn(path); err != nil {
			s.logger.WithError(err).WithField("file", path).Warn("Failed to write report")
			out.Warnings = append(out.Warnings, fmt.Sprintf("failed to write %s: %v", name, err))
			return
		}
		out.Files = append(out.Files, path)
	}

	if s.formats[FormatCSV] {
		write(predictionsPrefix+stamp+".csv", func(path string) error {
			return writePredictionsCSV(path, result)
		})
		write(criticalTasksPrefix+stamp+".csv", func(path string) error {
			return writeCriticalTasksCSV(path, result)
		})
	}
	if s.formats[FormatJSON] {
		write(resultsPrefix+stamp+".json", func(path string) error {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(path, data, 0o644)
		})
	}
	if s.formats[FormatYAML] {
		write(resultsPrefix+stamp+".yaml", func(path string) error {
			return writeYAML(path, result)
		})
	}

	if s.uploader != nil {
		for _, path := range out.Files {
			location, err := s.uploader.Upload(ctx, path)
			if err != nil {
				s.logger.WithError(err).WithField("file", path).Warn("Failed to upload report")
				out.Warnings = append(out.Warnings, fmt.Sprintf("failed to upload %s: %v", filepath.Base(path), err))
				continue
			}
			out.Uploaded = append(out.Uploaded, location)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"files":    len(out.Files),
		"uploaded": len(out.Uploaded),
		"warnings": len(out.Warnings),
	}).Info("Reports written")
	return out
}

func writePredictionsCSV(path string, result *FullAnalysisResult) error {
	header := []string{"task_id", "task_title", "project_id", "current_status", "priority",
		"predicted_delay_days", "predicted_category", "risk_score"}
	for _, c := range types.DelayCategories {
		header = append(header, "p_"+string(c))
	}
	header = append(header, "recommendation")

	rows := make([][]string, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		row := []string{p.TaskID, p.TaskTitle, p.ProjectID, string(p.CurrentStatus), string(p.Priority),
			formatFloat(p.PredictedDelayDays), string(p.PredictedCategory), formatFloat(p.RiskScore)}
		for _, c := range types.DelayCategories {
			row = append(row, formatFloat(p.CategoryProbabilities[c]))
		}
		rows = append(rows, append(row, p.Recommendation))
	}
	return writeCSV(path, header, rows)
}

func writeCriticalTasksCSV(path string, result *FullAnalysisResult) error {
	header := []string{"id", "title", "project_id", "priority", "status", "delay_days", "risk_score"}
	var rows [][]string
	if result.RiskAnalysis != nil {
		for _, t := range result.RiskAnalysis.CriticalTasks {
			rows = append(rows, []string{t.ID, t.Title, t.ProjectID, string(t.Priority), string(t.Status),
				formatFloat(t.DelayDays), formatFloat(t.RiskScore)})
		}
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeYAML 经由 JSON 转换,使 YAML 键名与 JSON 一致
func writeYAML(path string, result *FullAnalysisResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// ListReports 列出报告目录中的报告文件,按时间倒序
func (s *ReportService) ListReports() ([]ReportInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ReportInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	reports := []ReportInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !isReportFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ReportInfo{
			Filename:  entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// CleanupOldReports 删除超过保留期的报告,返回删除数量。保留期为 0 时不删除。
func (s *ReportService) CleanupOldReports() (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	reports, err := s.ListReports()
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, r := range reports {
		if now.Sub(r.CreatedAt) <= s.retention {
			continue
		}
		if err := os.Remove(r.Path); err != nil {
			s.logger.WithError(err).WithField("file", r.Filename).Warn("Failed to delete old report")
			continue
		}
		removed++
	}
	return removed, nil
}

func isReportFile(name string) bool {
	for _, prefix := range []string{predictionsPrefix, criticalTasksPrefix, resultsPrefix} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
