package source

import (
	"context"
	"fmt"

	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/mautops/pulse-analytics/internal/model"
	"github.com/mautops/pulse-analytics/internal/repository"
	"github.com/mautops/pulse-analytics/internal/types"
	"gorm.io/gorm"
)

// DBSource 从关系型存储加载记录
type DBSource struct {
	db *gorm.DB
}

// NewDBSource 创建数据库记录来源,db 可以为 nil(表示存储未配置)
func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{db: db}
}

// Load 读取全部记录,任何连接或查询失败都包装为 ErrSourceUnavailable
func (s *DBSource) Load(ctx context.Context) (*types.Dataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: store not configured", ErrSourceUnavailable)
	}
	if !database.CheckHealth(s.db) {
		return nil, fmt.Errorf("%w: ping failed", ErrSourceUnavailable)
	}

	db := s.db.WithContext(ctx)
	ds := &types.Dataset{}

	users, err := repository.NewUserRepository(db).FindAll()
	if err != nil {
		return nil, unavailable("users", err)
	}
	for _, u := range users {
		ds.Users = append(ds.Users, u.ToDomain())
	}

	projects, err := repository.NewProjectRepository(db).FindAll()
	if err != nil {
		return nil, unavailable("projects", err)
	}
	for _, p := range projects {
		ds.Projects = append(ds.Projects, p.ToDomain())
	}

	tasks, err := repository.NewTaskRepository(db).FindAll()
	if err != nil {
		return nil, unavailable("tasks", err)
	}
	for _, t := range tasks {
		ds.Tasks = append(ds.Tasks, t.ToDomain())
	}

	teams, err := repository.NewTeamRepository(db).FindAll()
	if err != nil {
		return nil, unavailable("teams", err)
	}
	for _, t := range teams {
		ds.Teams = append(ds.Teams, t.ToDomain())
	}

	alerts, err := repository.NewDelayAlertRepository(db).FindAll()
	if err != nil {
		return nil, unavailable("delay_alerts", err)
	}
	for _, a := range alerts {
		ds.Alerts = append(ds.Alerts, a.ToDomain())
	}

	return ds, nil
}

func unavailable(table string, err error) error {
	return fmt.Errorf("%w: query %s: %v", ErrSourceUnavailable, table, err)
}

// Seed 将数据集写入存储,已存在的记录会被覆盖
func Seed(ctx context.Context, db *gorm.DB, ds *types.Dataset) error {
	if db == nil {
		return fmt.Errorf("%w: store not configured", ErrSourceUnavailable)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]*model.UserModel, 0, len(ds.Users))
		for _, u := range ds.Users {
			users = append(users, model.UserFromDomain(u))
		}
		if err := repository.NewUserRepository(tx).SaveAll(users); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		teams := make([]*model.TeamModel, 0, len(ds.Teams))
		for _, t := range ds.Teams {
			teams = append(teams, model.TeamFromDomain(t))
		}
		if err := repository.NewTeamRepository(tx).SaveAll(teams); err != nil {
			return fmt.Errorf("failed to seed teams: %w", err)
		}

		projects := make([]*model.ProjectModel, 0, len(ds.Projects))
		for _, p := range ds.Projects {
			projects = append(projects, model.ProjectFromDomain(p))
		}
		if err := repository.NewProjectRepository(tx).SaveAll(projects); err != nil {
			return fmt.Errorf("failed to seed projects: %w", err)
		}

		tasks := make([]*model.TaskModel, 0, len(ds.Tasks))
		for _, t := range ds.Tasks {
			m := model.TaskFromDomain(t)
			if err := m.Validate(); err != nil {
				return fmt.Errorf("invalid task %s: %w", t.ID, err)
			}
			tasks = append(tasks, m)
		}
		if err := repository.NewTaskRepository(tx).SaveAll(tasks); err != nil {
			return fmt.Errorf("failed to seed tasks: %w", err)
		}

		alerts := make([]*model.DelayAlertModel, 0, len(ds.Alerts))
		for _, a := range ds.Alerts {
			alerts = append(alerts, model.DelayAlertFromDomain(a))
		}
		if err := repository.NewDelayAlertRepository(tx).SaveAll(alerts); err != nil {
			return fmt.Errorf("failed to seed delay alerts: %w", err)
		}
		return nil
	})
}
