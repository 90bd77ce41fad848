package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/mautops/pulse-analytics/internal/types"
	"github.com/sirupsen/logrus"
)

// ErrSourceUnavailable 记录存储不可达
var ErrSourceUnavailable = errors.New("record source unavailable")

// Origin 标识一次分析实际使用的数据来源
type Origin string

const (
	OriginStore     Origin = "store"
	OriginSynthetic Origin = "synthetic"
)

// Source 记录来源
type Source interface {
	Load(ctx context.Context) (*types.Dataset, error)
}

// LoadWithFallback 优先从 primary 加载,primary 不可用且提供了 fallback 时改用 fallback。
// 返回的 Origin 告诉调用方实际使用了哪份数据。
func LoadWithFallback(ctx context.Context, primary, fallback Source, logger *logrus.Logger) (*types.Dataset, Origin, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if primary != nil {
		ds, err := primary.Load(ctx)
		if err == nil {
			return ds, OriginStore, nil
		}
		if fallback == nil || !errors.Is(err, ErrSourceUnavailable) {
			return nil, "", err
		}
		logger.WithError(err).Warn("Record store unavailable, using synthetic dataset")
	} else if fallback == nil {
		return nil, "", fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}

	ds, err := fallback.Load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load fallback dataset: %w", err)
	}
	return ds, OriginSynthetic, nil
}
