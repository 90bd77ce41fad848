package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// Collector 定期采集数据库连接池指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  atomic.Bool
}

// NewCollector 创建指标收集器,interval 非正数时使用 15 秒
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	if c.started.CompareAndSwap(false, true) {
		go c.collect()
	}
}

// Stop 停止指标收集器,未启动时直接返回
func (c *Collector) Stop() {
	c.cancel()
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	// 没有数据库时只等待退出
	if c.db != nil {
		_ = UpdateDatabaseConnections(c.db)
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.db != nil {
				_ = UpdateDatabaseConnections(c.db)
			}
		}
	}
}
