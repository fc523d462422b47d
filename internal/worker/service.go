package worker

import (
	"context"
	"errors"
	"time"

	"github.com/youche-next/internal/config"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSweepInterval = time.Minute

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.PaymentService != nil {
		go s.runExpireSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runExpireSweepLoop 兜底扫描过期待支付单。
// 逐单延迟任务可能因队列故障丢失，周期扫描保证最终关单。
func (s *Service) runExpireSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.PaymentService == nil {
		return
	}
	interval := defaultSweepInterval
	batchSize := 0
	if s.consumer.Config != nil {
		if secs := s.consumer.Config.Payment.SweepIntervalSecs; secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
		batchSize = s.consumer.Config.Payment.SweepBatchSize
	}
	runOnce := func() {
		if _, err := s.consumer.PaymentService.CloseExpiredPayments(time.Now(), batchSize); err != nil {
			logger.Warnw("worker_expire_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
