package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/youche-next/internal/config"
	"github.com/youche-next/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 默认队列名称
const DefaultQueue = constants.QueueDefault

// Client 队列客户端封装，未启用队列时所有入队调用都是空操作
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueueDelayed(task *asynq.Task, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	_, err := c.client.Enqueue(task, asynq.Queue(c.defaultQueue), asynq.ProcessIn(delay))
	return err
}

// EnqueuePaymentExpireClose 推送支付单到期关闭任务，延迟到过期时刻执行
func (c *Client) EnqueuePaymentExpireClose(payload PaymentExpireClosePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentExpireCloseTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueDelayed(task, delay)
}

// EnqueuePaymentAutoRequery 推送支付单主动对账任务
func (c *Client) EnqueuePaymentAutoRequery(payload PaymentAutoRequeryPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentAutoRequeryTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueDelayed(task, delay)
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port, password, db := "127.0.0.1", 6379, "", 0
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Host); trimmed != "" {
			host = trimmed
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
