package provider

import (
	"time"

	"github.com/youche-next/internal/authz"
	"github.com/youche-next/internal/cache"
	"github.com/youche-next/internal/config"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/queue"
	"github.com/youche-next/internal/repository"
	"github.com/youche-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	OrderRepo         repository.OrderRepository
	PaymentRepo       repository.PaymentRepository
	PaymentLogRepo    repository.PaymentLogRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository

	// Services
	AuthzService      *authz.Service
	AuthzAuditService *service.AuthzAuditService
	AuthService       *service.AuthService
	PaymentService    *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.PaymentLogRepo = repository.NewPaymentLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)

	expireWindow := time.Duration(c.Config.Payment.ExpireMinutes) * time.Minute
	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.PaymentLogRepo,
		c.OrderRepo,
		c.QueueClient,
		&c.Config.Payment.WechatPay,
		&c.Config.Payment.Alipay,
		expireWindow,
	)
}
