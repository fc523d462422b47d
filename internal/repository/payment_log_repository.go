package repository

import (
	"github.com/youche-next/internal/models"

	"gorm.io/gorm"
)

// PaymentLogRepository 支付日志数据访问接口（仅追加）
type PaymentLogRepository interface {
	Create(log *models.PaymentLog) error
	ListByPaymentID(paymentID uint) ([]models.PaymentLog, error)
	List(filter PaymentLogListFilter) ([]models.PaymentLog, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentLogRepository
}

// GormPaymentLogRepository GORM 实现
type GormPaymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository 创建支付日志仓库
func NewPaymentLogRepository(db *gorm.DB) *GormPaymentLogRepository {
	return &GormPaymentLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentLogRepository) WithTx(tx *gorm.DB) *GormPaymentLogRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentLogRepository{db: tx}
}

// Create 追加一条支付日志
func (r *GormPaymentLogRepository) Create(log *models.PaymentLog) error {
	return r.db.Create(log).Error
}

// ListByPaymentID 获取支付单全部日志（按时间正序）
func (r *GormPaymentLogRepository) ListByPaymentID(paymentID uint) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	if err := r.db.Where("payment_id = ?", paymentID).Order("id asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// List 分页查询支付日志
func (r *GormPaymentLogRepository) List(filter PaymentLogListFilter) ([]models.PaymentLog, int64, error) {
	query := r.db.Model(&models.PaymentLog{})
	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.PaymentLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
