package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByIDForUpdate(id uint) (*models.Payment, error)
	GetByPaymentNo(paymentNo string) (*models.Payment, error)
	GetLatestByChannelTradeNo(channelTradeNo string) (*models.Payment, error)
	ListPendingByOrderID(orderID uint) ([]models.Payment, error)
	ListByOrderID(orderID uint) ([]models.Payment, error)
	ListExpiredPending(now time.Time, limit int) ([]models.Payment, error)
	ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付单
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付单
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID 根据 ID 获取支付单
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDForUpdate 根据 ID 行锁获取支付单（须在事务内调用）
func (r *GormPaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentNo 根据支付单号获取支付单
func (r *GormPaymentRepository) GetByPaymentNo(paymentNo string) (*models.Payment, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("payment_no = ?", paymentNo).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestByChannelTradeNo 根据第三方流水号获取最新支付单
func (r *GormPaymentRepository) GetLatestByChannelTradeNo(channelTradeNo string) (*models.Payment, error) {
	channelTradeNo = strings.TrimSpace(channelTradeNo)
	if channelTradeNo == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("channel_trade_no = ?", channelTradeNo).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListPendingByOrderID 获取订单下全部待支付记录
func (r *GormPaymentRepository) ListPendingByOrderID(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("order_id = ? AND status = ?", orderID, constants.PaymentStatusPending).
		Order("id desc").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ListByOrderID 获取订单支付记录
func (r *GormPaymentRepository) ListByOrderID(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.Where("order_id = ?", orderID).Order("id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListExpiredPending 获取已到期的待支付记录（expire_time <= now 即到期）
func (r *GormPaymentRepository) ListExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	query := r.db.Where("status = ? AND expire_time <= ?", constants.PaymentStatusPending, now).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListAdmin 管理端支付列表
func (r *GormPaymentRepository) ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if no := strings.TrimSpace(filter.PaymentNo); no != "" {
		query = query.Where("payment_no = ?", no)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
