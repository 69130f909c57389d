package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"launchpad_backend/internal/models"
)

var (
	ErrOrderNotFound  = errors.New("payment order not found")
	ErrOrderDuplicate = errors.New("payment order already exists")
)

// StatusUpdate is one observation of an order's gateway status.
type StatusUpdate struct {
	Status           models.PaymentStatus
	ObservedAt       time.Time
	ConfirmationCode string
	PaymentMethod    string
	Payload          []byte
}

type PaymentOrderRepository interface {
	Create(ctx context.Context, order *models.PaymentOrder) error
	ExistsByMerchantReference(ctx context.Context, ref string) (bool, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*models.PaymentOrder, error)
	FindByMerchantReference(ctx context.Context, ref string) (*models.PaymentOrder, error)
	ApplyStatus(ctx context.Context, trackingID string, upd StatusUpdate) (bool, error)
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentOrder, error)
}

type PaymentOrderRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentOrderRepository(db *gorm.DB) PaymentOrderRepository {
	return &PaymentOrderRepositoryImpl{db: db}
}

func (r *PaymentOrderRepositoryImpl) Create(ctx context.Context, order *models.PaymentOrder) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOrderDuplicate
	}
	return err
}

func (r *PaymentOrderRepositoryImpl) ExistsByMerchantReference(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("merchant_reference = ?", ref).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentOrderRepositoryImpl) FindByTrackingID(ctx context.Context, trackingID string) (*models.PaymentOrder, error) {
	return r.findOne(ctx, "tracking_id = ?", trackingID)
}

func (r *PaymentOrderRepositoryImpl) FindByMerchantReference(ctx context.Context, ref string) (*models.PaymentOrder, error) {
	return r.findOne(ctx, "merchant_reference = ?", ref)
}

func (r *PaymentOrderRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).Where(query, arg).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ApplyStatus writes upd only while the stored status is not terminal and no
// later observation has been recorded. It reports whether a row changed.
func (r *PaymentOrderRepositoryImpl) ApplyStatus(ctx context.Context, trackingID string, upd StatusUpdate) (bool, error) {
	terminal := []models.PaymentStatus{models.PaymentStatusCompleted, models.PaymentStatusFailed}

	fields := map[string]interface{}{
		"status":             upd.Status,
		"status_observed_at": upd.ObservedAt,
	}
	if upd.ConfirmationCode != "" {
		fields["confirmation_code"] = upd.ConfirmationCode
	}
	if upd.PaymentMethod != "" {
		fields["payment_method"] = upd.PaymentMethod
	}
	if len(upd.Payload) > 0 {
		fields["gateway_payload"] = datatypes.JSON(upd.Payload)
	}
	if upd.Status == models.PaymentStatusCompleted {
		fields["completed_at"] = upd.ObservedAt
	}

	res := r.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("tracking_id = ?", trackingID).
		Where("status NOT IN ?", terminal).
		Where("status_observed_at IS NULL OR status_observed_at <= ?", upd.ObservedAt).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentOrderRepositoryImpl) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusInvalid}).
		Where("created_at <= ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
