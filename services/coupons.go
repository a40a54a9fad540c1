package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"food-ordering-api/apperr"
	"food-ordering-api/models"
)

type CouponInput struct {
	Code          string              `json:"code" binding:"required,min=3,max=32"`
	DiscountType  models.DiscountType `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue *decimal.Decimal    `json:"discount_value" binding:"required"`
	IsActive      *bool               `json:"is_active"`
}

type CouponService struct {
	db *gorm.DB
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db}
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	value := *in.DiscountValue
	if !value.IsPositive() {
		return nil, apperr.Validation("discount_value must be greater than 0")
	}
	if in.DiscountType == models.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperr.Validation("percentage discount_value must be at most 100")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err, "failed to check coupon code")
	}
	if count > 0 {
		return nil, apperr.Conflict("Coupon code %s already exists", code)
	}

	coupon := models.Coupon{
		Code:          code,
		DiscountType:  in.DiscountType,
		DiscountValue: models.NewMoney(value),
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(&coupon).Error; err != nil {
		return nil, apperr.Internal(err, "failed to create coupon")
	}
	return &coupon, nil
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	if err := s.db.WithContext(ctx).Order("id asc").Find(&coupons).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list coupons")
	}
	return coupons, nil
}

func (s *CouponService) SetActive(ctx context.Context, id uint, active bool) (*models.Coupon, error) {
	res := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error, "failed to update coupon")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Coupon not found")
	}
	var coupon models.Coupon
	if err := s.db.WithContext(ctx).First(&coupon, id).Error; err != nil {
		return nil, apperr.Internal(err, "failed to reload coupon")
	}
	return &coupon, nil
}
