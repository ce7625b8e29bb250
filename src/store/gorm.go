package store

import (
	"context"
	"errors"
	"sisaplus/src/models"
	"sisaplus/src/types"
	"strings"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed Gateway implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StorageError{Op: op, Err: err}
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where(&models.User{ID: id}).
		First(&user).
		Error
	if err != nil {
		return nil, s.wrap("GetUser", err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).
		Error
	if err != nil {
		return nil, s.wrap("GetUserByEmail", err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.wrap("CreateUser", s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) UpdateUserFCMToken(ctx context.Context, id uint, token string) error {
	return s.wrap("UpdateUserFCMToken", s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("fcm_token", token).
		Error)
}

func (s *GormStore) GetFood(ctx context.Context, id uint) (*models.Food, error) {
	var food models.Food
	err := s.db.WithContext(ctx).
		Where(&models.Food{ID: id}).
		Preload("Donor").
		First(&food).
		Error
	if err != nil {
		return nil, s.wrap("GetFood", err)
	}
	return &food, nil
}

func (s *GormStore) CreateFood(ctx context.Context, food *models.Food) error {
	return s.wrap("CreateFood", s.db.WithContext(ctx).Create(food).Error)
}

func (s *GormStore) DeleteFood(ctx context.Context, id uint) error {
	return s.wrap("DeleteFood", s.db.WithContext(ctx).Delete(&models.Food{}, id).Error)
}

func (s *GormStore) ConditionalUpdateFoodStatus(ctx context.Context, id uint, expected, next types.FoodStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Food{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, &StorageError{Op: "ConditionalUpdateFoodStatus", Err: res.Error}
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) IncrementFoodViews(ctx context.Context, id uint) error {
	return s.wrap("IncrementFoodViews", s.db.WithContext(ctx).
		Model(&models.Food{}).
		Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).
		Error)
}

func (s *GormStore) QueryFoods(ctx context.Context, filters FoodFilters) ([]models.Food, error) {
	var foods []models.Food
	tx := s.db.WithContext(ctx).Model(&models.Food{})
	if len(filters.Statuses) > 0 {
		tx = tx.Where("status IN (?)", filters.Statuses)
	}
	if filters.Category != "" {
		tx = tx.Where("category = ?", filters.Category)
	}
	if filters.Search != "" {
		term := "%" + strings.ToLower(filters.Search) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	if filters.DonorID > 0 {
		tx = tx.Where("donor_id = ?", filters.DonorID)
	}
	if filters.ExcludeDonorID > 0 {
		tx = tx.Where("donor_id <> ?", filters.ExcludeDonorID)
	}
	if filters.ExpiresAfter != nil {
		tx = tx.Where("expires_at > ?", *filters.ExpiresAfter)
	}
	if filters.ExpiresBefore != nil {
		tx = tx.Where("expires_at < ?", *filters.ExpiresBefore)
	}
	err := tx.Order("created_at desc").Find(&foods).Error
	if err != nil {
		return nil, s.wrap("QueryFoods", err)
	}
	return foods, nil
}

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Where(&models.Booking{ID: id}).
		Preload("Food").
		Preload("Food.Donor").
		Preload("Receiver").
		First(&booking).
		Error
	if err != nil {
		return nil, s.wrap("GetBooking", err)
	}
	return &booking, nil
}

func (s *GormStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return s.wrap("CreateBooking", s.db.WithContext(ctx).Create(booking).Error)
}

func (s *GormStore) DeleteBooking(ctx context.Context, id uint) error {
	return s.wrap("DeleteBooking", s.db.WithContext(ctx).Delete(&models.Booking{}, id).Error)
}

func (s *GormStore) ConditionalUpdateBookingStatus(ctx context.Context, id uint, expected, next types.BookingStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, &StorageError{Op: "ConditionalUpdateBookingStatus", Err: res.Error}
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) QueryBookings(ctx context.Context, filters BookingFilters) ([]models.Booking, error) {
	var bookings []models.Booking
	tx := s.db.WithContext(ctx).Model(&models.Booking{}).Preload("Food").Preload("Food.Donor")
	if filters.FoodID > 0 {
		tx = tx.Where("food_id = ?", filters.FoodID)
	}
	if filters.ReceiverID > 0 {
		tx = tx.Where("receiver_id = ?", filters.ReceiverID)
	}
	if filters.DonorID > 0 {
		tx = tx.
			Joins("JOIN foods ON foods.id = bookings.food_id").
			Where("foods.donor_id = ?", filters.DonorID).
			Preload("Receiver")
	}
	if len(filters.Statuses) > 0 {
		tx = tx.Where("bookings.status IN (?)", filters.Statuses)
	}
	err := tx.Order("bookings.created_at desc").Find(&bookings).Error
	if err != nil {
		return nil, s.wrap("QueryBookings", err)
	}
	return bookings, nil
}

func (s *GormStore) ActiveBookingForFood(ctx context.Context, foodID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Where("food_id = ? AND status IN (?)", foodID, types.ActiveBookingStatuses).
		First(&booking).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &StorageError{Op: "ActiveBookingForFood", Err: err}
	}
	return &booking, nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.wrap("CreateNotification", s.db.WithContext(ctx).Create(n).Error)
}
