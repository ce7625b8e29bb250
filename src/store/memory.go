package store

import (
	"context"
	"sisaplus/src/models"
	"sisaplus/src/types"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Gateway. It backs the core
// package tests and the dependency-free local mode. The compare-and-swap
// on Food.status holds the same atomicity guarantee as the SQL adapter.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[uint]*models.User
	foods         map[uint]*models.Food
	bookings      map[uint]*models.Booking
	notifications []*models.Notification
	nextID        uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]*models.User),
		foods:    make(map[uint]*models.Food),
		bookings: make(map[uint]*models.Booking),
		nextID:   1,
	}
}

func (s *MemoryStore) allocID() uint {
	id := s.nextID
	s.nextID++
	return id
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyFood(f *models.Food) *models.Food {
	c := *f
	c.Bookings = nil
	return &c
}

func copyBooking(b *models.Booking) *models.Booking {
	c := *b
	return &c
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.allocID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *MemoryStore) UpdateUserFCMToken(ctx context.Context, id uint, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.FCMToken = token
	return nil
}

func (s *MemoryStore) GetFood(ctx context.Context, id uint) (*models.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.foods[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyFood(f)
	if donor, ok := s.users[f.DonorID]; ok {
		out.Donor = copyUser(donor)
	}
	return out, nil
}

func (s *MemoryStore) CreateFood(ctx context.Context, food *models.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if food.ID == 0 {
		food.ID = s.allocID()
	}
	food.CreatedAt = time.Now()
	food.UpdatedAt = food.CreatedAt
	s.foods[food.ID] = copyFood(food)
	return nil
}

func (s *MemoryStore) DeleteFood(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.foods, id)
	return nil
}

func (s *MemoryStore) ConditionalUpdateFoodStatus(ctx context.Context, id uint, expected, next types.FoodStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.foods[id]
	if !ok || f.Status != expected {
		return false, nil
	}
	f.Status = next
	f.UpdatedAt = time.Now()
	return true, nil
}

// SetFoodStatus force-sets a Food's status, bypassing the CAS. Not part
// of the Gateway contract; tests use it to seed terminal states.
func (s *MemoryStore) SetFoodStatus(id uint, next types.FoodStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.foods[id]
	if !ok {
		return ErrNotFound
	}
	f.Status = next
	f.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) IncrementFoodViews(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.foods[id]
	if !ok {
		return ErrNotFound
	}
	f.ViewCount++
	return nil
}

func (s *MemoryStore) QueryFoods(ctx context.Context, filters FoodFilters) ([]models.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Food, 0)
	for _, f := range s.foods {
		if len(filters.Statuses) > 0 && !containsFoodStatus(filters.Statuses, f.Status) {
			continue
		}
		if filters.Category != "" && f.Category != filters.Category {
			continue
		}
		if filters.Search != "" {
			term := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(f.Title), term) &&
				!strings.Contains(strings.ToLower(f.Description), term) {
				continue
			}
		}
		if filters.DonorID > 0 && f.DonorID != filters.DonorID {
			continue
		}
		if filters.ExcludeDonorID > 0 && f.DonorID == filters.ExcludeDonorID {
			continue
		}
		if filters.ExpiresAfter != nil && !f.ExpiresAt.After(*filters.ExpiresAfter) {
			continue
		}
		if filters.ExpiresBefore != nil && !f.ExpiresAt.Before(*filters.ExpiresBefore) {
			continue
		}
		out = append(out, *copyFood(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyBooking(b)
	if f, ok := s.foods[b.FoodID]; ok {
		out.Food = copyFood(f)
		if donor, ok := s.users[f.DonorID]; ok {
			out.Food.Donor = copyUser(donor)
		}
	}
	if r, ok := s.users[b.ReceiverID]; ok {
		out.Receiver = copyUser(r)
	}
	return out, nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if booking.ID == 0 {
		booking.ID = s.allocID()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	s.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (s *MemoryStore) DeleteBooking(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
	return nil
}

func (s *MemoryStore) ConditionalUpdateBookingStatus(ctx context.Context, id uint, expected, next types.BookingStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != expected {
		return false, nil
	}
	b.Status = next
	b.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) QueryBookings(ctx context.Context, filters BookingFilters) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, 0)
	for _, b := range s.bookings {
		if filters.FoodID > 0 && b.FoodID != filters.FoodID {
			continue
		}
		if filters.ReceiverID > 0 && b.ReceiverID != filters.ReceiverID {
			continue
		}
		if filters.DonorID > 0 {
			f, ok := s.foods[b.FoodID]
			if !ok || f.DonorID != filters.DonorID {
				continue
			}
		}
		if len(filters.Statuses) > 0 && !containsBookingStatus(filters.Statuses, b.Status) {
			continue
		}
		item := *copyBooking(b)
		if f, ok := s.foods[b.FoodID]; ok {
			item.Food = copyFood(f)
		}
		if r, ok := s.users[b.ReceiverID]; ok {
			item.Receiver = copyUser(r)
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ActiveBookingForFood(ctx context.Context, foodID uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.FoodID == foodID && (b.Status == types.BOOKING_PENDING || b.Status == types.BOOKING_CONFIRMED) {
			return copyBooking(b), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.allocID()
	}
	s.notifications = append(s.notifications, n)
	return nil
}

// Notifications returns the audit rows written so far. Test helper.
func (s *MemoryStore) Notifications() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func containsFoodStatus(list []types.FoodStatus, v types.FoodStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsBookingStatus(list []types.BookingStatus, v types.BookingStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
