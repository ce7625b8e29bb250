package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sisaplus/src/config"
	"sisaplus/src/core"
	"sisaplus/src/middlewares"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("API_QRC_SECRET", "6368616e676520746869732070617373776f726420746f206120736563726574")
	jwtKey = []byte("test-secret")
	middlewares.NewJWTKey(jwtKey)
	os.Exit(m.Run())
}

type APITestSuite struct {
	suite.Suite
	router        *gin.Engine
	store         *store.MemoryStore
	donor         *models.User
	receiver      *models.User
	donorToken    string
	receiverToken string
}

func (s *APITestSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	setupEngine(s.store, core.NopDispatcher{}, nil)
	s.router = buildServer()

	s.donor, s.donorToken = s.createUser("Dana Donor", "dana@example.com")
	s.receiver, s.receiverToken = s.createUser("Remy Receiver", "remy@example.com")
}

func (s *APITestSuite) createUser(name, email string) (*models.User, string) {
	w := s.request("POST", "/api/v1/auth/register", "", map[string]any{
		"name":  name,
		"email": email,
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	body, err := io.ReadAll(w.Body)
	s.Require().NoError(err)
	token := gjson.GetBytes(body, "token").String()
	s.Require().NotEmpty(token)
	user, err := s.store.GetUserByEmail(context.Background(), email)
	s.Require().NoError(err)
	return user, token
}

func (s *APITestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = strings.NewReader(string(raw))
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) foodPayload() map[string]any {
	return map[string]any{
		"title":          "Bread and pastries",
		"description":    "A full bag from today's unsold bakery stock",
		"category":       "bakery",
		"quantity":       10,
		"pickup_address": "45 Baker Ave",
		"price_type":     "free",
		"expires_at":     time.Now().Add(2 * time.Hour).Format(config.TIME_PARSE_FORMAT),
	}
}

func (s *APITestSuite) createListing() uint {
	w := s.request("POST", "/api/v1/foods", s.donorToken, s.foodPayload())
	s.Require().Equal(http.StatusCreated, w.Code)
	body, _ := io.ReadAll(w.Body)
	return uint(gjson.GetBytes(body, "data.id").Uint())
}

func (s *APITestSuite) TestPingRoute() {
	w := s.request("GET", "/", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *APITestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	w := s.request("GET", "/api/v1/foods", s.donorToken, nil)
	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func (s *APITestSuite) TestRequiresAuth() {
	w := s.request("GET", "/api/v1/foods", "", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	w = s.request("GET", "/api/v1/foods", "not-a-jwt", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestRegisterDuplicateEmail() {
	w := s.request("POST", "/api/v1/auth/register", "", map[string]any{
		"name":  "Dana Again",
		"email": "dana@example.com",
	})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *APITestSuite) TestLogin() {
	w := s.request("POST", "/api/v1/auth/login", "", map[string]any{
		"email": "dana@example.com",
	})
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.NotEmpty(s.T(), gjson.GetBytes(body, "token").String())

	w = s.request("POST", "/api/v1/auth/login", "", map[string]any{
		"email": "nobody@example.com",
	})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestCreateFoodValidation() {
	payload := s.foodPayload()
	payload["expires_at"] = time.Now().Add(-time.Hour).Format(config.TIME_PARSE_FORMAT)
	w := s.request("POST", "/api/v1/foods", s.donorToken, payload)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	payload = s.foodPayload()
	payload["title"] = "ab"
	w = s.request("POST", "/api/v1/foods", s.donorToken, payload)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.True(s.T(), gjson.GetBytes(body, "fields.title").Exists())
}

func (s *APITestSuite) TestListingFeed() {
	foodId := s.createListing()

	// the donor's own listing is hidden from their feed
	w := s.request("GET", "/api/v1/foods", s.donorToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(0), gjson.GetBytes(body, "count").Int())

	w = s.request("GET", "/api/v1/foods", s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "count").Int())

	// detail fetch bumps the view counter
	w = s.request("GET", fmt.Sprintf("/api/v1/foods/%d", foodId), s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "data.view_count").Int())

	w = s.request("GET", "/api/v1/me/foods", s.donorToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "count").Int())
}

func (s *APITestSuite) TestBookingConflict() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": foodId})
	assert.Equal(s.T(), http.StatusCreated, w.Code)

	_, otherToken := s.createUser("Late Larry", "larry@example.com")
	w = s.request("POST", "/api/v1/bookings", otherToken, map[string]any{"food_id": foodId})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Equal(s.T(), "already_booked", gjson.GetBytes(body, "reason").String())
}

func (s *APITestSuite) TestSelfBookingRejected() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.donorToken, map[string]any{"food_id": foodId})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Equal(s.T(), "self_booking", gjson.GetBytes(body, "reason").String())
}

func (s *APITestSuite) TestBookingUnknownFood() {
	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": 4040})
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestPickupFlow() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": foodId})
	s.Require().Equal(http.StatusCreated, w.Code)
	body, _ := io.ReadAll(w.Body)
	bookingId := gjson.GetBytes(body, "data.id").Uint()

	// a pending booking yields no pickup token yet
	w = s.request("GET", fmt.Sprintf("/api/v1/pickup/%d/token", bookingId), s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	w = s.request("PUT", fmt.Sprintf("/api/v1/bookings/%d/status", bookingId), s.donorToken, map[string]any{"status": "confirmed"})
	s.Require().Equal(http.StatusOK, w.Code)

	// only the receiver can request the token
	w = s.request("GET", fmt.Sprintf("/api/v1/pickup/%d/token", bookingId), s.donorToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.request("GET", fmt.Sprintf("/api/v1/pickup/%d/token", bookingId), s.receiverToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	code := gjson.GetBytes(body, "data.code").String()
	s.Require().NotEmpty(code)

	// scanning by anyone but the donor is refused
	w = s.request("POST", "/api/v1/pickup/scan", s.receiverToken, map[string]any{"code": code})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.request("POST", "/api/v1/pickup/scan", s.donorToken, map[string]any{"code": code})
	s.Require().Equal(http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), "completed", gjson.GetBytes(body, "data.status").String())

	// the same code cannot be redeemed twice
	w = s.request("POST", "/api/v1/pickup/scan", s.donorToken, map[string]any{"code": code})
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	w = s.request("POST", "/api/v1/pickup/scan", s.donorToken, map[string]any{"code": "garbage"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestRejectAtPickup() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": foodId})
	s.Require().Equal(http.StatusCreated, w.Code)
	body, _ := io.ReadAll(w.Body)
	bookingId := gjson.GetBytes(body, "data.id").Uint()

	w = s.request("PUT", fmt.Sprintf("/api/v1/bookings/%d/status", bookingId), s.donorToken, map[string]any{"status": "confirmed"})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.request("POST", fmt.Sprintf("/api/v1/pickup/%d/reject", bookingId), s.donorToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), "cancelled", gjson.GetBytes(body, "data.status").String())

	// the listing is back on the feed
	w = s.request("GET", "/api/v1/foods", s.receiverToken, nil)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "count").Int())
}

func (s *APITestSuite) TestDeleteFood() {
	foodId := s.createListing()

	w := s.request("DELETE", fmt.Sprintf("/api/v1/foods/%d", foodId), s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.request("DELETE", fmt.Sprintf("/api/v1/foods/%d", foodId), s.donorToken, nil)
	assert.Equal(s.T(), http.StatusNoContent, w.Code)

	w = s.request("GET", fmt.Sprintf("/api/v1/foods/%d", foodId), s.donorToken, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestBookingLists() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": foodId})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request("GET", "/api/v1/bookings", s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "count").Int())

	w = s.request("GET", "/api/v1/requests", s.donorToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(1), gjson.GetBytes(body, "count").Int())

	w = s.request("GET", "/api/v1/requests", s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(0), gjson.GetBytes(body, "count").Int())
}

func (s *APITestSuite) TestDeleteBookingFromHistory() {
	foodId := s.createListing()

	w := s.request("POST", "/api/v1/bookings", s.receiverToken, map[string]any{"food_id": foodId})
	s.Require().Equal(http.StatusCreated, w.Code)
	body, _ := io.ReadAll(w.Body)
	bookingId := gjson.GetBytes(body, "data.id").Int()

	// still pending: must be cancelled before it can be removed
	w = s.request("DELETE", fmt.Sprintf("/api/v1/bookings/%d", bookingId), s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.request("PUT", fmt.Sprintf("/api/v1/bookings/%d/status", bookingId), s.receiverToken, map[string]any{"status": "cancelled"})
	s.Require().Equal(http.StatusOK, w.Code)

	// only the receiver may clear their history
	w = s.request("DELETE", fmt.Sprintf("/api/v1/bookings/%d", bookingId), s.donorToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.request("DELETE", fmt.Sprintf("/api/v1/bookings/%d", bookingId), s.receiverToken, nil)
	assert.Equal(s.T(), http.StatusNoContent, w.Code)

	w = s.request("GET", "/api/v1/bookings", s.receiverToken, nil)
	body, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), int64(0), gjson.GetBytes(body, "count").Int())
}

func (s *APITestSuite) TestUpdateFCMToken() {
	w := s.request("PUT", "/api/v1/me/fcm-token", s.receiverToken, map[string]any{"token": "device-token"})
	assert.Equal(s.T(), http.StatusNoContent, w.Code)

	user, err := s.store.GetUser(context.Background(), s.receiver.ID)
	s.Require().NoError(err)
	assert.Equal(s.T(), "device-token", user.FCMToken)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
