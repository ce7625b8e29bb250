package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

const (
	DefaultMinExpiryHorizon = 30 * time.Minute
	DefaultMaxExpiryHorizon = 7 * 24 * time.Hour
	DefaultPickupTokenTTL   = 24 * time.Hour
)

func durationEnv(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// MinExpiryHorizon is the minimum distance of a Food's expiry from now at creation.
func MinExpiryHorizon() time.Duration {
	return durationEnv("FOOD_EXPIRY_MIN", DefaultMinExpiryHorizon)
}

// MaxExpiryHorizon is the maximum distance of a Food's expiry from now at creation.
func MaxExpiryHorizon() time.Duration {
	return durationEnv("FOOD_EXPIRY_MAX", DefaultMaxExpiryHorizon)
}

// PickupTokenTTL is the validity window of a sealed pickup token.
func PickupTokenTTL() time.Duration {
	return durationEnv("PICKUP_TOKEN_TTL", DefaultPickupTokenTTL)
}

// QRSecretKey returns the AES key used to seal pickup token payloads,
// decoded from the hex value of API_QRC_SECRET.
func QRSecretKey() ([]byte, error) {
	keyEnv := os.Getenv("API_QRC_SECRET")
	key, err := hex.DecodeString(keyEnv)
	if err != nil {
		return nil, err
	}
	return key, nil
}
