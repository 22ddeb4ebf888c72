package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// getTestConfig returns config for testing
func getTestConfig() *Config {
	cfg := DefaultConfig()

	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if password := os.Getenv("TEST_REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}

	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", cfg.Host)
	}
	if cfg.Port != 6379 {
		t.Errorf("Expected port 6379, got %d", cfg.Port)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if cfg.Addr() != expected {
		t.Errorf("Expected addr '%s', got '%s'", expected, cfg.Addr())
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	cfg := &Config{
		Host:          "invalid-host-that-does-not-exist",
		Port:          9999,
		MaxRetries:    0,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, cfg)
	if err == nil {
		t.Error("Expected error for invalid config, got nil")
	}
}

func TestClient_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer client.Close()

	key := "test:session:integration"
	defer client.Del(ctx, key)

	ok, err := client.SetXX(ctx, key, "v0", time.Minute).Result()
	if err != nil || ok {
		t.Fatalf("SetXX on missing key = %v, %v; want false, nil", ok, err)
	}

	ok, err = client.SetNX(ctx, key, "v1", time.Minute).Result()
	if err != nil || !ok {
		t.Fatalf("SetNX = %v, %v; want true, nil", ok, err)
	}

	val, err := client.GetEx(ctx, key, 2*time.Minute).Result()
	if err != nil || val != "v1" {
		t.Fatalf("GetEx = %q, %v; want v1, nil", val, err)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl <= time.Minute {
		t.Errorf("TTL after GetEx = %v, %v; want > 1m", ttl, err)
	}

	client.Del(ctx, key)
	if _, err := client.Get(ctx, key).Result(); !errors.Is(err, Nil) {
		t.Errorf("Get after Del error = %v, want Nil", err)
	}
}
