package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CATALOG_CACHE_TTL_SECONDS", "CATALOG_FEED_CHANNEL",
		"ACCESS_TOKEN_TTL_MINUTES", "CHECKOUT_MAX_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected address :8080, got %q", cfg.Address())
	}
	if cfg.CatalogCacheTTLSecs != 30 {
		t.Fatalf("expected cache ttl 30, got %d", cfg.CatalogCacheTTLSecs)
	}
	if cfg.CatalogFeedChannel != "catalog.events" {
		t.Fatalf("expected default feed channel, got %q", cfg.CatalogFeedChannel)
	}
	if cfg.CheckoutMaxRetries != 3 {
		t.Fatalf("expected 3 checkout retries, got %d", cfg.CheckoutMaxRetries)
	}
}

func TestLoadRejectsNonsenseNumbers(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "banana")
	t.Setenv("CHECKOUT_MAX_RETRIES", "-5")

	cfg := Load()
	if cfg.CatalogCacheTTLSecs != 30 {
		t.Fatalf("expected ttl fallback 30, got %d", cfg.CatalogCacheTTLSecs)
	}
	if cfg.CheckoutMaxRetries != 3 {
		t.Fatalf("expected retries fallback 3, got %d", cfg.CheckoutMaxRetries)
	}
}
