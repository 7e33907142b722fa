package main

import (
	"context"
	"log"
	"time"

	"github.com/dpup/prefab"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Stanux/walking-safely-sub002/internal/api"
	"github.com/Stanux/walking-safely-sub002/internal/cache"
	"github.com/Stanux/walking-safely-sub002/internal/clients/pathfinder"
	"github.com/Stanux/walking-safely-sub002/internal/clients/riskfeed"
	"github.com/Stanux/walking-safely-sub002/internal/config"
	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
	"github.com/Stanux/walking-safely-sub002/internal/notify"
	"github.com/Stanux/walking-safely-sub002/internal/observability"
	"github.com/Stanux/walking-safely-sub002/internal/services"
	"github.com/Stanux/walking-safely-sub002/internal/stores/postgres"
)

func main() {
	ctx := context.Background()
	appConfig := loadConfig()

	cacheInstance := cache.New()
	cacheInstance.StartPeriodicCleanup(ctx, 10*time.Minute)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	pathfinderClient := pathfinder.NewClient(appConfig.Pathfinder.BaseURL, appConfig.Pathfinder.APIKey)
	regionSource := buildRegionSource(ctx, appConfig)

	assembler := routing.NewAssembler(pathfinderClient, regionSource)

	var enhancer alerts.WarningEnhancer
	if appConfig.Alerts.OpenAIAPIKey != "" {
		base := alerts.NewWarningEnhancer(appConfig.Alerts.OpenAIAPIKey, appConfig.Alerts.OpenAIModel)
		enhancer = alerts.NewCachedEnhancer(base, cache.NewWarningCacheAdapter(cacheInstance))
		log.Printf("Warning enhancement enabled (model: %s)", appConfig.Alerts.OpenAIModel)
	} else {
		log.Printf("Warning enhancement disabled; using template warnings")
	}

	var publisher services.EventPublisher
	if appConfig.Messaging.RabbitMQURL != "" {
		conn, err := notify.Connect(appConfig.Messaging.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		publisher = notify.NewNavigationPublisher(conn)
		log.Printf("Navigation event publishing enabled")
	}

	routeService := services.NewRouteService(assembler, enhancer, cacheInstance, metrics, &appConfig.Pathfinder)
	navigationService := services.NewNavigationService(routeService, assembler, regionSource, publisher, metrics, &appConfig.Navigation)
	trackingHandler := services.NewLiveTrackingHandler(navigationService)

	go navigationService.RunTrafficChecker(ctx)

	handler := api.NewHandler(routeService, navigationService, trackingHandler)
	mux := handler.Mux(registry)

	log.Printf("Walking navigation server starting")

	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", mux.ServeHTTP),
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildRegionSource picks the risk region backend: Postgres when a DSN is
// configured, the KML feed otherwise
func buildRegionSource(ctx context.Context, appConfig *config.Config) routing.RegionSource {
	if appConfig.RiskData.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, appConfig.RiskData.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		log.Printf("Risk regions served from Postgres")
		return postgres.NewRegionStore(pool)
	}

	if appConfig.RiskData.FeedURL == "" {
		log.Fatal("Either risk_data.postgres_dsn or risk_data.feed_url must be configured")
	}
	log.Printf("Risk regions served from KML feed: %s", appConfig.RiskData.FeedURL)
	return riskfeed.NewFeedParser(appConfig.RiskData.FeedURL)
}

// loadConfig loads configuration using Prefab's config system. Values come
// from prefab.yaml and environment variables with the PF__ prefix, falling
// back to defaults.
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	for section, target := range map[string]any{
		"pathfinder": &appConfig.Pathfinder,
		"riskData":   &appConfig.RiskData,
		"alerts":     &appConfig.Alerts,
		"navigation": &appConfig.Navigation,
		"messaging":  &appConfig.Messaging,
	} {
		if err := prefab.Config.Unmarshal(section, target); err != nil {
			log.Fatalf("Failed to unmarshal %s section: %v", section, err)
		}
	}

	return appConfig
}
