package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ranjitk/sensor-monitor/internal/decision"
	"github.com/ranjitk/sensor-monitor/internal/enrichment"
	"github.com/ranjitk/sensor-monitor/internal/history"
	"github.com/ranjitk/sensor-monitor/internal/model"
	"github.com/ranjitk/sensor-monitor/internal/notify"
	"github.com/ranjitk/sensor-monitor/internal/pipeline"
	"github.com/ranjitk/sensor-monitor/internal/protocol"
	"github.com/ranjitk/sensor-monitor/internal/queue"
	"github.com/ranjitk/sensor-monitor/internal/reading"
	"github.com/ranjitk/sensor-monitor/internal/registry"
	"github.com/ranjitk/sensor-monitor/internal/store"
	"github.com/ranjitk/sensor-monitor/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Irrigation Advisor Service...")

	// Load the pre-trained model. Without it no decision can be made,
	// so a load failure is fatal.
	scorer, err := model.Load(cfg.Model.Path)
	if err != nil {
		log.Fatalf("Failed to load irrigation model: %v", err)
	}
	fmt.Printf("Loaded irrigation model (%d features)\n", scorer.FeatureCount())

	// Connect to database
	db, err := store.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis (weather response cache)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	// Connect to the MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL).
		SetClientID(fmt.Sprintf("%s-irrigation-%s", cfg.MQTT.ClientID, uuid.New().String()[:8])).
		SetAutoReconnect(true)

	mqttClient := mqtt.NewClient(opts)
	token := mqttClient.Connect()
	if !token.WaitTimeout(cfg.MQTT.ConnectWait) || token.Error() != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", token.Error())
	}
	defer mqttClient.Disconnect(250)
	fmt.Println("Connected to MQTT broker")

	// Soil sensor source, one reading per inbound message
	sourceID := path.Base(cfg.Irrigation.SensorTopic)
	source, err := reading.NewMQTTSource(
		mqttClient,
		cfg.Irrigation.SensorTopic,
		sourceID,
		protocol.ParseSoilPayload,
		cfg.Irrigation.ReadTimeout,
	)
	if err != nil {
		log.Fatalf("Failed to subscribe to sensor topic: %v", err)
	}
	defer source.Close()
	fmt.Printf("Listening for sensor data on topic: %s\n", cfg.Irrigation.SensorTopic)

	// Weather enrichment, cached in Redis
	weatherClient := enrichment.NewWeatherClient(
		cfg.Weather.BaseURL,
		cfg.Weather.APIKey,
		cfg.Weather.Timeout,
		redisClient,
		cfg.Weather.CacheTTL,
	)
	enricher := enrichment.ForLocation(weatherClient, cfg.Irrigation.Latitude, cfg.Irrigation.Longitude)

	// Decision audit producer
	auditProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDecisions)
	defer auditProducer.Close()
	fmt.Println("Decision audit producer initialized")

	// Source liveness: log sensors that go quiet
	sources := registry.NewRegistry()
	go watchStaleSources(ctx, sources, cfg.Irrigation.StaleAfter)

	alertContext := notify.AlertContext{
		Title:         "Irrigation Alert",
		Location:      cfg.Irrigation.FieldName,
		Target:        cfg.Irrigation.DeviceToken,
		PrimaryName:   "moisture",
		SecondaryName: "soil_temperature",
		PrimaryUnit:   "%",
		SecondaryUnit: "°C",
	}

	// Assemble the pipeline
	p, err := pipeline.New(pipeline.Options{
		Source:    source,
		Window:    history.NewWindow(cfg.Irrigation.HistoryCapacity),
		Reducer:   history.SumSecondary, // rainfall accumulated over the window
		Evaluator: decision.NewScoredEvaluator(scorer, cfg.Irrigation.Cutoff),
		Sink:      store.NewReadingSink(db),
		Notifiers: []notify.Notifier{
			notify.NewPushNotifier(cfg.Push.Endpoint, cfg.Push.APIKey, cfg.Push.Timeout),
		},
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return notify.BuildScoredAlert(dec, alertContext)
		},
		Enricher: enricher,
		Audit:    auditProducer,
		Registry: sources,
		Location: cfg.Irrigation.FieldName,
		Backoff:  cfg.Irrigation.CycleBackoff,
	})
	if err != nil {
		log.Fatalf("Failed to assemble pipeline: %v", err)
	}

	go func() {
		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Pipeline stopped: %v", err)
		}
	}()

	fmt.Printf("\n✓ Irrigation Advisor is running (field: %s, cutoff: %.2f)\n",
		cfg.Irrigation.FieldName, cfg.Irrigation.Cutoff)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}

// watchStaleSources periodically logs sensors that have not been heard
// from within the configured window.
func watchStaleSources(ctx context.Context, sources *registry.Registry, staleAfter time.Duration) {
	interval := staleAfter / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sourceID := range sources.StaleSources(staleAfter) {
				log.Printf("Sensor %s has been quiet for over %s", sourceID, staleAfter)
			}
		}
	}
}
