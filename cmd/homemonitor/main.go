package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ranjitk/sensor-monitor/internal/decision"
	"github.com/ranjitk/sensor-monitor/internal/history"
	"github.com/ranjitk/sensor-monitor/internal/notify"
	"github.com/ranjitk/sensor-monitor/internal/pipeline"
	"github.com/ranjitk/sensor-monitor/internal/queue"
	"github.com/ranjitk/sensor-monitor/internal/reading"
	"github.com/ranjitk/sensor-monitor/internal/store"
	"github.com/ranjitk/sensor-monitor/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Home Monitor Service...")

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

	// Connect to the MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL).
		SetClientID(fmt.Sprintf("%s-home-%s", cfg.MQTT.ClientID, uuid.New().String()[:8])).
		SetAutoReconnect(true)

	mqttClient := mqtt.NewClient(opts)
	token := mqttClient.Connect()
	if !token.WaitTimeout(cfg.MQTT.ConnectWait) || token.Error() != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", token.Error())
	}
	defer mqttClient.Disconnect(250)
	fmt.Println("Connected to MQTT broker")

	// Decision audit producer
	auditProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDecisions)
	defer auditProducer.Close()
	fmt.Println("Decision audit producer initialized")

	// Notification channels: alert topic on the broker, email as backup
	alertContext := notify.AlertContext{
		Title:          "Temperature/Humidity Alert",
		Location:       "Home",
		PrimaryName:    "temperature",
		SecondaryName:  "humidity",
		PrimaryUnit:    "°C",
		SecondaryUnit:  "%",
		PrimaryLimit:   cfg.Monitor.TemperatureLimit,
		SecondaryLimit: cfg.Monitor.HumidityLimit,
	}

	notifiers := []notify.Notifier{
		notify.NewMQTTNotifier(mqttClient, cfg.MQTT.AlertTopic, cfg.MQTT.PublishWait),
		notify.NewEmailNotifier(&cfg.SMTP),
	}

	// Assemble the pipeline
	p, err := pipeline.New(pipeline.Options{
		Source:    reading.NewSimulatedClimateSensor(cfg.Monitor.SourceID),
		Window:    history.NewWindow(cfg.Monitor.HistoryCapacity),
		Evaluator: decision.NewThresholdEvaluator(cfg.Monitor.TemperatureLimit, cfg.Monitor.HumidityLimit),
		Sink:      store.NewReadingSink(db),
		Notifiers: notifiers,
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return notify.BuildThresholdAlert(dec, alertContext)
		},
		Audit:    auditProducer,
		Location: alertContext.Location,
		Interval: cfg.Monitor.PollInterval,
		Backoff:  cfg.Monitor.CycleBackoff,
	})
	if err != nil {
		log.Fatalf("Failed to assemble pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Pipeline stopped: %v", err)
		}
	}()

	fmt.Printf("\n✓ Home Monitor is running (poll interval: %s)\n", cfg.Monitor.PollInterval)
	fmt.Printf("✓ Thresholds: temperature > %.1f°C, humidity > %.1f%%\n",
		cfg.Monitor.TemperatureLimit, cfg.Monitor.HumidityLimit)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}
