package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mqtt-relay-controller/pkg/config"
	"mqtt-relay-controller/pkg/connectivity"
	"mqtt-relay-controller/pkg/diagnostics"
	"mqtt-relay-controller/pkg/health"
	devicehttp "mqtt-relay-controller/pkg/http"
	"mqtt-relay-controller/pkg/identity"
	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/metrics"
	"mqtt-relay-controller/pkg/netlink"
	"mqtt-relay-controller/pkg/recovery"
	"mqtt-relay-controller/pkg/relay"
	"mqtt-relay-controller/pkg/scheduler"
	"mqtt-relay-controller/pkg/sensors"
	"mqtt-relay-controller/pkg/services"
	"mqtt-relay-controller/pkg/settings"
	"mqtt-relay-controller/pkg/telemetry"
	"mqtt-relay-controller/pkg/topics"
)

// Application wires the relay controller together
type Application struct {
	config    *config.Config
	store     *settings.Store
	linkMgr   *netlink.Manager
	conn      *connectivity.Manager
	relay     *relay.Controller
	source    *sensors.Source
	publisher *telemetry.Publisher
	handler   *settings.Handler
	cycle     *services.CycleService
	sched     *scheduler.CycleScheduler
	reporter  *diagnostics.Reporter
	collector metrics.Collector
}

// credentialSwapper performs the bounded hot-swap and forces the broker
// session to rebuild on the fresh link
type credentialSwapper struct {
	linkMgr  *netlink.Manager
	conn     *connectivity.Manager
	reporter *diagnostics.Reporter
}

// SwapCredentials implements settings.CredentialSwapper
func (s *credentialSwapper) SwapCredentials(creds settings.Credentials) error {
	s.reporter.Report(diagnostics.CodeCredentialSwap, fmt.Sprintf("swapping to ssid '%s'", creds.SSID))

	err := s.linkMgr.SwapCredentials(creds)

	// Rebuild the broker session either way: the old one rode the old link
	s.conn.RestartSession()
	return err
}

// NewApplication creates the application from configuration
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Init(&cfg.Logging)
	logger.LogStartup("Logging initialized with level: %s", cfg.Logging.Level)

	deviceID := identity.Identity()

	availabilityTopic := cfg.MQTT.AvailabilityTopic
	if availabilityTopic == "" {
		availabilityTopic = topics.BuildAvailabilityTopic(deviceID)
	}
	diagnosticTopic := cfg.MQTT.DiagnosticTopic
	if diagnosticTopic == "" {
		diagnosticTopic = topics.BuildDiagnosticTopic(deviceID)
	}

	store := settings.NewStore(settings.Snapshot{
		Threshold:  cfg.Relay.Threshold,
		Reverse:    cfg.Relay.Reverse,
		Hysteresis: cfg.Relay.Hysteresis,
		Credentials: settings.Credentials{
			SSID:   cfg.WiFi.SSID,
			Secret: cfg.WiFi.Secret,
		},
	})

	linkMgr := netlink.NewManager(netlink.NewSystemLink(), store.Snapshot().Credentials,
		time.Duration(cfg.MQTT.RetryDelay)*time.Millisecond,
		time.Duration(cfg.WiFi.SwapTimeout)*time.Second)

	reconnector := recovery.NewReconnector(recovery.ReconnectorConfig{
		InitialDelay: time.Duration(cfg.MQTT.RetryDelay) * time.Millisecond,
	})

	factory := connectivity.NewPahoSessionFactory(&cfg.MQTT, availabilityTopic)
	conn := connectivity.NewManager(linkMgr, factory, reconnector, identity.Identity,
		cfg.MQTT.Broker, cfg.MQTT.SettingsTopic, availabilityTopic)

	reporter := diagnostics.NewReporter(conn, diagnosticTopic, deviceID)

	relayCtrl := relay.NewController(
		relay.NewLoggedOutput("relay"),
		relay.NewLoggedOutput("indicator"),
	)

	// Acquisition drivers are external collaborators; host builds run
	// against the simulated pair
	sim := sensors.NewSimulatedSource(22.0, 230.0, 0.5)
	source := &sensors.Source{Temperature: sim, Meter: sim}

	publisher := telemetry.NewPublisher(conn, cfg.MQTT.DataTopic, deviceID)

	swapper := &credentialSwapper{linkMgr: linkMgr, conn: conn, reporter: reporter}
	handler := settings.NewHandler(store, deviceID, swapper)

	var httpVar *telemetry.HTTPClient
	if cfg.HTTP.Enabled {
		httpVar = telemetry.NewHTTPClient(cfg.HTTP.BaseURL, cfg.HTTP.ThresholdURL, deviceID,
			time.Duration(cfg.HTTP.Timeout)*time.Second)
		logger.LogInfo("HTTP telemetry variant enabled: %s", cfg.HTTP.BaseURL)
	}

	var collector metrics.Collector = metrics.NewNullMetrics()
	if cfg.Metrics.Enabled {
		collector = metrics.NewTextMetrics()
	}

	monitor := health.NewMonitor(0)
	cycle := services.NewCycleService(source, relayCtrl, store, publisher, httpVar,
		handler, conn, monitor, collector)

	app := &Application{
		config:    cfg,
		store:     store,
		linkMgr:   linkMgr,
		conn:      conn,
		relay:     relayCtrl,
		source:    source,
		publisher: publisher,
		handler:   handler,
		cycle:     cycle,
		sched:     scheduler.NewCycleScheduler(cfg.Control.Interval()),
		reporter:  reporter,
		collector: collector,
	}

	// Recovery announcement: every (re)connect publishes one telemetry
	// message reflecting the current sensor and relay state
	conn.SetOnConnected(func() {
		reading := source.Read()
		publisher.Tick(reading, store.Snapshot(), relayCtrl.IsOn())
		reporter.Report(diagnostics.CodeOK, "connected")
	})

	return app, nil
}

// provision runs the one-time interactive provisioning flow when no
// credentials are configured. Expiry of the window is fatal; the process
// exits and the supervisor restarts it.
func (app *Application) provision(ctx context.Context) error {
	if app.config.WiFi.SSID != "" || !app.config.WiFi.ProvisioningEnabled {
		return nil
	}

	logger.LogInfo("📶 No credentials configured, starting provisioning portal...")
	window := time.Duration(app.config.WiFi.ProvisioningTimeout) * time.Second

	creds, err := devicehttp.RunPortal(ctx, app.config.WiFi.ProvisioningPort, window)
	if err != nil {
		return err
	}

	app.store.SetCredentials(creds)
	if err := app.linkMgr.SwapCredentials(creds); err != nil {
		return err
	}

	return nil
}

// Start starts the application
func (app *Application) Start(ctx context.Context) error {
	logger.LogInfo("🚀 Starting relay controller (device %s)...", identity.Identity())

	if err := app.provision(ctx); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	if app.config.Metrics.Enabled {
		if err := app.collector.StartServer(app.config.Metrics.Port); err != nil {
			logger.LogWarn("Error starting metrics server: %v", err)
		}
	}

	go app.sched.Start(ctx, app.cycle.RunCycle)

	logger.LogInfo("✅ Relay controller started")
	return nil
}

// Stop stops the application
func (app *Application) Stop() {
	logger.LogInfo("🛑 Stopping relay controller...")

	app.conn.PublishAvailability("offline")
	app.conn.Disconnect()

	logger.LogInfo("✅ Relay controller stopped")
}

func main() {
	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT and SIGTERM for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	configPath := ""
	for _, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Printf("Usage: %s [config_path]\n", os.Args[0])
			fmt.Printf("  config_path: Path to configuration file (optional)\n")
			return
		}
		configPath = arg
	}

	app, err := NewApplication(configPath)
	if err != nil {
		logger.LogError("Application creation error: %v", err)
		os.Exit(1)
	}

	if err := app.Start(ctx); err != nil {
		logger.LogError("Application start error: %v", err)
		os.Exit(1)
	}

	// Wait for stop signal
	<-sigChan
	logger.LogInfo("📢 Stop signal received...")

	cancel()
	app.Stop()
}
