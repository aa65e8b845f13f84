// Program anglelogger samples an AS5600 magnetic angle sensor on a cron
// schedule and publishes the readings to an MQTT broker and, optionally, to
// InfluxDB. Readings that fail to publish are kept on disk and retried.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	homedir "github.com/mitchellh/go-homedir"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mtraver/angle-sensor/as5600"
	"github.com/mtraver/angle-sensor/cache"
	"github.com/mtraver/angle-sensor/db"
	"github.com/mtraver/angle-sensor/measurement"
	"github.com/mtraver/angle-sensor/pending"
	"github.com/mtraver/angle-sensor/sensor"
	sensoras5600 "github.com/mtraver/angle-sensor/sensor/as5600"
	"github.com/mtraver/angle-sensor/sensor/dummy"
)

// Flags.
var (
	deviceID     string
	brokerURL    string
	topic        string
	cronSpec     string
	port         int
	dryrun       bool
	debug        bool
	busName      string
	addr         uint
	samples      int
	sensorName   string
	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string
)

var (
	// This directory is where we'll store anything the program needs to persist, like
	// measurements that are pending upload. This is joined with the user's home directory in init.
	dotDir = ".anglelogger"

	// Used to configure an mqtt.NewFileStore for in-flight messages. This is joined with
	// the user's home directory in init.
	mqttStoreDir = path.Join(dotDir, "mqtt_store")

	// Measurements that failed to publish, e.g. because the network went down. This is
	// joined with the user's home directory in init.
	pendingDir = path.Join(dotDir, "pending")
)

func init() {
	flag.StringVar(&deviceID, "device", "", "ID of this device, used in the MQTT client ID, topic and stored readings")
	flag.StringVar(&brokerURL, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	flag.StringVar(&topic, "topic", "", "MQTT topic to publish to (default devices/<device>/events)")
	flag.StringVar(&cronSpec, "cronspec", "", "cron spec that specifies when to take and publish measurements")
	flag.IntVar(&port, "port", 8080, "port on which the device's web server should listen")
	flag.BoolVar(&dryrun, "dryrun", false, "set to true to print rather than publish measurements")
	flag.BoolVar(&debug, "debug", false, "log at debug level")
	flag.StringVar(&busName, "bus", "", "name of the I²C bus; empty for the default bus")
	flag.UintVar(&addr, "addr", uint(as5600.DefaultAddress), "I²C address of the sensor")
	flag.IntVar(&samples, "samples", 3, "number of angle readings averaged per measurement")
	flag.StringVar(&sensorName, "sensor", "as5600", "sensor to read: as5600 or dummy")
	flag.StringVar(&influxURL, "influxurl", "", "InfluxDB server URL; empty disables InfluxDB")
	flag.StringVar(&influxToken, "influxtoken", "", "InfluxDB API token")
	flag.StringVar(&influxOrg, "influxorg", "", "InfluxDB organization")
	flag.StringVar(&influxBucket, "influxbucket", "", "InfluxDB bucket")

	// Update directory and file paths by joining them to the user's home directory.
	home, err := homedir.Dir()
	if err != nil {
		log.Fatalf("Failed to get home dir: %v", err)
	}
	dotDir = path.Join(home, dotDir)
	mqttStoreDir = path.Join(home, mqttStoreDir)
	pendingDir = path.Join(home, pendingDir)

	// Make all directories required by the program.
	dirs := []string{dotDir, mqttStoreDir, pendingDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Fatalf("Failed to make dir %s: %v", dir, err)
		}
	}
}

func parseFlags() error {
	flag.Parse()

	if deviceID == "" {
		return fmt.Errorf("device flag must be given")
	}

	if cronSpec == "" {
		return fmt.Errorf("cronspec flag must be given")
	}

	if brokerURL == "" && !dryrun {
		return fmt.Errorf("broker flag must be given unless dryrun is set")
	}

	if addr > 0x7F {
		return fmt.Errorf("addr must be a 7-bit address, got 0x%x", addr)
	}

	if influxURL != "" && (influxOrg == "" || influxBucket == "") {
		return fmt.Errorf("influxorg and influxbucket must be given with influxurl")
	}

	if topic == "" {
		topic = path.Join("devices", deviceID, "events")
	}

	return nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func mqttConnect(logger *zap.Logger, store *pending.Store) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(deviceID).
		SetStore(mqtt.NewFileStore(mqttStoreDir)).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(client mqtt.Client) {
			logger.Info("connected to MQTT broker", zap.String("broker", brokerURL))

			// Anything saved while the connection was down goes out first.
			go func() {
				if err := store.PublishAll(client, topic); err != nil {
					logger.Error("failed to publish pending measurements", zap.Error(err))
				}
			}()
		}).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			logger.Warn("connection to MQTT broker lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)

	// Connect to the MQTT server.
	waitDur := 10 * time.Second
	if token := client.Connect(); !token.WaitTimeout(waitDur) {
		return nil, fmt.Errorf("MQTT connection attempt timed out after %v", waitDur)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT server: %v", token.Error())
	}

	return client, nil
}

func registerSensors(logger *zap.Logger) (func(), error) {
	switch sensorName {
	case "dummy":
		sensor.Register(sensorName, dummy.New(logger, 1))
		return func() {}, nil
	case "as5600":
	default:
		return nil, fmt.Errorf("unknown sensor %q", sensorName)
	}

	// Initialize periph.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %v", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C bus: %v", err)
	}

	dev, err := as5600.NewI2C(bus, &as5600.Opts{Addr: uint16(addr)})
	if err != nil {
		bus.Close()
		return nil, err
	}

	sensor.Register(sensorName, sensoras5600.New(dev, logger, &sensoras5600.Opts{Samples: samples}))
	return func() { bus.Close() }, nil
}

func main() {
	if err := parseFlags(); err != nil {
		fmt.Printf("argument error: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	closeBus, err := registerSensors(logger)
	if err != nil {
		logger.Fatal("failed to set up sensor", zap.Error(err))
	}
	defer closeBus()

	store := pending.New(pendingDir, logger)
	latest := cache.New[measurement.Measurement]()

	job := SenseJob{
		Sensors:  []string{sensorName},
		DeviceID: deviceID,
		Topic:    topic,
		Pending:  store,
		Latest:   latest,
		Dryrun:   dryrun,
		Log:      logger,
		Now:      time.Now,
	}

	var client mqtt.Client
	if !dryrun {
		client, err = mqttConnect(logger, store)
		if err != nil {
			logger.Fatal("failed to connect", zap.Error(err))
		}
		job.Publisher = client
	}

	if influxURL != "" {
		job.DB = db.NewInfluxDB(influxURL, influxToken, influxOrg, influxBucket)
	}

	SetupJob{Sensors: job.Sensors, Log: logger}.Run()

	// If the program is killed, shut down the sensors and disconnect from the MQTT server.
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("cleaning up")
		ShutdownJob{Sensors: job.Sensors, Log: logger}.Run()
		if client != nil {
			client.Disconnect(250)
		}
		time.Sleep(500 * time.Millisecond)
		closeBus()
		logger.Sync()
		os.Exit(1)
	}()

	// Schedule the measurement publication routine.
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	logger.Info("starting cron scheduler", zap.String("spec", cronSpec))
	if _, err := cr.AddJob(cronSpec, job); err != nil {
		logger.Fatal("invalid cron spec", zap.String("spec", cronSpec), zap.Error(err))
	}
	if _, err := cr.AddFunc("@every 10m", latest.Clean); err != nil {
		logger.Fatal("failed to schedule cache cleaning", zap.Error(err))
	}
	cr.Start()

	// Start up a web server that provides basic info about the device.
	http.Handle("/", indexHandler{
		deviceID: deviceID,
		sensors:  job.Sensors,
		latest:   latest,
		pending:  store,
	})
	http.Handle("/latest", latestHandler{
		deviceID: deviceID,
		latest:   latest,
	})
	if err := http.ListenAndServe(fmt.Sprintf(":%v", port), nil); err != nil {
		logger.Fatal("web server failed", zap.Error(err))
	}
}
