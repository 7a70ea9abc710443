package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fleetops/shiftd/core/model"
	"github.com/fleetops/shiftd/core/telemetry"
	"github.com/fleetops/shiftd/infra/mqtt"
	"github.com/fleetops/shiftd/internal/eventbus"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Skipf("mosquitto not ready at %s: %v", broker, err)
	}
	return cont, broker
}

func TestRouterClassifiesOverRealBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	client, err := mqtt.NewClient(mqtt.Config{Broker: broker, ClientID: "shiftd-e2e", QoS: 1})
	if err != nil {
		t.Fatalf("mqtt client: %v", err)
	}
	defer client.Disconnect()

	bus := eventbus.New[model.TelemetryEvent]()
	sub := bus.Subscribe()
	cfg := telemetry.Config{}
	cfg.SetDefaults()
	router := telemetry.NewRouter(client, cfg, bus, nil, nil)
	router.Start()

	pubOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("device-sim")
	pub := paho.NewClient(pubOpts)
	if token := pub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	defer pub.Disconnect(100)

	topic := "flespi/state/gw/devices/42/telemetry/position"
	payload := []byte(`{"lat":48.85,"lon":2.35}`)

	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev := <-sub:
			if ev.Kind != model.KindLiveLocation {
				t.Fatalf("unexpected kind %s", ev.Kind)
			}
			if ev.DeviceID != "42" {
				t.Fatalf("unexpected device %s", ev.DeviceID)
			}
			if ev.Payload["lat"] != 48.85 {
				t.Fatalf("unexpected payload %v", ev.Payload)
			}
			return
		case <-ticker.C:
			if token := pub.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
				t.Fatalf("publish: %v", token.Error())
			}
		case <-deadline:
			t.Fatal("no classified event received")
		}
	}
}
