package announce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

const (
	// DefaultTopicPrefix is the root of every published topic
	DefaultTopicPrefix = "wemo"

	// DefaultDiscoveryPrefix is Home Assistant's discovery root
	DefaultDiscoveryPrefix = "homeassistant"

	// DefaultConnectTimeout bounds the initial broker connection
	DefaultConnectTimeout = 10 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"

	disconnectQuiesceMs = 250
)

// Config holds the MQTT publisher settings
type Config struct {
	Broker          string // e.g. tcp://localhost:1883
	ClientID        string // Generated as wemo-watch-<uuid> when empty
	Username        string
	Password        string
	TopicPrefix     string
	QoS             byte
	ConnectTimeout  time.Duration
	HomeAssistant   bool   // Also publish Home Assistant discovery configs
	DiscoveryPrefix string // Home Assistant discovery root
}

// Announcement is the retained payload published for each device
type Announcement struct {
	Kind         wemo.Kind `json:"kind"`
	MAC          string    `json:"mac"`
	UDN          string    `json:"udn"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	Location     string    `json:"location"`
	Host         string    `json:"host"`
	LastSeen     time.Time `json:"last_seen"`
}

// NewAnnouncement builds the payload for d
func NewAnnouncement(d *wemo.Device) Announcement {
	return Announcement{
		Kind:         d.Kind,
		MAC:          d.MAC,
		UDN:          d.UDN,
		FriendlyName: d.FriendlyName,
		Location:     d.Location,
		Host:         d.Host(),
		LastSeen:     d.DiscoveredAt,
	}
}

// haDevice and haConfig follow Home Assistant's MQTT discovery schema
type haDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

type haConfig struct {
	Name              string   `json:"name"`
	ID                string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template"`
	AvailabilityTopic string   `json:"availability_topic"`
	Device            haDevice `json:"device"`
}

// MQTTPublisher publishes device announcements through a paho client
type MQTTPublisher struct {
	client mqtt.Client
	config Config
}

// NewMQTTPublisher builds a publisher and its paho client. Call Connect
// before Publish.
func NewMQTTPublisher(cfg Config) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	cfg = withDefaults(cfg)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetWill(statusTopic(cfg), statusOffline, cfg.QoS, true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logging.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	return newMQTTPublisher(mqtt.NewClient(opts), cfg), nil
}

func newMQTTPublisher(client mqtt.Client, cfg Config) *MQTTPublisher {
	return &MQTTPublisher{client: client, config: withDefaults(cfg)}
}

func withDefaults(cfg Config) Config {
	if cfg.ClientID == "" {
		cfg.ClientID = "wemo-watch-" + uuid.NewString()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return cfg
}

func statusTopic(cfg Config) string {
	return cfg.TopicPrefix + "/status"
}

// ErrInvalidMAC is returned for a device whose MAC cannot form a topic level
var ErrInvalidMAC = errors.New("invalid MAC address")

// topicMAC normalises a device-reported MAC to 12 upper-case hex digits.
// Colon and dash separators are dropped; anything else, including the MQTT
// wildcards and level separator, is rejected.
func topicMAC(mac string) (string, error) {
	norm := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(mac))
	if len(norm) != 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	for _, r := range norm {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
		}
	}
	return norm, nil
}

// DeviceTopic returns the retained topic for a device
func (p *MQTTPublisher) DeviceTopic(d *wemo.Device) (string, error) {
	mac, err := topicMAC(d.MAC)
	if err != nil {
		return "", err
	}
	return p.deviceTopic(mac), nil
}

func (p *MQTTPublisher) deviceTopic(mac string) string {
	return p.config.TopicPrefix + "/" + mac
}

// ClientID returns the MQTT client identifier in use
func (p *MQTTPublisher) ClientID() string {
	return p.config.ClientID
}

// Connect connects to the broker and marks the publisher online
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	if err := p.wait(ctx, p.client.Connect()); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.config.Broker, err)
	}
	logging.Info("Connected to MQTT broker",
		zap.String("broker", p.config.Broker),
		zap.String("client_id", p.config.ClientID),
	)
	return p.publish(ctx, statusTopic(p.config), []byte(statusOnline))
}

// Publish sends one retained announcement per device. Devices without a
// MAC address have no stable topic and are skipped; a MAC that is not 12 hex
// digits is reported in the returned error.
func (p *MQTTPublisher) Publish(ctx context.Context, devices []*wemo.Device) error {
	var errs []error
	for _, d := range devices {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if d == nil || d.MAC == "" {
			continue
		}

		mac, err := topicMAC(d.MAC)
		if err != nil {
			errs = append(errs, fmt.Errorf("skip %s: %w", d.Location, err))
			continue
		}
		topic := p.deviceTopic(mac)

		payload, err := json.Marshal(NewAnnouncement(d))
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", d.MAC, err))
			continue
		}
		if err := p.publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
			continue
		}

		if p.config.HomeAssistant {
			if err := p.publishHomeAssistant(ctx, d, mac); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// publishHomeAssistant announces d as a sensor whose state is its retained
// device topic. mac is the normalised form from topicMAC.
func (p *MQTTPublisher) publishHomeAssistant(ctx context.Context, d *wemo.Device, mac string) error {
	id := "wemo_" + strings.ToLower(mac)
	stateTopic := p.deviceTopic(mac)
	name := d.FriendlyName
	if name == "" {
		name = "WeMo " + d.Kind.String()
	}

	payload, err := json.Marshal(haConfig{
		Name:              name + " address",
		ID:                id + "_host",
		StateTopic:        stateTopic,
		ValueTemplate:     "{{ value_json.host }}",
		AvailabilityTopic: statusTopic(p.config),
		Device: haDevice{
			Name:         name,
			Identifiers:  []string{id, d.UDN},
			Model:        d.Kind.String(),
			Manufacturer: wemo.Manufacturer,
		},
	})
	if err != nil {
		return fmt.Errorf("encode discovery config for %s: %w", d.MAC, err)
	}

	topic := fmt.Sprintf("%s/sensor/%s/config", p.config.DiscoveryPrefix, id)
	return p.publish(ctx, topic, payload)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.wait(ctx, p.client.Publish(topic, p.config.QoS, true, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logging.LogPublish(topic, len(payload), true)
	return nil
}

// wait blocks until the token completes, ctx ends, or the connect timeout passes
func (p *MQTTPublisher) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(p.config.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", p.config.ConnectTimeout)
	}
}

// Close marks the publisher offline and disconnects
func (p *MQTTPublisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.publish(ctx, statusTopic(p.config), []byte(statusOffline)); err != nil {
		logging.Warn("Failed to publish offline status", zap.Error(err))
	}
	p.client.Disconnect(disconnectQuiesceMs)
}
