package infra

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttPublishTimeout    = 5 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
)

// MQTTOptions configures the job event publisher.
type MQTTOptions struct {
	Broker   string // tcp://host:1883
	ClientID string
	Topic    string // events go to <Topic>/<serial>/<kind>
	QoS      byte
}

// Publisher sends one message. pahoPublisher is the production implementation.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Close()
}

type pahoPublisher struct {
	client pahomqtt.Client
}

// ConnectMQTT connects to the broker and returns a publisher.
func ConnectMQTT(opts MQTTOptions) (Publisher, error) {
	po := pahomqtt.NewClientOptions()
	po.AddBroker(opts.Broker)
	po.SetClientID(opts.ClientID)
	po.SetCleanSession(true)
	po.SetAutoReconnect(true)
	po.SetConnectTimeout(mqttConnectTimeout)

	client := pahomqtt.NewClient(po)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout after %v", opts.Broker, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.Broker, err)
	}
	return &pahoPublisher{client: client}, nil
}

func (p *pahoPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish to %s: timeout", topic)
	}
	return token.Error()
}

func (p *pahoPublisher) Close() {
	p.client.Disconnect(mqttDisconnectQuiesce)
}

// JobEventMessage is the JSON payload published for each job event.
type JobEventMessage struct {
	Serial    string    `json:"serial"`
	Event     string    `json:"event"`
	Current   int       `json:"current,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTSink implements domain.ProgressSink by publishing job events.
// Publish failures are logged and never affect the job.
type MQTTSink struct {
	publisher Publisher
	topic     string
	qos       byte
	serial    string
	logger    *zap.Logger

	mu    sync.Mutex
	total int
	now   func() time.Time
}

// NewMQTTSink creates a sink for jobs on the device with the given serial.
func NewMQTTSink(publisher Publisher, opts MQTTOptions, serial string, logger *zap.Logger) *MQTTSink {
	return &MQTTSink{
		publisher: publisher,
		topic:     opts.Topic,
		qos:       opts.QoS,
		serial:    serial,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *MQTTSink) OnProgress(current, total int) {
	s.mu.Lock()
	s.total = total
	s.mu.Unlock()
	s.publish(JobEventMessage{Event: "progress", Current: current, Total: total})
}

func (s *MQTTSink) OnFinished() {
	s.publish(JobEventMessage{Event: string(domain.OutcomeFinished), Total: s.lastTotal()})
}

func (s *MQTTSink) OnFailed(err error) {
	s.publish(JobEventMessage{Event: string(domain.OutcomeFailed), Error: err.Error()})
}

func (s *MQTTSink) OnCancelled() {
	s.publish(JobEventMessage{Event: string(domain.OutcomeCancelled)})
}

func (s *MQTTSink) lastTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Topic returns the topic an event of kind is published on.
func (s *MQTTSink) Topic(kind string) string {
	return fmt.Sprintf("%s/%s/%s", s.topic, s.serial, kind)
}

func (s *MQTTSink) publish(msg JobEventMessage) {
	msg.Serial = s.serial
	msg.Timestamp = s.now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("failed to encode job event", zap.Error(err))
		return
	}
	// Terminal events are retained so late subscribers see how the last job ended.
	retained := msg.Event != "progress"
	if err := s.publisher.Publish(s.Topic(msg.Event), s.qos, retained, payload); err != nil {
		s.logger.Warn("failed to publish job event",
			zap.String("event", msg.Event),
			zap.Error(err))
	}
}

// Ensure MQTTSink implements domain.ProgressSink.
var _ domain.ProgressSink = (*MQTTSink)(nil)
