package connectivity

import (
	"fmt"
	"time"

	"mqtt-relay-controller/pkg/config"
	"mqtt-relay-controller/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler receives inbound messages from a subscription
type MessageHandler func(topic string, payload []byte)

// BrokerSession is one connection to the message broker. Narrowed from the
// underlying client so the manager can be exercised against a fake in tests.
type BrokerSession interface {
	Connect() error
	Disconnect()
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	IsConnected() bool
}

// SessionFactory builds a broker session for one connect attempt. The client
// identifier is re-derived by the caller on every attempt.
type SessionFactory func(clientID string, onLost func(error)) BrokerSession

// pahoSession wraps the paho client behind BrokerSession
type pahoSession struct {
	client paho.Client
}

// NewPahoSessionFactory returns a factory producing paho-backed sessions for
// the configured broker. The last-will marks the device offline on the
// availability topic when the session drops uncleanly.
func NewPahoSessionFactory(cfg *config.MQTTConfig, availabilityTopic string) SessionFactory {
	return func(clientID string, onLost func(error)) BrokerSession {
		opts := paho.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
		opts.SetClientID(clientID)
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)

		// The manager owns reconnect policy; the client must not race it
		opts.SetAutoReconnect(false)
		opts.SetKeepAlive(time.Duration(cfg.KeepAlive) * time.Second)
		opts.SetPingTimeout(10 * time.Second)

		if availabilityTopic != "" {
			opts.SetWill(availabilityTopic, "offline", 1, true)
		}

		opts.SetConnectionLostHandler(func(client paho.Client, err error) {
			logger.LogError("Broker session lost: %v", err)
			if onLost != nil {
				onLost(err)
			}
		})

		return &pahoSession{client: paho.NewClient(opts)}
	}
}

// Connect establishes the session
func (s *pahoSession) Connect() error {
	token := s.client.Connect()
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Disconnect closes the session, allowing in-flight messages to complete
func (s *pahoSession) Disconnect() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// Publish sends one message and waits for completion
func (s *pahoSession) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := s.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Subscribe registers a handler for a topic
func (s *pahoSession) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := s.client.Subscribe(topic, qos, func(client paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// IsConnected reports whether the session is established
func (s *pahoSession) IsConnected() bool {
	return s.client.IsConnected()
}
