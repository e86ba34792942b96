// Package mqtt connects the lock to a broker: it publishes status and
// delivers commands addressed to this node.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT connection settings.
type Config struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	Username    string `yaml:"username" env:"USERNAME"`
	Password    string `yaml:"password" env:"PASSWORD"`
	CACert      string `yaml:"ca_cert"`
	ClientCert  string `yaml:"client_cert"`
	ClientKey   string `yaml:"client_key"`
	TopicPrefix string `yaml:"topic_prefix"` // default "golock"
}

// Handlers holds callback functions for MQTT events.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
}

// MessageHandler receives the payload of a message on a subscribed topic.
type MessageHandler func(payload []byte)

// Client wraps the MQTT client with application-specific functionality.
type Client struct {
	client   paho.Client
	clientID string
	prefix   string
	enabled  bool
	handlers Handlers

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// New creates a new MQTT client. Returns a disabled no-op client if host is empty.
func New(cfg Config, clientID string, handlers Handlers) (*Client, error) {
	c := &Client{
		clientID: clientID,
		prefix:   cfg.TopicPrefix,
		handlers: handlers,
		subs:     make(map[string]MessageHandler),
	}
	if c.prefix == "" {
		c.prefix = "golock"
	}

	// If no host configured, return disabled client
	if cfg.Host == "" {
		log.Println("MQTT disabled (no host configured)")
		return c, nil
	}
	c.enabled = true

	var broker string
	var tlsConfig *tls.Config
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)

		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
		log.Println("MQTT using non-TLS connection")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60*time.Second).
		SetWill(c.StatusTopic("online"), "false", 1, true).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)

	paho.ERROR = log.New(os.Stdout, "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(os.Stdout, "[MQTT CRIT] ", 0)
	paho.WARN = log.New(os.Stdout, "[MQTT WARN] ", 0)

	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// StatusTopic returns the topic this node publishes name on.
func (c *Client) StatusTopic(name string) string {
	return fmt.Sprintf("%s/status/node/%s/%s", c.prefix, c.clientID, name)
}

// ControlTopic returns the topic this node receives name commands on.
func (c *Client) ControlTopic(name string) string {
	return fmt.Sprintf("%s/control/node/%s/%s", c.prefix, c.clientID, name)
}

// Connect connects to the MQTT broker. If disabled, calls OnConnect immediately.
func (c *Client) Connect() error {
	if !c.enabled {
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}
		return nil
	}

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	log.Println("MQTT connected")
	return nil
}

// Disconnect marks the node offline and disconnects. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	if c.client.IsConnected() {
		c.client.Publish(c.StatusTopic("online"), 1, true, "false").WaitTimeout(time.Second)
	}
	c.client.Disconnect(250)
}

// Subscribe registers h for topic. Subscriptions are renewed on every
// reconnect; with the client disabled they are only recorded.
func (c *Client) Subscribe(topic string, h MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()

	if !c.enabled || !c.client.IsConnected() {
		return nil
	}
	return c.subscribe(topic)
}

func (c *Client) subscribe(topic string) error {
	if token := c.client.Subscribe(topic, 1, c.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish publishes a message to a topic. No-op if disabled.
func (c *Client) Publish(topic string, payload string) {
	if !c.enabled {
		return
	}
	c.client.Publish(topic, 0, false, payload)
}

// PublishJSON publishes v as JSON. Retained messages are kept by the broker
// for later subscribers.
func (c *Client) PublishJSON(topic string, v interface{}, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	if !c.enabled {
		return nil
	}
	c.client.Publish(topic, 1, retained, payload)
	return nil
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

func (c *Client) handleConnect(client paho.Client) {
	log.Println("MQTT connection established")
	client.Publish(c.StatusTopic("online"), 1, true, "true")

	c.mu.Lock()
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()
	for _, topic := range topics {
		if err := c.subscribe(topic); err != nil {
			log.Printf("MQTT %v", err)
		}
	}

	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
}

func (c *Client) handleConnectionLost(client paho.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect()
	}
}

func (c *Client) handleMessage(client paho.Client, msg paho.Message) {
	c.dispatch(msg.Topic(), msg.Payload())
}

func (c *Client) dispatch(topic string, payload []byte) {
	c.mu.Lock()
	h := c.subs[topic]
	c.mu.Unlock()
	if h == nil {
		log.Printf("MQTT message on unexpected topic %s", topic)
		return
	}
	h(payload)
}
