package mqttclient

import (
	"fmt"
	"time"

	"GbfEventSync/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client paho客户端薄封装：QoS1+retain发布，发布等待有界超时
type Client struct {
	inner          mqtt.Client
	connectTimeout time.Duration
	publishTimeout time.Duration
	logger         *logrus.Logger
}

// New 构建MQTT客户端（不连接）。客户端ID加uuid后缀，避免多实例互踢
func New(cfg *config.MQTTConfig, logger *logrus.Logger) *Client {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "gbf-event-notifier"
	}
	clientID = fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(mqtt.Client) {
		logger.WithField("broker", cfg.Broker).Info("MQTT连接成功")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT连接断开，等待自动重连")
	}

	return &Client{
		inner:          mqtt.NewClient(opts),
		connectTimeout: cfg.ConnectTimeout,
		publishTimeout: cfg.PublishTimeout,
		logger:         logger,
	}
}

// Connect 连接broker，等待不超过连接超时
func (c *Client) Connect() error {
	token := c.inner.Connect()
	if !token.WaitTimeout(c.connectTimeout) {
		return fmt.Errorf("MQTT连接等待超时")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}
	return nil
}

// Publish 发布retained消息（QoS1），broker会向新订阅者补发每个主题的最后一条
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.inner.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("MQTT发布等待超时, topic: %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT发布失败: %w, topic: %s", err, topic)
	}
	return nil
}

// IsConnected 连接是否可用
func (c *Client) IsConnected() bool {
	return c.inner.IsConnected()
}

// Disconnect 优雅断开
func (c *Client) Disconnect() {
	c.inner.Disconnect(250)
}
