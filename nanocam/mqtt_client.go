/*
 * Copyright (c) 2021 IBM Corp and others.
 *
 * All rights reserved. This program and the accompanying materials
 * are made available under the terms of the Eclipse Public License v2.0
 * and Eclipse Distribution License v1.0 which accompany this distribution.
 *
 * The Eclipse Public License is available at
 *    https://www.eclipse.org/legal/epl-2.0/
 * and the Eclipse Distribution License is available at
 *   http://www.eclipse.org/org/documents/edl-v10.php.
 *
 * Contributors:
 *    Seth Hoenig
 *    Allan Stockdill-Mander
 *    Mike Robertson
 */

package nanocam

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

const publishTimeout = 5 * time.Second

type MQTTConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Broker        string        `yaml:"broker"`
	ClientID      string        `yaml:"client_id"`
	TopicPrefix   string        `yaml:"topic_prefix"`
	QoS           byte          `yaml:"qos"`
	KeepAlive     time.Duration `yaml:"keep_alive"`
	PingTimeout   time.Duration `yaml:"ping_timeout"`
	StateInterval time.Duration `yaml:"state_interval"`
}

func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:        "tcp://localhost:1883",
		ClientID:      "nanocam",
		TopicPrefix:   "nanocam",
		QoS:           2,
		KeepAlive:     2 * time.Second,
		PingTimeout:   1 * time.Second,
		StateInterval: 1 * time.Second,
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("broker is required"))
	}
	if c.TopicPrefix == "" {
		errs = append(errs, errors.New("topic_prefix is required"))
	}
	if c.QoS > 2 {
		errs = append(errs, fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS))
	}
	if c.StateInterval <= 0 {
		errs = append(errs, fmt.Errorf("state_interval must be positive, got %s", c.StateInterval))
	}
	return errors.Join(errs...)
}

type Topics struct {
	State    string
	Image    string
	Snapshot string
	Trigger  string
}

func NewTopics(prefix string) Topics {
	return Topics{
		State:    prefix + "/state",
		Image:    prefix + "/images/raw",
		Snapshot: prefix + "/images/meta",
		Trigger:  prefix + "/cmd/snapshot",
	}
}

// Publisher is the part of mqtt.Client used to publish messages.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var defaultPublishHandler mqtt.MessageHandler = func(client mqtt.Client, msg mqtt.Message) {
	DEBUGLogger.Printf("TOPIC: %s MSG: %s", msg.Topic(), msg.Payload())
}

func NewMQTTClient(cfg MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()))
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetDefaultPublishHandler(defaultPublishHandler)
	opts.SetPingTimeout(cfg.PingTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		WARNINGLogger.Printf("MQTT connection lost: %v", err)
	})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, token.Error())
	}
	INFOLogger.Printf("Connected to MQTT broker %s", cfg.Broker)
	return c, nil
}

// Subscriber is the part of mqtt.Client used to subscribe to commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// SetupMQTTSubscriptionCallbacks forwards every message on the snapshot
// trigger topic to triggerChan.
func SetupMQTTSubscriptionCallbacks(client Subscriber, topics Topics, triggerChan chan<- bool) error {
	if token := client.Subscribe(topics.Trigger, 1, snapshotHandler(triggerChan)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", topics.Trigger, token.Error())
	}
	return nil
}

// snapshotHandler drops triggers while one is already pending.
func snapshotHandler(triggerChan chan<- bool) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		DEBUGLogger.Printf("Snapshot trigger on %s", msg.Topic())
		select {
		case triggerChan <- true:
		default:
		}
	}
}

func publish(pub Publisher, topic string, qos byte, payload []byte) error {
	token := pub.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	return token.Error()
}

// PublishImage publishes mat as a base64 encoded JPEG.
func PublishImage(pub Publisher, topic string, qos byte, mat gocv.Mat) error {
	imgBuf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return err
	}
	defer imgBuf.Close()
	imgBytes := imgBuf.GetBytes()
	b64bytes := make([]byte, base64.StdEncoding.EncodedLen(len(imgBytes)))
	base64.StdEncoding.Encode(b64bytes, imgBytes)
	return publish(pub, topic, qos, b64bytes)
}

func publishJsonMsg(pub Publisher, topic string, qos byte, obj interface{}) error {
	msg, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return publish(pub, topic, qos, msg)
}

// StateSource is the camera state reported over MQTT.
type StateSource interface {
	State() CameraState
	IsReady() bool
	HasError() ([]ErrorCode, bool)
	Config() Config
	Pipeline() string
}

func NewCameraStateMessage(cam StateSource, now time.Time) CameraStateMessage {
	history, _ := cam.HasError()
	state := cam.State()
	return CameraStateMessage{
		State:     state,
		StateName: state.String(),
		Ready:     cam.IsReady(),
		Errors:    history,
		Type:      cam.Config().Type,
		Pipeline:  cam.Pipeline(),
		Timestamp: now.UnixMilli(),
	}
}

func PublishState(pub Publisher, topic string, qos byte, cam StateSource) error {
	return publishJsonMsg(pub, topic, qos, NewCameraStateMessage(cam, time.Now()))
}
