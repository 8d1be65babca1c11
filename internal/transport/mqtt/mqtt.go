// Package mqtt carries operator commands over MQTT topics.
//
// Commands are JSON objects published to <topic>/cmd/<sender>. The sender is
// taken from the topic, so the broker ACL decides who may speak for whom.
// Replies are published to <topic>/reply/<chat>; an edit republishes a reply
// with the same id.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/k1sta/wakebot/internal/engine"
)

const DefaultTopic = "wakebot"

const publishTimeout = 5 * time.Second

// Command is the payload published by the operator.
type Command struct {
	Chat string `json:"chat,omitempty"`
	Text string `json:"text"`
}

// Reply is the payload published back to the operator.
type Reply struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Markdown bool   `json:"markdown,omitempty"`
	Edit     bool   `json:"edit,omitempty"`
}

// CommandTopic is where sender publishes its commands.
func CommandTopic(prefix string, sender string) string {
	return prefix + "/cmd/" + sender
}

// CommandFilter matches the command topics of every sender.
func CommandFilter(prefix string) string {
	return prefix + "/cmd/+"
}

func ReplyTopic(prefix string, chat string) string {
	return prefix + "/reply/" + chat
}

type Options struct {
	Broker   string // see LookupBroker
	Topic    string
	Username string
	Password string
}

type Transport struct {
	log    logr.Logger
	id     string
	client paho.Client
	topic  string
	inbox  chan engine.Message
	done   chan struct{}
	once   sync.Once
	seq    atomic.Uint64
}

// New connects to the broker and subscribes to the command topic. The
// subscription is renewed on every reconnection.
func New(ctx context.Context, log logr.Logger, opts Options) (*Transport, error) {
	log = log.WithName("Mqtt")
	brokerURL, err := LookupBroker(ctx, log, opts.Broker)
	if err != nil {
		return nil, err
	}
	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	t := &Transport{
		log:   log,
		id:    fmt.Sprintf("%v%v", path.Base(os.Args[0]), os.Getpid()),
		topic: topic,
		inbox: make(chan engine.Message, 16),
		done:  make(chan struct{}),
	}

	o := paho.NewClientOptions()
	o.AddBroker(brokerURL.String())
	o.SetClientID(t.id)
	o.SetUsername(opts.Username)
	o.SetPassword(opts.Password)
	o.SetAutoReconnect(true)
	o.SetOnConnectHandler(func(c paho.Client) {
		filter := CommandFilter(t.topic)
		t.log.Info("Subscribing", "topic", filter)
		token := c.Subscribe(filter, 1 /*at-least-once*/, func(_ paho.Client, msg paho.Message) {
			t.deliver(msg.Topic(), msg.Payload())
		})
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			t.log.Error(token.Error(), "Failed to subscribe", "topic", filter)
		}
	})
	o.SetConnectionLostHandler(func(_ paho.Client, err error) {
		t.log.Error(err, "Connection lost", "broker", brokerURL.String())
	})
	t.client = paho.NewClient(o)

	log.Info("Connecting to MQTT broker", "url", brokerURL.String(), "client_id", t.id)
	token := t.client.Connect()
	for !token.WaitTimeout(3 * time.Second) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Info("MQTT client trying to connect", "client_id", t.id)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", brokerURL, err)
	}
	log.Info("MQTT client connected", "client_id", t.id)
	return t, nil
}

// deliver queues a command published on topic. Any identity carried in the
// payload is ignored.
func (t *Transport) deliver(topic string, payload []byte) {
	sender, ok := strings.CutPrefix(topic, t.topic+"/cmd/")
	if !ok || sender == "" || strings.Contains(sender, "/") {
		t.log.Info("Dropping command on unexpected topic", "topic", topic)
		return
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		t.log.Info("Dropping malformed command", "payload", string(payload), "error", err.Error())
		return
	}
	m := engine.Message{Sender: sender, Chat: cmd.Chat, Text: cmd.Text}
	select {
	case t.inbox <- m:
	case <-t.done:
	}
}

func (t *Transport) Receive(ctx context.Context) (engine.Message, error) {
	select {
	case <-ctx.Done():
		return engine.Message{}, ctx.Err()
	case <-t.done:
		return engine.Message{}, engine.ErrClosed
	case m := <-t.inbox:
		t.log.V(1).Info("Received message", "sender", m.Sender, "chat", m.Chat)
		return m, nil
	}
}

func (t *Transport) Send(ctx context.Context, chat string, text string, format engine.Format) (string, error) {
	id := strconv.FormatUint(t.seq.Add(1), 10)
	return id, t.publish(chat, Reply{ID: id, Text: text, Markdown: format == engine.FormatMarkdown})
}

func (t *Transport) Edit(ctx context.Context, chat string, msgID string, text string, format engine.Format) error {
	return t.publish(chat, Reply{ID: msgID, Text: text, Markdown: format == engine.FormatMarkdown, Edit: true})
}

func (t *Transport) publish(chat string, r Reply) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := ReplyTopic(t.topic, chat)
	t.log.V(1).Info("Publishing", "topic", topic, "id", r.ID)
	token := t.client.Publish(topic, 1 /*qos:at-least-once*/, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (t *Transport) Close() {
	t.once.Do(func() {
		close(t.done)
		if t.client.IsConnected() {
			t.client.Unsubscribe(CommandFilter(t.topic)).WaitTimeout(time.Second)
			t.client.Disconnect(250 /* milliseconds */)
		}
	})
}
