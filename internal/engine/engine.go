// Package engine turns operator chat messages into host registry operations.
package engine

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/k1sta/wakebot/internal/hosts"
)

// ErrClosed is returned by Transport.Receive once no more messages will come.
var ErrClosed = errors.New("transport closed")

// ErrRejected is returned by Exec when the command was answered with a refusal
// or its change could not be saved.
var ErrRejected = errors.New("command rejected")

type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
)

// Message is one inbound operator message.
type Message struct {
	Sender string // identity of the author
	Chat   string // where to reply; the sender when empty
	Text   string
}

// Transport is the chat channel to the operator.
type Transport interface {
	// Receive blocks until the next message arrives.
	Receive(ctx context.Context) (Message, error)
	// Send delivers text and returns the id of the created message.
	Send(ctx context.Context, chat string, text string, format Format) (string, error)
}

// Editor is implemented by transports that can rewrite a sent message.
type Editor interface {
	Edit(ctx context.Context, chat string, id string, text string, format Format) error
}

// Resolver finds the MAC address of a LAN IPv4 address without probing.
type Resolver interface {
	ResolveMAC(ctx context.Context, ip string) (string, bool)
}

// Prober checks host reachability.
type Prober interface {
	Probe(ctx context.Context, ip string, count int) bool
}

// Waker sends a magic packet.
type Waker interface {
	Wake(ctx context.Context, mac string) error
}

// Persister durably stores the complete host list.
type Persister interface {
	Save(ctx context.Context, hosts []hosts.Host) error
}

type Config struct {
	// Operator is the only sender whose messages are served.
	Operator string
	// ProbeCount is the number of echo requests per host on /list.
	ProbeCount int
}

type Capabilities struct {
	Store    Persister
	Resolver Resolver
	Prober   Prober
	Waker    Waker
}

type Engine struct {
	log       logr.Logger
	cfg       Config
	transport Transport
	registry  *hosts.Registry
	caps      Capabilities
}

func New(log logr.Logger, cfg Config, transport Transport, registry *hosts.Registry, caps Capabilities) *Engine {
	if cfg.ProbeCount <= 0 {
		cfg.ProbeCount = 1
	}
	return &Engine{
		log:       log.WithName("Engine"),
		cfg:       cfg,
		transport: transport,
		registry:  registry,
		caps:      caps,
	}
}

// Run serves messages one at a time until ctx is done or the transport is
// closed.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Serving operator commands", "hosts", e.registry.Len())
	for {
		msg, err := e.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrClosed) {
				e.log.Info("Transport closed")
				return nil
			}
			e.log.Error(err, "Failed to receive message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if err := e.Handle(ctx, msg); err != nil {
			e.log.Error(err, "Failed to handle message", "text", msg.Text)
		}
	}
}

func (e *Engine) authorized(sender string) bool {
	if e.cfg.Operator == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sender), []byte(e.cfg.Operator)) == 1
}

// Handle serves one message to completion. Only transport failures are
// returned; operator mistakes are answered in the chat.
func (e *Engine) Handle(ctx context.Context, msg Message) error {
	if !e.authorized(msg.Sender) {
		e.log.V(1).Info("Ignoring message from unauthorized sender", "sender", msg.Sender)
		return nil
	}
	chat := msg.Chat
	if chat == "" {
		chat = msg.Sender
	}
	cmd, args := Parse(msg.Text)
	_, err := e.dispatch(ctx, chat, cmd, args)
	return err
}

// Exec serves an already tokenized command for a local caller, replying to
// chat. Arguments are used as given, so they may contain spaces.
func (e *Engine) Exec(ctx context.Context, chat string, cmd Command, args []string) error {
	ok, err := e.dispatch(ctx, chat, cmd, args)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}

// dispatch runs cmd and sends its reply. It reports whether the command took
// full effect.
func (e *Engine) dispatch(ctx context.Context, chat string, cmd Command, args []string) (bool, error) {
	if !cmd.Known() {
		e.log.V(1).Info("Unknown command", "command", string(cmd))
		return false, e.reply(ctx, chat, msgUnknown)
	}
	log := e.log.WithValues("command", string(cmd), "args", args)
	log.Info("Handling command")

	var text string
	ok := true
	switch cmd {
	case CmdStart:
		text = msgHelp
	case CmdAdd:
		text, ok = e.add(ctx, args)
	case CmdRemove:
		text, ok = e.remove(ctx, args)
	case CmdWake:
		text, ok = e.wake(ctx, args)
	case CmdList:
		return true, e.list(ctx, chat)
	}
	return ok, e.reply(ctx, chat, text)
}

func (e *Engine) reply(ctx context.Context, chat string, text string) error {
	_, err := e.transport.Send(ctx, chat, text, FormatPlain)
	return err
}
