// Package ctl administers the host list from the command line, without a
// running agent.
package ctl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"

	"github.com/k1sta/wakebot/internal/engine"
	"github.com/k1sta/wakebot/internal/hosts"
	"github.com/k1sta/wakebot/internal/mynet"
	"github.com/k1sta/wakebot/internal/probe"
	"github.com/k1sta/wakebot/internal/storage"
	"github.com/k1sta/wakebot/internal/wol"
	"github.com/k1sta/wakebot/wakebot/options"
)

const cliOperator = "cli"

// console answers commands on a terminal.
type console struct {
	out io.Writer
}

func (c console) Receive(ctx context.Context) (engine.Message, error) {
	return engine.Message{}, engine.ErrClosed
}

func (c console) Send(ctx context.Context, chat string, text string, format engine.Format) (string, error) {
	_, err := fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))
	return "", err
}

type session struct {
	log      logr.Logger
	out      io.Writer
	cfg      *options.Config
	blob     storage.Blob
	registry *hosts.Registry
	engine   *engine.Engine
}

func open(ctx context.Context, cfg *options.Config, out io.Writer) (*session, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("ctl")

	blob, err := storage.Open(log, cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	store := hosts.NewStore(log, blob, hosts.DefaultPath)
	registry := hosts.NewRegistry(log, hosts.MaxHosts)
	loaded, err := store.Load(ctx)
	if err != nil {
		blob.Close()
		return nil, fmt.Errorf("failed to read host list: %w", err)
	}
	registry.Reset(loaded)

	e := engine.New(log, engine.Config{
		Operator:   cliOperator,
		ProbeCount: cfg.Probe.Count,
	}, console{out: out}, registry, engine.Capabilities{
		Store:    store,
		Resolver: mynet.NewArpCache(log),
		Prober:   probe.NewPinger(log, cfg.Probe.Timeout),
		Waker:    newWaker(log, cfg),
	})
	return &session{
		log:      log,
		out:      out,
		cfg:      cfg,
		blob:     blob,
		registry: registry,
		engine:   e,
	}, nil
}

// run executes cmd with args as given on the command line. The reply is
// printed; a refusal is returned as engine.ErrRejected so the exit status
// reflects it.
func (s *session) run(ctx context.Context, cmd engine.Command, args ...string) error {
	return s.engine.Exec(ctx, cliOperator, cmd, args)
}

func (s *session) Close() error {
	return s.blob.Close()
}

func newWaker(log logr.Logger, cfg *options.Config) *wol.Sender {
	broadcast := cfg.Wol.Broadcast
	if broadcast == "" {
		broadcast = mynet.LocalBroadcast(log).String()
	}
	return wol.NewSender(log, broadcast, cfg.Wol.Port)
}
