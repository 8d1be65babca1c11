package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/k1sta/wakebot/internal/hosts"
	"github.com/k1sta/wakebot/pkg/addr"
)

// add registers a host: /add <name> <ip> [mac]
func (e *Engine) add(ctx context.Context, args []string) (string, bool) {
	if len(args) < 2 || len(args) > 3 {
		return msgAddUsage, false
	}
	name, ip := args[0], args[1]
	if !validName(name) {
		return msgInvalidName, false
	}

	var mac string
	if len(args) == 3 {
		mac = addr.CanonicalMAC(args[2])
	} else {
		var found bool
		mac, found = e.caps.Resolver.ResolveMAC(ctx, ip)
		if !found {
			return msgMACNotFound, false
		}
	}

	if !addr.ValidIPv4(ip) {
		return msgInvalidIP, false
	}
	if !addr.ValidMAC(mac) {
		return msgInvalidMAC, false
	}
	mac = addr.CanonicalMAC(mac)

	switch e.registry.FindConflict(name, ip, mac) {
	case hosts.NameConflict:
		return msgNameExists, false
	case hosts.IPConflict:
		return msgIPExists, false
	case hosts.MACConflict:
		return msgMACExists, false
	}

	h := hosts.Host{Name: name, IP: ip, MAC: mac}
	if !e.registry.Add(h) {
		return msgListFull, false
	}
	warning, saved := e.persist(ctx)
	return fmt.Sprintf(msgAdded, h.Name, h.IP, h.MAC) + warning, saved
}

// validName accepts any name a chat message can carry as one token.
func validName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, unicode.IsSpace)
}

// remove deletes a host by case-insensitive name: /remove <name>
func (e *Engine) remove(ctx context.Context, args []string) (string, bool) {
	if len(args) != 1 {
		return msgRemoveUsage, false
	}
	h, ok := e.registry.Remove(args[0])
	if !ok {
		return msgNotFound, false
	}
	warning, saved := e.persist(ctx)
	return fmt.Sprintf(msgRemoved, h.Name) + warning, saved
}

// wake sends a magic packet to a registered host: /wake <name>
func (e *Engine) wake(ctx context.Context, args []string) (string, bool) {
	if len(args) != 1 {
		return msgWakeUsage, false
	}
	h, ok := e.registry.FindByName(args[0])
	if !ok {
		return msgNotFound, false
	}
	if err := e.caps.Waker.Wake(ctx, h.MAC); err != nil {
		e.log.Error(err, "Failed to send magic packet", "host", h.Name, "mac", h.MAC)
		return fmt.Sprintf(msgWoLFailed, h.Name, err), false
	}
	return fmt.Sprintf(msgWoLSent, h.Name), true
}

// list probes every host in order and reports their status in one message.
// When the transport can edit messages, a placeholder is sent first and then
// replaced by the report.
func (e *Engine) list(ctx context.Context, chat string) error {
	all := e.registry.List()
	if len(all) == 0 {
		return e.reply(ctx, chat, msgNoHosts)
	}

	editor, canEdit := e.transport.(Editor)
	var placeholder string
	if canEdit {
		id, err := e.transport.Send(ctx, chat, msgChecking, FormatPlain)
		if err != nil {
			e.log.Error(err, "Failed to send placeholder")
		} else {
			placeholder = id
		}
	}

	var sb strings.Builder
	sb.WriteString(msgListHeader)
	for _, h := range all {
		status := msgDown
		if e.caps.Prober.Probe(ctx, h.IP, e.cfg.ProbeCount) {
			status = msgUp
		}
		fmt.Fprintf(&sb, msgListLine, h.Name, h.IP, status)
	}
	report := sb.String()

	if placeholder != "" {
		err := editor.Edit(ctx, chat, placeholder, report, FormatMarkdown)
		if err == nil {
			return nil
		}
		e.log.Info("Failed to edit placeholder, sending a new message", "error", err.Error())
	}
	_, err := e.transport.Send(ctx, chat, report, FormatMarkdown)
	return err
}

// persist saves the registry and returns a warning suffix for the reply when
// the write failed. The in-memory change is kept either way.
func (e *Engine) persist(ctx context.Context) (string, bool) {
	if e.caps.Store == nil {
		return "", true
	}
	if err := e.caps.Store.Save(ctx, e.registry.List()); err != nil {
		e.log.Error(err, "Failed to save hosts", "count", e.registry.Len())
		return fmt.Sprintf(msgSaveWarning, err), false
	}
	return "", true
}
