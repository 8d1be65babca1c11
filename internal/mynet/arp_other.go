//go:build !linux

package mynet

import (
	"bytes"
	"context"
	"os/exec"
)

func readArpTable(ctx context.Context) ([]ArpEntry, error) {
	out, err := exec.CommandContext(ctx, "arp", "-an").Output()
	if err != nil {
		return nil, err
	}
	return parseArpAn(bytes.NewReader(out))
}
