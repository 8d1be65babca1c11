//go:build linux

package mynet

import (
	"context"
	"os"
)

const procNetArp = "/proc/net/arp"

func readArpTable(ctx context.Context) ([]ArpEntry, error) {
	f, err := os.Open(procNetArp)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseProcNetArp(f)
}
