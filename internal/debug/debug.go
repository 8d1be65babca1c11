package debug

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// IsDebuggerAttached returns true if the program is running under a debugger
func IsDebuggerAttached() bool {
	if os.Getenv("VSCODE_DEBUG_MODE") != "" || os.Getenv("DELVE_DEBUGGER") != "" {
		return true
	}

	// Delve builds to __debug_bin
	if strings.Contains(os.Args[0], "__debug_bin") {
		return true
	}

	if runtime.GOOS == "linux" {
		return tracerPid("/proc/self/status") > 0
	}
	return false
}

// tracerPid reads the TracerPid field of a /proc status file, 0 when absent.
func tracerPid(status string) int {
	f, err := os.Open(status)
	if err != nil {
		return 0
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		v, ok := strings.CutPrefix(s.Text(), "TracerPid:")
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return pid
	}
	return 0
}
