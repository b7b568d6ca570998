package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"sort"
	"strings"
	"sync"
)

const unknownTerminal = "UNKNOWN-TERMINAL"

var (
	terminalOnce sync.Once
	terminalID   string
)

// TerminalID identifies this till as "FTB-" plus eight hex digits derived
// from its hardware addresses. Incident reports carry it.
func TerminalID() string {
	terminalOnce.Do(func() { terminalID = terminalIDFrom(net.Interfaces) })
	return terminalID
}

// terminalIDFrom hashes the lowest non-loopback hardware address, so the id
// does not change with interface order.
func terminalIDFrom(list func() ([]net.Interface, error)) string {
	ifaces, err := list()
	if err != nil {
		return unknownTerminal
	}
	var macs []string
	for _, i := range ifaces {
		if i.Flags&net.FlagLoopback != 0 || len(i.HardwareAddr) == 0 {
			continue
		}
		macs = append(macs, i.HardwareAddr.String())
	}
	if len(macs) == 0 {
		return unknownTerminal
	}
	sort.Strings(macs)
	sum := sha256.Sum256([]byte("fintab-terminal:" + macs[0]))
	return "FTB-" + strings.ToUpper(hex.EncodeToString(sum[:4]))
}
