package utils

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDIsTimeOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.True(t, a < b, "ids must sort by creation time: %s >= %s", a, b)
}

func TestTerminalIDFormat(t *testing.T) {
	id := TerminalID()
	assert.True(t, strings.HasPrefix(id, "FTB-") || id == unknownTerminal, id)
	assert.Equal(t, id, TerminalID())
}

func TestTerminalIDFrom(t *testing.T) {
	mac := func(s string) net.HardwareAddr {
		hw, err := net.ParseMAC(s)
		if err != nil {
			t.Fatal(err)
		}
		return hw
	}
	eth0 := net.Interface{Name: "eth0", Flags: net.FlagUp, HardwareAddr: mac("02:00:00:00:00:02")}
	eth1 := net.Interface{Name: "eth1", HardwareAddr: mac("02:00:00:00:00:01")}
	lo := net.Interface{Name: "lo", Flags: net.FlagUp | net.FlagLoopback, HardwareAddr: mac("00:00:00:00:00:00")}
	list := func(ifs ...net.Interface) func() ([]net.Interface, error) {
		return func() ([]net.Interface, error) { return ifs, nil }
	}

	a := terminalIDFrom(list(eth0, eth1, lo))
	b := terminalIDFrom(list(lo, eth1, eth0))
	assert.Equal(t, a, b, "order of interfaces must not matter")
	assert.Len(t, a, len("FTB-")+8)
	assert.NotEqual(t, a, terminalIDFrom(list(eth0)))

	assert.Equal(t, unknownTerminal, terminalIDFrom(list(lo)))
	assert.Equal(t, unknownTerminal, terminalIDFrom(func() ([]net.Interface, error) { return nil, errors.New("no netlink") }))
}
