package connectivity

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (f fakeInterface) Flags() net.Flags            { return f.flags }
func (f fakeInterface) Addrs() ([]net.Addr, error) { return f.addrs, f.err }

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func checkerWith(ifs []netInterface, err error) *InterfaceChecker {
	return &InterfaceChecker{interfaces: func() ([]netInterface, error) { return ifs, err }}
}

// TestInterfaceChecker_Available verifies which interface sets count as connected.
func TestInterfaceChecker_Available(t *testing.T) {
	tests := []struct {
		name string
		ifs  []netInterface
		err  error
		want bool
	}{
		{"no interfaces", nil, nil, false},
		{"listing fails", nil, errors.New("boom"), false},
		{"loopback only", []netInterface{fakeInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("127.0.0.1")}}}, nil, false},
		{"down interface", []netInterface{fakeInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.20")}}}, nil, false},
		{"up with link-local only", []netInterface{fakeInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("169.254.3.4")}}}, nil, false},
		{"up with private address", []netInterface{fakeInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("192.168.1.20")}}}, nil, true},
		{"up with IPAddr", []netInterface{fakeInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("2001:db8::1")}}}}, nil, true},
		{"addr error skipped", []netInterface{
			fakeInterface{flags: net.FlagUp, err: errors.New("addrs")},
			fakeInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("10.0.0.5")}},
		}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkerWith(tt.ifs, tt.err)
			if got := c.Available(context.Background()); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterfaceChecker_CanceledContext(t *testing.T) {
	c := checkerWith([]netInterface{fakeInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("10.0.0.5")}}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if c.Available(ctx) {
		t.Error("Available() = true with canceled context, want false")
	}
}

func TestFromMode(t *testing.T) {
	ctx := context.Background()
	if !FromMode("online").Available(ctx) {
		t.Error("online mode should be available")
	}
	if FromMode("offline").Available(ctx) {
		t.Error("offline mode should be unavailable")
	}
	if _, ok := FromMode("interfaces").(*InterfaceChecker); !ok {
		t.Error("interfaces mode should return *InterfaceChecker")
	}
}

// TestSystemInterfaces lists the host's real interfaces through the adapter.
// Results depend on the host, so only the plumbing is asserted.
func TestSystemInterfaces(t *testing.T) {
	ifs, err := systemInterfaces()
	if err != nil {
		t.Skipf("net.Interfaces unavailable: %v", err)
	}
	for _, i := range ifs {
		_ = i.Flags()
		if _, err := i.Addrs(); err != nil {
			t.Logf("Addrs() error = %v", err)
		}
	}
	// Must not panic on the real adapter.
	_ = NewInterfaceChecker().Available(context.Background())
}
