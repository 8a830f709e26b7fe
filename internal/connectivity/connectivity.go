// Package connectivity answers whether the host currently has a usable network.
package connectivity

import (
	"context"
	"net"
)

// Checker reports network reachability.
type Checker interface {
	Available(ctx context.Context) bool
}

// Static always returns the same answer.
type Static bool

// Available implements Checker.
func (s Static) Available(ctx context.Context) bool {
	return bool(s)
}

// InterfaceChecker treats the network as available when any interface is up,
// is not loopback, and holds a global unicast address.
type InterfaceChecker struct {
	// interfaces is swapped out in tests.
	interfaces func() ([]netInterface, error)
}

// netInterface is the subset of net.Interface the checker needs.
type netInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type sysInterface struct{ net.Interface }

func (i sysInterface) Flags() net.Flags { return i.Interface.Flags }

func (i sysInterface) Addrs() ([]net.Addr, error) { return i.Interface.Addrs() }

// NewInterfaceChecker returns a checker backed by net.Interfaces.
func NewInterfaceChecker() *InterfaceChecker {
	return &InterfaceChecker{interfaces: systemInterfaces}
}

func systemInterfaces() ([]netInterface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]netInterface, 0, len(ifs))
	for _, i := range ifs {
		out = append(out, sysInterface{i})
	}
	return out, nil
}

// Available implements Checker.
func (c *InterfaceChecker) Available(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	ifs, err := c.interfaces()
	if err != nil {
		return false
	}
	for _, i := range ifs {
		flags := i.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && ip.IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}

// FromMode builds a Checker for the config connectivity.mode value.
func FromMode(mode string) Checker {
	switch mode {
	case "online":
		return Static(true)
	case "offline":
		return Static(false)
	default:
		return NewInterfaceChecker()
	}
}
