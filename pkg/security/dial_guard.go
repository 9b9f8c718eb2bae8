package security

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
)

// ErrNonPublicAddress is returned when an outbound fetch resolves to an
// address inside a private, loopback or link-local range.
var ErrNonPublicAddress = errors.New("destination address is not public")

// Carrier-grade NAT space; netip has no predicate for it.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPublicAddr reports whether addr is routable on the public internet.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast():
		return false
	}
	return !sharedAddressSpace.Contains(addr)
}

// PublicOnlyControl is a net.Dialer Control hook. It runs after DNS
// resolution, so rebinding and redirects are checked on every connection.
func PublicOnlyControl(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNonPublicAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !IsPublicAddr(addr) {
		return fmt.Errorf("%w: %s", ErrNonPublicAddress, host)
	}
	return nil
}
