package common

import (
	"net"
	"strconv"
	"strings"
)

// NormalizeAddress lower-cases the host, resolves it to a canonical
// "host:port" form, and rejects loopback, link-local, and any-local
// addresses. An address with no port keeps defaultPort.
//
// This is the single gate behind peer admission.
func NormalizeAddress(addr string, defaultPort int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		portStr = strconv.Itoa(defaultPort)
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", ErrReservedAddress
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return "", ErrReservedAddress
		}
	} else if strings.EqualFold(host, "localhost") {
		return "", ErrReservedAddress
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// ByteSliceEqual reports whether a and b hold identical bytes, treating
// nil and empty as distinct the way the original pool code does.
func ByteSliceEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if (a == nil) != (b == nil) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
