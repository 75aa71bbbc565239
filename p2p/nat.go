package p2p

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway2"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// NAT maps an external port to this node's listening port so remote
// peers behind the same gateway can dial in.
// A mapping failure is never fatal — it only degrades the node to
// outbound-only connectivity.
type NAT interface {
	ExternalIP() (net.IP, error)
	AddMapping(protocol string, extPort, intPort int, desc string, lifetime time.Duration) error
	DeleteMapping(protocol string, extPort, intPort int) error
}

// DiscoverNAT tries NAT-PMP first, since it is a single UDP round trip
// to the default gateway, then falls back to UPnP IGDv2 discovery.
func DiscoverNAT(ctx context.Context) (NAT, error) {
	if gw := discoverGatewayIP(); gw != nil {
		client := natpmp.NewClient(gw)
		if _, err := client.GetExternalAddress(); err == nil {
			return &pmpNAT{client: client}, nil
		}
	}

	clients, errs, err := internetgateway2.NewWANIPConnection1Clients()
	if err != nil {
		return nil, err
	}
	if len(clients) > 0 {
		return &upnpNAT{client: clients[0]}, nil
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return nil, errors.New("p2p: no NAT gateway discovered")
}

type pmpNAT struct {
	client *natpmp.Client
}

func (n *pmpNAT) ExternalIP() (net.IP, error) {
	resp, err := n.client.GetExternalAddress()
	if err != nil {
		return nil, err
	}
	return net.IP(resp.ExternalIPAddress[:]), nil
}

func (n *pmpNAT) AddMapping(protocol string, extPort, intPort int, desc string, lifetime time.Duration) error {
	_, err := n.client.AddPortMapping(protocol, intPort, extPort, int(lifetime/time.Second))
	return err
}

func (n *pmpNAT) DeleteMapping(protocol string, extPort, intPort int) error {
	// NAT-PMP removes a mapping by requesting it again with a zero
	// lifetime and zero external port.
	_, err := n.client.AddPortMapping(protocol, intPort, 0, 0)
	return err
}

type upnpNAT struct {
	client *internetgateway2.WANIPConnection1
}

func (n *upnpNAT) ExternalIP() (net.IP, error) {
	s, err := n.client.GetExternalIPAddress()
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, errors.New("p2p: upnp gateway returned an unparseable external IP")
	}
	return ip, nil
}

func (n *upnpNAT) AddMapping(protocol string, extPort, intPort int, desc string, lifetime time.Duration) error {
	internal, err := localIP()
	if err != nil {
		return err
	}
	return n.client.AddPortMapping("", uint16(extPort), protocol, uint16(intPort), internal.String(), true, desc, uint32(lifetime/time.Second))
}

func (n *upnpNAT) DeleteMapping(protocol string, extPort, intPort int) error {
	return n.client.DeletePortMapping("", uint16(extPort), protocol)
}

// localIP and discoverGatewayIP both rely on the routing table entry
// for an arbitrary outbound UDP socket rather than enumerating
// interfaces, matching the lightweight approach NAT-PMP/UPnP clients
// commonly use to find "the" LAN-facing address.
func localIP() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

func discoverGatewayIP() net.IP {
	local, err := localIP()
	if err != nil {
		return nil
	}
	local = local.To4()
	if local == nil {
		return nil
	}
	gw := make(net.IP, len(local))
	copy(gw, local)
	gw[3] = 1
	return gw
}
