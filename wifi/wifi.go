// MIT License
//
// Copyright (c) 2022 Patricio Whittingslow
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package wifi brings up a Pico W network interface with an address
// obtained by DHCP.
package wifi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"time"

	_ "embed"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/stacks"
)

var (
	//go:embed ssid.text
	ssid string
	//go:embed password.text
	pass string
)

const mtu = cyw43439.MTU

// SetupConfig holds network parameters.
type SetupConfig struct {
	// DHCP requested hostname.
	Hostname string
	// DHCP requested IP address. Used as a static address if no
	// DHCP server responds.
	RequestedIP string
	// Number of UDP ports to open in addition to the DHCP client port.
	UDPPorts uint16
	// Number of TCP ports to open.
	TCPPorts uint16
	// Attempts is the number of times to try joining the network
	// before failing. Zero means try forever.
	Attempts int
}

var nolog = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
	Level: slog.Level(127),
}))

// SetupWithDHCP joins the embedded network, starts packet handling and
// obtains an address.
func SetupWithDHCP(dev *cyw43439.Device, cfg SetupConfig, log *slog.Logger) (*stacks.PortStack, error) {
	cfg.UDPPorts++ // DHCP client.
	if log == nil {
		log = nolog
	}
	var (
		addr netip.Addr
		err  error
	)
	if cfg.RequestedIP != "" {
		addr, err = netip.ParseAddr(cfg.RequestedIP)
		if err != nil {
			return nil, err
		}
	}

	log.Info("joining network", slog.String("ssid", ssid), slog.Bool("open", pass == ""))
	for n := 1; ; n++ {
		err = dev.JoinWPA2(ssid, pass)
		if err == nil {
			break
		}
		log.Error("failed to join wifi", slog.Int("attempt", n), slog.Any("err", err))
		if cfg.Attempts > 0 && n >= cfg.Attempts {
			return nil, fmt.Errorf("join %s: %w", ssid, err)
		}
		time.Sleep(5 * time.Second)
	}
	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, err
	}
	log.Info("joined network", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	stack := stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: int(cfg.UDPPorts),
		MaxOpenPortsTCP: int(cfg.TCPPorts),
		MTU:             mtu,
		Logger:          log,
	})
	dev.RecvEthHandle(stack.RecvEth)
	go nicLoop(dev, stack, log)

	client := stacks.NewDHCPClient(stack, dhcp.DefaultClientPort)
	err = client.BeginRequest(stacks.DHCPRequestConfig{
		RequestedAddr: addr,
		Xid:           uint32(time.Now().Nanosecond()),
		Hostname:      cfg.Hostname,
	})
	if err != nil {
		return stack, fmt.Errorf("dhcp begin request: %w", err)
	}
	for i := 0; client.State() != dhcp.StateBound; i++ {
		if i > 15 {
			if !addr.IsValid() {
				return stack, errors.New("dhcp did not complete and no static address was requested")
			}
			log.Info("dhcp did not complete, using static address", slog.String("ip", cfg.RequestedIP))
			stack.SetAddr(addr)
			return stack, nil
		}
		log.Debug("dhcp ongoing")
		time.Sleep(time.Second / 2)
	}

	ip := client.Offer()
	log.Info("dhcp complete",
		slog.String("ip", ip.String()),
		slog.Uint64("cidrbits", uint64(client.CIDRBits())),
		slog.String("gateway", client.Gateway().String()),
		slog.Duration("lease", client.IPLeaseTime()),
	)
	stack.SetAddr(ip) // Must follow DHCP completion.
	return stack, nil
}

// nicLoop moves packets between the device and the stack.
func nicLoop(dev *cyw43439.Device, stack *stacks.PortStack, log *slog.Logger) {
	const (
		queueSize  = 3
		maxRetries = 3
	)
	var (
		queue   [queueSize][mtu]byte
		lens    [queueSize]int
		retries [queueSize]int
	)
	sent := func(i int) {
		lens[i] = 0
		retries[i] = 0
	}
	for {
		gotPacket, err := dev.PollOne()
		if err != nil {
			log.Debug("poll", slog.Any("err", err))
		}
		stallRx := !gotPacket

		for i := range queue {
			if retries[i] != 0 {
				continue // Awaiting retransmission.
			}
			lens[i], err = stack.HandleEth(queue[i][:])
			if err != nil {
				log.Debug("handle eth", slog.Int("n", lens[i]), slog.Any("err", err))
				lens[i] = 0
				continue
			}
			if lens[i] == 0 {
				break
			}
		}
		if lens == [queueSize]int{} {
			if stallRx {
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		for i := range queue {
			n := lens[i]
			if n <= 0 {
				continue
			}
			err := dev.SendEth(queue[i][:n])
			if err == nil {
				sent(i)
				continue
			}
			retries[i]++
			if retries[i] > maxRetries {
				sent(i)
				log.Debug("dropped outgoing packet", slog.Any("err", err))
			}
		}
	}
}
