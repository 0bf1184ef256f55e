// Package proxy builds HTTP clients that tunnel through a local SOCKS5
// proxy, for setups where the speech APIs are not directly reachable.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

const defaultTimeout = 120 * time.Second

func NewSocksClient(socksAddr string) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer for %s: %w", socksAddr, err)
	}

	dialCtx := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}

	return &http.Client{
		Transport: &http.Transport{DialContext: dialCtx},
		Timeout:   defaultTimeout,
	}, nil
}
