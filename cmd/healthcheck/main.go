// Command healthcheck probes the bot's HTTP server for container health checks. It exits 0 when
// the probe answers 200. HEALTHCHECK_URL overrides the target; otherwise HTTP_ADDR (default
// :4343) on localhost is used. Pass -ready to probe /readyz instead of /healthz.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	ready := flag.Bool("ready", false, "probe /readyz instead of /healthz")
	flag.Parse()
	if err := probe(context.Background(), targetURL(os.Getenv("HEALTHCHECK_URL"), os.Getenv("HTTP_ADDR"), *ready), nil); err != nil {
		slog.Error("healthcheck failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func targetURL(override, addr string, ready bool) string {
	if override != "" {
		return override
	}
	if addr == "" {
		addr = ":4343"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = "", "4343"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	path := "/healthz"
	if ready {
		path = "/readyz"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

func probe(ctx context.Context, url string, client *http.Client) error {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
