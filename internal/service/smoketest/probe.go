package smoketest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/service/common"
)

// HealthPath is requested by the HTTP probe.
const HealthPath = "/health"

// Prober checks the health of a server listening on port. Probe failures are
// recorded, never fatal.
type Prober interface {
	Probe(ctx context.Context, port int) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, port int) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, port int) error {
	return f(ctx, port)
}

var errUnhealthyStatus = errors.New("unhealthy status")

// HTTPProber issues GET http://127.0.0.1:<port+Offset>/health.
type HTTPProber struct {
	Client *http.Client
	Offset int
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context, port int) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := "http://" + healthAddress(port, p.Offset) + HealthPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s", errUnhealthyStatus, resp.Status)
	}

	return nil
}

// GRPCProber calls grpc.health.v1.Health/Check on port+Offset.
type GRPCProber struct {
	Offset int
}

// Probe implements Prober.
func (p GRPCProber) Probe(ctx context.Context, port int) error {
	client, err := common.Dial(ctx, healthAddress(port, p.Offset))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	return client.Check(ctx, "")
}

// NewProber returns the prober configured by st.
func NewProber(st config.SmokeTestConfig) Prober {
	switch st.Probe {
	case config.ProbeGRPC:
		return GRPCProber{Offset: st.HealthPortOffset}
	case config.ProbeNone:
		return nil
	default:
		return HTTPProber{Offset: st.HealthPortOffset}
	}
}

func healthAddress(port, offset int) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port+offset))
}
