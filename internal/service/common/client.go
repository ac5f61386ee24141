//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultCallTimeout bounds a single health call when no option overrides it.
const DefaultCallTimeout = 2 * time.Second

// HealthClient wraps the standard gRPC health service client.
type HealthClient struct {
	// conn is the underlying gRPC connection to the server.
	conn *grpc.ClientConn
	// api is the generated health client.
	api healthpb.HealthClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*HealthClient)

// WithCallTimeout sets a default timeout for health calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *HealthClient) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// ErrNotServing is returned when the server answers with a status other than SERVING.
	ErrNotServing = errors.New("service is not serving")
)

// Dial creates a client for the gRPC health service at address.
// The connection is established lazily on the first call. Transport is plaintext
// because probes only ever target a loopback address.
func Dial(_ context.Context, address string, opts ...Option) (*HealthClient, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial health endpoint: %w", err)
	}

	client := &HealthClient{
		conn:        conn,
		api:         healthpb.NewHealthClient(conn),
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *HealthClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Check asks for the status of service ("" is the whole server) and
// returns ErrNotServing unless the answer is SERVING.
func (c *HealthClient) Check(ctx context.Context, service string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Check(callCtx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *HealthClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
