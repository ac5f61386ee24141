package smoketest

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
)

// maxClaimAttempts bounds the search for an unclaimed ephemeral port.
const maxClaimAttempts = 32

var errNoFreePort = errors.New("no unclaimed free port")

// portClaims tracks ports held by live sessions so overlapping sessions never share one.
type portClaims struct {
	mu      sync.Mutex
	claimed map[int]struct{}
}

// sharedPorts is used by every Controller in the process.
var sharedPorts = newPortClaims()

func newPortClaims() *portClaims {
	return &portClaims{claimed: make(map[int]struct{})}
}

// claim reserves a free ephemeral port on the loopback interface.
func (p *portClaims) claim() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for range maxClaimAttempts {
		port, err := freePort()
		if err != nil {
			return 0, err
		}

		if _, taken := p.claimed[port]; taken {
			continue
		}

		p.claimed[port] = struct{}{}

		return port, nil
	}

	return 0, errNoFreePort
}

// release returns the port to the pool.
func (p *portClaims) release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.claimed, port)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}

	port := l.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener.

	if err = l.Close(); err != nil {
		return 0, fmt.Errorf("release probe listener: %w", err)
	}

	return port, nil
}

// verifyFree checks that nothing grabbed the port between claim and spawn.
func verifyFree(port int) error {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("port %d is busy: %w", port, err)
	}

	return l.Close()
}
