// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"
)

// maxConcurrentSessions reproduces §4.8's "up to 42 concurrent sessions"
// cap directly as gRPC's concurrent-stream limit; each session is one
// Dispatch call.
const maxConcurrentSessions = 42

// Service owns the listening socket and the gRPC server bound to it.
type Service struct {
	listener net.Listener
	server   *grpc.Server
}

// Listen binds a Unix domain socket at socketPath (removing any stale file
// left by a previous unclean shutdown) and registers srv's Dispatch method
// over the gob codec.
func Listen(socketPath string, srv *Server) (*Service, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ipc: removing stale socket %q: %w", socketPath, err)
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: listening on %q: %w", socketPath, err)
	}

	s := grpc.NewServer(
		grpc.MaxConcurrentStreams(maxConcurrentSessions),
		grpc.ForceServerCodec(Codec{}),
	)
	Register(s, srv)

	return &Service{listener: lis, server: s}, nil
}

// Serve blocks accepting sessions until Stop is called. Mirrors the
// original's dedicated IPC worker running process(server, handler) in a
// loop; here gRPC owns the per-session concurrency instead of a single
// handle-array wait.
func (svc *Service) Serve() error {
	if err := svc.server.Serve(svc.listener); err != nil {
		return fmt.Errorf("ipc: serving: %w", err)
	}
	return nil
}

// Stop gracefully drains in-flight sessions, the Go equivalent of
// cancelling the blocking wait handle in §4.8/§5.
func (svc *Service) Stop() {
	svc.server.GracefulStop()
}
