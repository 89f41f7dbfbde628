// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/log"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
	"github.com/retronx-team/sys-clk-sub000/internal/version"
)

// ManagerHandle is the subset of *manager.Manager the IPC service needs.
// Declared locally (rather than importing the manager package's type
// directly as a field) to keep internal/ipc free of a hard dependency on
// internal/manager's full surface.
type ManagerHandle interface {
	GetCurrentContext() sysclk.Context
	GetConfig() *config.Store
	GetFreqList(module sysclk.Module) []uint32
	SetRunning(bool)
}

// Server implements the Dispatch handler over a ManagerHandle.
type Server struct {
	mgr ManagerHandle
}

// NewServer builds a Server bound to mgr.
func NewServer(mgr ManagerHandle) *Server {
	return &Server{mgr: mgr}
}

// Register attaches the Dispatch method to s via the hand-written
// ServiceDesc. The gob codec is not set here; Listen builds s with
// grpc.ForceServerCodec(Codec{}).
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Dispatch implements the single RPC method every command rides over.
func (s *Server) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	reqID := uuid.New()
	log.Debugf("ipc: dispatch id=%s cmd=%d app_id=%#x", reqID, req.Cmd, req.AppID)

	switch req.Cmd {
	case CmdGetAPIVersion:
		return &Response{Ok: true, APIVersion: APIVersion}, nil

	case CmdGetVersionString:
		return &Response{Ok: true, VersionString: version.GetFullVersion()}, nil

	case CmdGetCurrentContext:
		return &Response{Ok: true, Context: s.mgr.GetCurrentContext()}, nil

	case CmdExit:
		s.mgr.SetRunning(false)
		return &Response{Ok: true}, nil

	case CmdGetProfileCount:
		cfg := s.mgr.GetConfig()
		if !cfg.HasLoaded() {
			return errResponse(sysclk.ErrorConfigNotLoaded), nil
		}
		return &Response{Ok: true, ProfileCount: uint8(cfg.ProfileCount(req.AppID))}, nil

	case CmdGetProfiles:
		cfg := s.mgr.GetConfig()
		if !cfg.HasLoaded() {
			return errResponse(sysclk.ErrorConfigNotLoaded), nil
		}
		return &Response{Ok: true, Profiles: cfg.GetProfiles(req.AppID)}, nil

	case CmdSetProfiles:
		cfg := s.mgr.GetConfig()
		if !cfg.SetProfiles(req.AppID, req.Profiles, req.Persist) {
			return errResponse(sysclk.ErrorConfigSaveFailed), nil
		}
		return &Response{Ok: true}, nil

	case CmdSetEnabled:
		s.mgr.GetConfig().SetEnabled(req.Enabled)
		return &Response{Ok: true}, nil

	case CmdSetOverride:
		if !req.Module.Valid() {
			return errResponse(sysclk.ErrorGeneric), nil
		}
		s.mgr.GetConfig().SetOverrideHz(req.Module, req.Hz)
		return &Response{Ok: true}, nil

	case CmdGetConfigValues:
		return &Response{Ok: true, Values: s.mgr.GetConfig().GetConfigValues()}, nil

	case CmdSetConfigValues:
		if !s.mgr.GetConfig().SetConfigValues(req.Values, req.Persist) {
			return errResponse(sysclk.ErrorConfigSaveFailed), nil
		}
		return &Response{Ok: true}, nil

	case CmdGetFreqList:
		if !req.Module.Valid() {
			return errResponse(sysclk.ErrorGeneric), nil
		}
		list := s.mgr.GetFreqList(req.Module)
		if req.MaxCount > 0 && uint32(len(list)) > req.MaxCount {
			list = list[:req.MaxCount]
		}
		return &Response{Ok: true, FreqList: list}, nil

	default:
		return errResponse(sysclk.ErrorGeneric), nil
	}
}

func errResponse(code sysclk.ErrorCode) *Response {
	return &Response{Ok: false, Err: sysclk.NewIPCError(code)}
}

// dispatchHandler adapts Dispatch to grpc.MethodDesc's Handler signature,
// the hand-rolled equivalent of what protoc-gen-go-grpc would generate for
// a one-method service.
func dispatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/Dispatch", serviceName)}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Dispatch(ctx, req.(*Request))
	}
	return interceptor(ctx, in, info, handler)
}

const serviceName = "sysclk.IPC"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Dispatch",
			Handler:    dispatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/ipc/server.go",
}
