package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"bingpaper/internal/daemon"
	"bingpaper/internal/logging"
)

const serviceName = "BingPaper"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon stop.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, shutdown: shutdown, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("remove socket file", logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.RunID = status.RunID
	resp.StartedAt = status.StartedAt
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.HistoryDBPath = status.HistoryDBPath
	resp.PicturesDir = status.PicturesDir
	resp.FallbackAsset = status.FallbackAsset
	resp.CurrentPicture = status.CurrentPicture
	resp.NextPoll = status.NextPoll
	resp.LastError = status.LastError
	resp.UpdatedAt = status.UpdatedAt
	return nil
}

func (s *service) Current(_ CurrentRequest, resp *CurrentResponse) error {
	resp.Path = s.daemon.CurrentPicture()
	return nil
}

func (s *service) Refresh(_ RefreshRequest, resp *RefreshResponse) error {
	s.logger.Info("refresh requested via ipc")
	s.daemon.Refresh()
	resp.Accepted = true
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	entries, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			StartDate:    entry.StartDate,
			Title:        entry.Title,
			Path:         entry.Path,
			Market:       entry.Market,
			DownloadedAt: entry.DownloadedAt,
		})
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("shutdown requested via ipc")
	resp.Stopping = true
	if s.shutdown != nil {
		// Run asynchronously so the response reaches the client before the
		// socket goes away.
		go s.shutdown()
	}
	return nil
}
