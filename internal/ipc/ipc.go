// Package ipc exposes a unix-socket control endpoint for the daemon.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/willow.sock"

// Control commands understood by the daemon.
const (
	CmdMute    = "mute"
	CmdUnmute  = "unmute"
	CmdToggle  = "toggle"
	CmdTrigger = "trigger"
	CmdStatus  = "status"
	CmdQuit    = "quit"
)

type Command struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Muted bool   `json:"muted"`
	Error string `json:"error,omitempty"`
}

// Server accepts one command per connection and writes one reply back.
type Server struct {
	ln      net.Listener
	path    string
	handler func(Command) Reply
	log     *slog.Logger
}

func Serve(socketPath string, handler func(Command) Reply, log *slog.Logger) (*Server, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if log == nil {
		log = slog.Default()
	}
	os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}

	s := &Server{ln: ln, path: socketPath, handler: handler, log: log.With("component", "ipc")}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		s.log.Warn("bad control message", "err", err)
		return
	}

	reply := s.handler(cmd)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.log.Warn("write reply failed", "err", err)
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

// Send delivers one command to a running daemon and returns its reply.
func Send(socketPath, cmd string) (Reply, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	conn, err := net.DialTimeout("unix", socketPath, 3*time.Second)
	if err != nil {
		return Reply{}, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(Command{Cmd: cmd}); err != nil {
		return Reply{}, fmt.Errorf("send command: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
