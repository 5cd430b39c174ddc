package testing

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// ExecHandler answers one exec request on the test server.
type ExecHandler func(cmd string) (stdout, stderr string, exitCode int)

// Server is an in-process SSH server that accepts password logins and
// answers exec requests. It is shut down when the test ends.
type Server struct {
	listener net.Listener
	signer   ssh.Signer

	mu       sync.Mutex
	conns    []net.Conn
	commands []string
	logins   int

	wg sync.WaitGroup
}

// NewServer starts a server on 127.0.0.1 that accepts user/password and
// runs handler for every exec request.
func NewServer(t testing.TB, user, password string, handler ExecHandler) *Server {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{listener: ln, signer: signer}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(pass) == password {
				s.mu.Lock()
				s.logins++
				s.mu.Unlock()
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
	}
	cfg.AddHostKey(signer)

	s.wg.Add(1)
	go s.serve(cfg, handler)
	t.Cleanup(s.Close)
	return s
}

// NewProcServer starts a server whose commands are answered from proc, the
// way a MockClient would answer them.
func NewProcServer(t testing.TB, user, password string, proc *MockProc) *Server {
	client := &MockClient{proc: proc, commands: map[string]CommandResponse{}}
	return NewServer(t, user, password, func(cmd string) (string, string, int) {
		resp := client.parseAndExecute(cmd)
		return string(resp.Stdout), string(resp.Stderr), resp.ExitCode
	})
}

// Host returns the address the server listens on.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// PublicKey returns the server's host key.
func (s *Server) PublicKey() ssh.PublicKey {
	return s.signer.PublicKey()
}

// Commands returns every command executed so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Logins returns how many password logins succeeded.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Close stops accepting connections and drops open ones.
func (s *Server) Close() {
	s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve(cfg *ssh.ServerConfig, handler ExecHandler) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn, cfg, handler)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn, cfg *ssh.ServerConfig, handler ExecHandler) {
	defer conn.Close()

	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs, handler)
	}
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request, handler ExecHandler) {
	defer ch.Close()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		stdout, stderr, code := handler(payload.Command)
		_, _ = ch.Write([]byte(stdout))
		_, _ = ch.Stderr().Write([]byte(stderr))
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(code)}))
		return
	}
}
