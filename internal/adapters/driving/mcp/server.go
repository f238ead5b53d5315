package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// DefaultMaxSessions bounds the conversations held in memory.
// The least recently used one is dropped first.
const DefaultMaxSessions = 256

// Server is the MCP server for the documentation assistant.
type Server struct {
	ports  *Ports
	server *mcp.Server

	mu          sync.Mutex
	sessions    map[string]*session
	maxSessions int
	clock       uint64
}

// session is one conversation. mu is held across a whole ask.
type session struct {
	mu     sync.Mutex
	memory *domain.ConversationMemory
	conv   *domain.Conversation // nil when the conversation is not saved
	used   uint64
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "gitbook-qa",
		Version: Version,
	}

	s := &Server{
		ports:       ports,
		server:      mcp.NewServer(impl, nil),
		sessions:    make(map[string]*session),
		maxSessions: DefaultMaxSessions,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// session returns the conversation for id, seeding it from saved history
// the first time a known id is seen. An empty id gets a fresh unsaved session.
func (s *Server) session(ctx context.Context, id string) *session {
	if id == "" {
		return &session{memory: domain.NewConversationMemory()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock++
	if sess, ok := s.sessions[id]; ok {
		sess.used = s.clock
		return sess
	}

	sess := &session{memory: domain.NewConversationMemory(), used: s.clock}
	if s.ports.History != nil {
		if conv, saved, err := s.ports.History.Load(ctx, id); err == nil {
			sess.conv, sess.memory = conv, saved
		} else {
			sess.conv = s.ports.History.New()
			sess.conv.ID = id
		}
	}

	s.evict()
	s.sessions[id] = sess
	return sess
}

// evict drops least recently used sessions until one more fits.
// Callers hold s.mu.
func (s *Server) evict() {
	for len(s.sessions) > 0 && len(s.sessions) >= s.maxSessions {
		var oldest string
		var used uint64
		for id, sess := range s.sessions {
			if oldest == "" || sess.used < used {
				oldest, used = id, sess.used
			}
		}
		delete(s.sessions, oldest)
		logger.Debug("Dropped idle MCP conversation %s", oldest)
	}
}

// record appends an exchange to the saved conversation. Save failures are
// logged and do not fail the ask. Callers hold sess.mu.
func (s *Server) record(ctx context.Context, sess *session, question, answer string) {
	if sess.conv == nil || s.ports.History == nil {
		return
	}
	now := time.Now()
	sess.conv.Append(domain.RoleUser, question, now)
	sess.conv.Append(domain.RoleAssistant, answer, now)
	if err := s.ports.History.Save(ctx, sess.conv); err != nil {
		logger.Warn("Saving conversation %s failed: %v", sess.conv.ID, err)
	}
}
