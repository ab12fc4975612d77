package e2e

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	pb "github.com/graphkeep/graphkeep/proto"
)

// ScriptedLLMEntry is one scripted response consumed by the fake generation
// sidecar.
type ScriptedLLMEntry struct {
	// Text is returned as a single final TextDelta followed by a Usage
	// chunk. Exactly one of Text/Throttled/Err should be set.
	Text      string
	Throttled bool   // respond with a throttled Error chunk
	Err       string // respond with a non-throttled Error chunk carrying this message
}

// ScriptedLLMClassifier maps an incoming request onto a named route. Routed
// requests are served from that route's own queue instead of the default
// sequential one — needed when concurrent callers (e.g. two documents'
// worker goroutines) issue semantically different calls (document summary,
// chunk extraction, filter classification) whose global arrival order at
// the transport is otherwise unpredictable. A request a classifier (or its
// caller) does not route falls back to the default queue.
type ScriptedLLMClassifier func(req *pb.GenerateRequest) string

// scriptedGenerateServer implements pb.GenerateServiceServer with one
// default FIFO queue plus any number of named route queues — the
// in-process-server analogue of an in-memory test double, but over a real
// gRPC connection so pkg/llmgateway's retry/backoff/streaming code runs
// unmodified against it.
type scriptedGenerateServer struct {
	pb.UnimplementedGenerateServiceServer

	mu        sync.Mutex
	classify  ScriptedLLMClassifier
	routes    map[string][]ScriptedLLMEntry
	entries   []ScriptedLLMEntry
	nextIndex int
	calls     []*pb.GenerateRequest
}

// ScriptedLLMServer is a running fake generation sidecar bound to a random
// local port.
type ScriptedLLMServer struct {
	Addr string

	srv *scriptedGenerateServer
	gs  *grpc.Server
}

// NewScriptedLLMServer starts a fake generation sidecar and registers its
// shutdown via t.Cleanup.
func NewScriptedLLMServer(t *testing.T) *ScriptedLLMServer {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &scriptedGenerateServer{routes: map[string][]ScriptedLLMEntry{}}
	gs := grpc.NewServer()
	pb.RegisterGenerateServiceServer(gs, srv)

	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.GracefulStop)

	return &ScriptedLLMServer{Addr: lis.Addr().String(), srv: srv, gs: gs}
}

// Classify installs fn, diverting any request fn routes to a named queue
// away from the default sequential one.
func (s *ScriptedLLMServer) Classify(fn ScriptedLLMClassifier) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	s.srv.classify = fn
}

// Push appends entry to the default sequential queue, consumed in call
// order by any request the classifier leaves unrouted.
func (s *ScriptedLLMServer) Push(entry ScriptedLLMEntry) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	s.srv.entries = append(s.srv.entries, entry)
}

// PushRoute appends entry to route's own queue.
func (s *ScriptedLLMServer) PushRoute(route string, entry ScriptedLLMEntry) {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	s.srv.routes[route] = append(s.srv.routes[route], entry)
}

// CallCount returns how many Generate RPCs have been served so far.
func (s *ScriptedLLMServer) CallCount() int {
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	return len(s.srv.calls)
}

func (s *scriptedGenerateServer) Generate(req *pb.GenerateRequest, stream pb.GenerateService_GenerateServer) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)

	var entry ScriptedLLMEntry
	ok := false
	if s.classify != nil {
		if route := s.classify(req); route != "" {
			if q := s.routes[route]; len(q) > 0 {
				entry, s.routes[route] = q[0], q[1:]
				ok = true
			}
		}
	}
	if !ok && s.nextIndex < len(s.entries) {
		entry = s.entries[s.nextIndex]
		s.nextIndex++
		ok = true
	}
	s.mu.Unlock()

	if !ok {
		return stream.Send(&pb.GenerateChunk{ChunkType: &pb.GenerateChunk_Error{
			Error: &pb.Error{Message: "scripted LLM server: no response queued for this request"},
		}})
	}

	if entry.Throttled {
		return stream.Send(&pb.GenerateChunk{ChunkType: &pb.GenerateChunk_Error{
			Error: &pb.Error{Message: "throttled", Throttled: true},
		}})
	}
	if entry.Err != "" {
		return stream.Send(&pb.GenerateChunk{ChunkType: &pb.GenerateChunk_Error{
			Error: &pb.Error{Message: entry.Err},
		}})
	}

	if err := stream.Send(&pb.GenerateChunk{ChunkType: &pb.GenerateChunk_Text{
		Text: &pb.TextDelta{Content: entry.Text, IsFinal: true},
	}}); err != nil {
		return err
	}
	return stream.Send(&pb.GenerateChunk{ChunkType: &pb.GenerateChunk_Usage{
		Usage: &pb.Usage{InputTokens: int32(len(req.SystemPrompt)), OutputTokens: int32(len(entry.Text))},
	}})
}
