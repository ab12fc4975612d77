// Package llmgateway is the sole boundary between the ingestion/news
// pipelines and the streaming generation backend. It owns connection
// management, two retry policies (unbounded jittered backoff on provider
// throttling, bounded backoff on every other error), and the
// response-shaping helpers every caller needs: pulling an answer out of
// its XML result tags and normalizing the LLM's habit of emitting the bare
// word NULL where JSON null belongs.
package llmgateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/graphkeep/graphkeep/pkg/config"
	pb "github.com/graphkeep/graphkeep/proto"
)

// Chunk is one streamed piece of a generation response.
type Chunk struct {
	Text      string
	IsFinal   bool
	Usage     *Usage
	Err       error
	Throttled bool
}

// Usage reports token accounting for a completed generation.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Client talks to the generation sidecar over gRPC and applies the
// retry/backoff policy the caller would otherwise have to duplicate.
type Client struct {
	conn     *grpc.ClientConn
	client   pb.GenerateServiceClient
	provider *config.LLMProviderConfig
	provName string
	log      *SavedPromptStore
}

// NewClient dials addr and binds the client to one named provider from the
// registry. A deployment typically runs a single active provider.
func NewClient(addr string, providers *config.LLMProviderRegistry, providerName string, store *SavedPromptStore) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to generation service: %w", err)
	}
	prov, err := providers.Get(providerName)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{
		conn:     conn,
		client:   pb.NewGenerateServiceClient(conn),
		provider: prov,
		provName: providerName,
		log:      store,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Request describes one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Generate streams a completion for req, retrying transparently on
// transient failures per the provider's throttle/generic-error policy:
// throttling responses are retried forever with a random 10-30s sleep
// between attempts (the caller is expected to eventually succeed or have
// its context canceled); any other error is retried up to 3 times with the
// same jittered delay before being surfaced.
func (c *Client) Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		promptID := uuid.NewString()
		if c.log != nil {
			c.log.Save(promptID, req.SystemPrompt+"\n\n"+req.UserPrompt)
		}

		genericAttempts := 0
		for {
			err := c.stream(ctx, promptID, req, chunks)
			if err == nil {
				return
			}
			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}

			if te, ok := err.(*ThrottleError); ok {
				log.Printf("llmgateway: throttled (prompt %s), retrying: %v", promptID, te)
				if !sleepJittered(ctx, 10, 30) {
					errs <- ctx.Err()
					return
				}
				continue
			}

			genericAttempts++
			if genericAttempts > 3 {
				errs <- fmt.Errorf("generation failed after %d attempts: %w", genericAttempts, err)
				return
			}
			log.Printf("llmgateway: generation error (prompt %s, attempt %d/3): %v", promptID, genericAttempts, err)
			if !sleepJittered(ctx, 10, 30) {
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

// ThrottleError marks a provider response as a rate-limit/throttle signal,
// which the retry loop treats as unconditionally retryable.
type ThrottleError struct {
	Message string
}

func (e *ThrottleError) Error() string { return e.Message }

func (c *Client) stream(ctx context.Context, promptID string, req Request, chunks chan<- Chunk) error {
	pbReq := &pb.GenerateRequest{
		PromptId:        promptID,
		Provider:        string(c.provider.Type),
		Model:           c.provider.Model,
		SystemPrompt:    req.SystemPrompt,
		UserPrompt:      req.UserPrompt,
		Temperature:     c.provider.Temperature,
		TopP:            c.provider.TopP,
		TopK:            int32(c.provider.TopK),
		MaxOutputTokens: int32(c.provider.MaxOutputTokens),
	}

	streamCtx := ctx
	if c.provider.RequestTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, c.provider.RequestTimeout)
		defer cancel()
	}

	stream, err := c.client.Generate(streamCtx, pbReq)
	if err != nil {
		return fmt.Errorf("failed to start generation stream: %w", err)
	}

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		switch t := chunk.ChunkType.(type) {
		case *pb.GenerateChunk_Text:
			select {
			case chunks <- Chunk{Text: t.Text.Content, IsFinal: t.Text.IsFinal}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case *pb.GenerateChunk_Usage:
			select {
			case chunks <- Chunk{Usage: &Usage{InputTokens: int(t.Usage.InputTokens), OutputTokens: int(t.Usage.OutputTokens)}}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case *pb.GenerateChunk_Error:
			if t.Error.Throttled {
				return &ThrottleError{Message: t.Error.Message}
			}
			return fmt.Errorf("provider error: %s", t.Error.Message)
		}
	}
}

// sleepJittered blocks for a random duration in [loSec, hiSec) seconds or
// until ctx is canceled, whichever comes first. Returns false on cancellation.
func sleepJittered(ctx context.Context, loSec, hiSec int) bool {
	d := time.Duration(loSec)*time.Second + time.Duration(rand.Intn((hiSec-loSec)*1000))*time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
