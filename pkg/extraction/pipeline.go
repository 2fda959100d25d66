// Package extraction provides the asynchronous memory extraction
// pipeline. After an exchange completes, a worker distills it into
// candidate facts and commits novel ones to the memory store.
//
// The pipeline decouples extraction from the chat hot path: it never
// delays turn persistence or the next user action, and every failure
// is logged and swallowed.
package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/generation"
	"github.com/perpetual-s/gemi/pkg/memorystore"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
	defaultTimeout           = 30 * time.Second
)

const extractionPrompt = `Extract significant personal facts from this conversation.
Output one fact per line, each line starting with a dash. Only include
facts worth remembering long term (events, people, preferences, plans).
If nothing is significant, output nothing.

User: %s
Assistant: %s`

// job pairs an exchange with the channel closed when its run finishes.
type job struct {
	exchange chat.Exchange
	done     chan struct{}
}

// Config is the configuration options for the extraction pipeline.
type Config struct {
	// Generator runs the single-shot extraction completion.
	Generator generation.Service

	// Memories is the store extracted facts are committed to.
	Memories memorystore.Driver

	// NumWorkers is the number of background workers (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// Timeout bounds one extraction completion (defaults to 30s).
	Timeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pipeline processes completed exchanges asynchronously via a worker pool.
type Pipeline struct {
	config *Config
	queue  chan job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPipeline creates a pipeline and starts its worker goroutines.
func NewPipeline(c *Config) (*Pipeline, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pipeline{
		config: c,
		queue:  make(chan job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Process submits an exchange for background extraction. The returned
// channel closes when the run finishes or is dropped; callers are not
// expected to wait on it. A full queue drops the exchange.
func (p *Pipeline) Process(exchange chat.Exchange) <-chan struct{} {
	j := job{
		exchange: exchange,
		done:     make(chan struct{}),
	}

	select {
	case p.queue <- j:
		p.logger.Debug("extraction queued",
			zap.String("exchange_id", exchange.ID),
		)
	default:
		p.logger.Error("extraction not queued, queue full, exchange dropped",
			zap.String("exchange_id", exchange.ID),
		)
		close(j.done)
	}

	return j.done
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pipeline) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue
func (p *Pipeline) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("extraction worker started", zap.Uint("worker_id", id))

	for j := range p.queue {
		p.processJob(j)
		close(j.done)
	}

	p.logger.Debug("extraction worker stopped", zap.Uint("worker_id", id))
}

// processJob runs one best-effort extraction. Any failure aborts only
// this run; the persisted conversation is never touched.
func (p *Pipeline) processJob(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(extractionPrompt, j.exchange.UserText, j.exchange.AssistantText)

	output, err := p.config.Generator.ChatOnce(ctx, []generation.Message{
		{Role: string(chat.RoleUser), Content: prompt},
	})
	if err != nil {
		p.logger.Warn("extraction completion failed",
			zap.String("exchange_id", j.exchange.ID),
			zap.Error(err),
		)
		return
	}

	facts := ParseFacts(output)
	if len(facts) == 0 {
		p.logger.Debug("no facts extracted",
			zap.String("exchange_id", j.exchange.ID),
		)
		return
	}

	inserted := 0
	for _, fact := range facts {
		candidate := memorystore.NewCandidate(fact, j.exchange.ID)

		_, isNew, err := p.config.Memories.Insert(ctx, candidate)
		if err != nil {
			p.logger.Warn("failed to insert memory",
				zap.String("exchange_id", j.exchange.ID),
				zap.Error(err),
			)
			continue
		}
		if isNew {
			inserted++
		}
	}

	p.logger.Info("memories extracted",
		zap.String("exchange_id", j.exchange.ID),
		zap.Int("candidates", len(facts)),
		zap.Int("inserted", inserted),
	)
}

// ParseFacts pulls dash-prefixed fact lines out of model output. Lines
// without the dash marker and empty facts are discarded.
func ParseFacts(output string) []string {
	var facts []string
	for line := range strings.Lines(output) {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}

		fact := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		if fact == "" {
			continue
		}
		facts = append(facts, fact)
	}
	return facts
}
