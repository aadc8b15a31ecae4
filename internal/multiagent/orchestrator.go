package multiagent

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/nexus-orchestrator/core/internal/agent"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
)

// activation is one queued unit of work: run a cycle for agentID on behalf
// of the user-visible request requestID.
type activation struct {
	agentID   string
	requestID string
}

// Orchestrator is C11: the activation queue and worker pool that drive one
// cycle per agent at a time. Activate enqueues an agent id; a pool of
// workers (default 4x NumCPU, grounded on the teacher's worker-pool sizing)
// pulls ids and runs CycleHandler.Run for each, holding the agent's own
// lock so at most one cycle ever runs concurrently for a given agent even
// if it is reactivated while already queued.
//
// A user-visible request can fan out across many cycles, on many agents, as
// send_message reactivations and plan retries chain forward, so the
// orchestrator — not CycleHandler — owns the one FailoverState per request
// that invariant 6 requires: it hands the same *modelreg.FailoverState to
// every cycle sharing a requestID, keyed by requestID and refcounted so it
// is freed once the last cycle for that request finishes.
type Orchestrator struct {
	States *StateManager
	Cycle  *agent.CycleHandler
	Logger *slog.Logger

	queue chan activation

	mu     sync.Mutex
	queued map[string]bool

	reqMu      sync.Mutex
	failovers  map[string]*modelreg.FailoverState
	requestRef map[string]int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// DefaultWorkerCount returns 4x the number of available CPUs, the teacher's
// default sizing for a bounded worker pool under I/O-bound (network)
// workloads.
func DefaultWorkerCount() int {
	return runtime.NumCPU() * 4
}

// NewOrchestrator builds an orchestrator with a queue large enough to hold
// one pending activation per worker without blocking Activate.
func NewOrchestrator(states *StateManager, cycle *agent.CycleHandler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	workers := DefaultWorkerCount()
	return &Orchestrator{
		States:     states,
		Cycle:      cycle,
		Logger:     logger,
		queue:      make(chan activation, workers*4),
		queued:     make(map[string]bool),
		failovers:  make(map[string]*modelreg.FailoverState),
		requestRef: make(map[string]int),
	}
}

// Start launches the worker pool. Call Shutdown to stop it.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	workers := DefaultWorkerCount()
	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.worker(ctx)
	}
}

// Shutdown cancels the worker pool and waits for in-flight cycles to flush.
func (o *Orchestrator) Shutdown() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-o.queue:
			if !ok {
				return
			}
			o.runOne(ctx, a)
		}
	}
}

func (o *Orchestrator) runOne(ctx context.Context, a activation) {
	o.mu.Lock()
	delete(o.queued, a.agentID)
	o.mu.Unlock()

	defer o.releaseFailoverState(a.requestID)

	ag, ok := o.States.Get(a.agentID)
	if !ok {
		return
	}

	ag.Lock()
	defer ag.Unlock()

	cycleID := uuid.NewString()
	failover := o.failoverState(a.requestID)
	if err := o.Cycle.Run(ctx, ag, ag.Config.SystemPrompt, cycleID, a.requestID, failover); err != nil {
		ag.SetState(agent.StateError)
		o.Logger.Error("cycle failed", "agent_id", a.agentID, "cycle_id", cycleID, "request_id", a.requestID, "error", err)
	}
}

// reserveFailoverState creates requestID's shared FailoverState on first use
// and takes one reference on it. Pairs with releaseFailoverState, which must
// be called exactly once per reserveFailoverState call.
func (o *Orchestrator) reserveFailoverState(requestID string) {
	o.reqMu.Lock()
	defer o.reqMu.Unlock()

	if _, ok := o.failovers[requestID]; !ok {
		o.failovers[requestID] = modelreg.NewFailoverState()
	}
	o.requestRef[requestID]++
}

// failoverState looks up requestID's FailoverState without taking a new
// reference; the activation's own reservation (from reserveFailoverState)
// already keeps it alive for the duration of this cycle.
func (o *Orchestrator) failoverState(requestID string) *modelreg.FailoverState {
	o.reqMu.Lock()
	defer o.reqMu.Unlock()
	return o.failovers[requestID]
}

// releaseFailoverState drops one reference to requestID's FailoverState,
// freeing it once no queued or running cycle still belongs to that request.
func (o *Orchestrator) releaseFailoverState(requestID string) {
	o.reqMu.Lock()
	defer o.reqMu.Unlock()

	o.requestRef[requestID]--
	if o.requestRef[requestID] <= 0 {
		delete(o.requestRef, requestID)
		delete(o.failovers, requestID)
	}
}

// Activate implements internal/agent.Activator: enqueue agentID for a new
// cycle on behalf of requestID, deduplicating so a reactivation arriving
// while the agent is already queued (but not yet running) is a no-op rather
// than a second queue entry. The already-queued activation keeps whichever
// requestID it was enqueued with; a dedup'd Activate contributes no new
// reference, since it will not produce a runOne call of its own.
func (o *Orchestrator) Activate(agentID, requestID string) {
	o.mu.Lock()
	if o.queued[agentID] {
		o.mu.Unlock()
		return
	}
	o.queued[agentID] = true
	o.mu.Unlock()

	// Reserve the request's FailoverState before handing the activation to
	// the queue, so it exists the moment a worker picks this up even if
	// every other cycle for this request has already finished and released it.
	o.reserveFailoverState(requestID)

	select {
	case o.queue <- activation{agentID: agentID, requestID: requestID}:
	default:
		// Queue is momentarily full; drop the dedup marker so a later
		// Activate can retry rather than believing this one already landed,
		// and release the reservation since no worker will ever consume it.
		o.mu.Lock()
		delete(o.queued, agentID)
		o.mu.Unlock()
		o.releaseFailoverState(requestID)
		o.Logger.Warn("activation queue full, dropped", "agent_id", agentID, "request_id", requestID)
	}
}
