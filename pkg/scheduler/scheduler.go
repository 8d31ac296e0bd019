package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cuemby/reactix/pkg/enclave"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/log"
	"github.com/cuemby/reactix/pkg/metrics"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/cuemby/reactix/pkg/tag"
	"github.com/cuemby/reactix/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config carries the per-run knobs §6 assigns to Scheduler.new.
type Config struct {
	// FastForward skips wall-clock synchronization: tags advance as fast as
	// the event queue can drain them.
	FastForward bool
	// KeepAlive prevents the scheduler from synthesizing a terminal event
	// when the queue empties; it waits on its async channel indefinitely.
	KeepAlive bool
	// Timeout, if set, schedules a terminal event at Tag::ZERO.delay(Timeout)
	// during Startup.
	Timeout *time.Duration
}

// Scheduler drives one enclave's event queue: the Startup/Next/EventLoop
// surface of §4.4, run on a single goroutine except for the equal-level
// parallel dispatch within ProcessTag.
type Scheduler struct {
	Key     keys.EnclaveKey
	Enclave *enclave.Enclave
	Config  Config

	queue       *EventQueue
	currentTag  tag.Tag
	startTime   time.Time
	shutdownTag *tag.Tag

	logger zerolog.Logger
}

// New returns a Scheduler for enc, ready for Startup.
func New(key keys.EnclaveKey, enc *enclave.Enclave, config Config) *Scheduler {
	return &Scheduler{
		Key:        key,
		Enclave:    enc,
		Config:     config,
		queue:      NewEventQueue(),
		currentTag: tag.ZERO.Decrement(),
		logger:     log.WithEnclave(key.String()),
	}
}

func (s *Scheduler) env() *runtime.Env { return s.Enclave.Env }

type upstreamEntry struct {
	from    keys.EnclaveKey
	barrier *enclave.LogicalTimeBarrier
}

// sortedUpstreams returns this enclave's upstream barriers in a fixed order,
// so that which barrier blocks first is deterministic across runs.
func (s *Scheduler) sortedUpstreams() []upstreamEntry {
	out := make([]upstreamEntry, 0, len(s.Enclave.Upstream))
	for from, b := range s.Enclave.Upstream {
		out = append(out, upstreamEntry{from: from, barrier: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].from < out[j].from })
	return out
}

func (s *Scheduler) reactionSetFrom(leveled []runtime.LeveledReaction) *ReactionSet {
	rs := s.queue.NewReactionSet()
	for _, lr := range leveled {
		rs.Add(lr.Level, lr.Reaction)
	}
	return rs
}

// Startup implements §4.4.1: pushes one event per startup-reaction delay
// group, an optional timeout terminal event, releases the initial tag
// downstream, and captures start_time.
func (s *Scheduler) Startup() {
	for delay, leveled := range s.env().Graph.StartupReactions {
		s.queue.Push(tag.ZERO.Delay(delay), s.reactionSetFrom(leveled), false)
	}
	env := s.env()
	for _, ak := range env.Actions.Keys() {
		a := env.Actions.MustGet(ak)
		if a.Kind != types.ActionTimer {
			continue
		}
		first := tag.ZERO.Delay(a.Offset)
		a.Schedule(first, struct{}{})
		s.queue.Push(first, s.reactionSetFrom(env.Graph.ActionTriggers[ak]), false)
	}
	if s.Config.Timeout != nil {
		rs := s.reactionSetFrom(s.env().Graph.ShutdownReactions)
		s.queue.Push(tag.ZERO.Delay(*s.Config.Timeout), rs, true)
	}
	s.releaseTagDownstream(s.currentTag)
	s.startTime = time.Now()
}

func (s *Scheduler) releaseTagDownstream(t tag.Tag) {
	s.Enclave.Broadcast(enclave.Message{Type: enclave.MsgTagRelease, Tag: t, From: s.Key})
}

// drainAsync pulls every message currently waiting on the enclave's inbound
// channel into the event queue, without blocking.
func (s *Scheduler) drainAsync() {
	for {
		select {
		case msg := <-s.Enclave.Events:
			s.handleMessage(msg)
		default:
			return
		}
	}
}

func (s *Scheduler) handleMessage(msg enclave.Message) {
	env := s.env()
	switch msg.Type {
	case enclave.MsgLogical:
		action := env.Actions.MustGet(msg.Action)
		action.Schedule(msg.Tag, msg.Value)
		s.queue.Push(msg.Tag, s.reactionSetFrom(env.Graph.ActionTriggers[msg.Action]), false)
	case enclave.MsgPhysical:
		t := tag.Tag{Offset: msg.At.Sub(s.startTime)}
		if !t.After(s.currentTag) {
			t = s.currentTag.Delay(0)
		}
		action := env.Actions.MustGet(msg.Action)
		action.Schedule(t, msg.Value)
		s.queue.Push(t, s.reactionSetFrom(env.Graph.ActionTriggers[msg.Action]), false)
	case enclave.MsgPortDelivery:
		port := env.Ports.MustGet(msg.Port)
		port.Value = msg.Value
		port.Present = true
		s.queue.Push(msg.Tag, s.reactionSetFrom(env.Graph.PortTriggers[msg.Port]), false)
	case enclave.MsgTagRelease:
		if b, ok := s.Enclave.Upstream[msg.From]; ok {
			b.Release(msg.Tag)
		} else {
			s.logger.Warn().Str("from", msg.From.String()).Msg("tag release from unknown upstream")
		}
	case enclave.MsgTagReleaseProvisional:
		if b, ok := s.Enclave.Upstream[msg.From]; ok {
			b.ReleaseProvisional(msg.Tag)
		}
	case enclave.MsgShutdown:
		t := s.currentTag.Delay(msg.Delay)
		s.queue.Push(t, s.reactionSetFrom(env.Graph.ShutdownReactions), true)
	}
}

// Next implements §4.4.2. It returns false once the scheduler has processed
// its terminal event and should exit.
func (s *Scheduler) Next() bool {
	s.drainAsync()

	metrics.EventQueueDepth.WithLabelValues(s.Key.String()).Set(float64(s.queue.Len()))

	if s.queue.Len() > 0 {
		t, _ := s.queue.PeekTag()

		for _, up := range s.sortedUpstreams() {
			if up.barrier.CanAcquire(t) {
				continue
			}
			barrierTimer := metrics.NewTimer()
			s.Enclave.Send(up.from, enclave.Message{Type: enclave.MsgTagReleaseProvisional, Tag: t.Pre(up.barrier.Delay()), From: s.Key})
			select {
			case msg := <-s.Enclave.Events:
				barrierTimer.ObserveDuration(metrics.BarrierWaitDuration)
				s.handleMessage(msg)
				return true
			case <-s.Enclave.Done():
				return s.forceShutdown()
			}
		}

		if !s.Config.FastForward {
			deadline := s.startTime.Add(t.Offset)
			if wait := time.Until(deadline); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case msg := <-s.Enclave.Events:
					timer.Stop()
					s.handleMessage(msg)
					return true
				case <-s.Enclave.Done():
					timer.Stop()
					return s.forceShutdown()
				case <-timer.C:
				}
			}
		}

		event := s.queue.PopNext()
		s.ProcessTag(event.Tag, event.Reactions)
		s.queue.Release(event.Reactions)
		s.releaseTagDownstream(event.Tag)
		s.currentTag = event.Tag
		if event.Terminal {
			t := event.Tag
			s.shutdownTag = &t
			return false
		}
		return true
	}

	if s.Config.KeepAlive || (len(s.Enclave.Upstream) > 0 && !s.allUpstreamsTerminated()) {
		// Either this enclave never exits on its own, or an upstream may
		// still produce; block until it does, or until the upstream's exit
		// broadcast (a release at tag.FOREVER) arrives, or until a process-wide
		// keepalive trigger closes the enclave.
		select {
		case msg := <-s.Enclave.Events:
			s.handleMessage(msg)
			return true
		case <-s.Enclave.Done():
			return s.forceShutdown()
		}
	}

	select {
	case msg := <-s.Enclave.Events:
		s.handleMessage(msg)
	case <-s.Enclave.Done():
		return s.forceShutdown()
	default:
		s.queue.Push(s.currentTag.Delay(0), s.reactionSetFrom(s.env().Graph.ShutdownReactions), true)
	}
	return true
}

// forceShutdown enqueues the enclave's shutdown reactions for immediate
// processing, mirroring the empty-queue terminal path above. Used when the
// enclave's Done channel fires while a scheduler is parked in a blocking
// wait, so cancellation still runs shutdown reactions instead of dropping
// them.
func (s *Scheduler) forceShutdown() bool {
	s.queue.Push(s.currentTag.Delay(0), s.reactionSetFrom(s.env().Graph.ShutdownReactions), true)
	return true
}

// ProcessTag implements §4.4.3: level-ascending dispatch, with scheduled
// actions turned into future queue pushes and set ports fed forward into
// this same ReactionSet's next, still-unvisited levels.
func (s *Scheduler) ProcessTag(t tag.Tag, reactions *ReactionSet) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TagProcessingDuration)

	env := s.env()

	// Every action payload delivered for this tag is taken out of its
	// pending queue exactly once here, then shared read-only by every
	// reaction at every level that declared a trigger or use relation to
	// it — Take is destructive, so doing this per-reaction instead would
	// let only the first reader see the value.
	delivered := make(map[keys.RuntimeActionKey]any)
	for _, ak := range env.Actions.Keys() {
		a := env.Actions.MustGet(ak)
		if v, ok := a.Take(t); ok {
			delivered[ak] = v
		}
	}

	for i := 0; i < reactions.LevelCount(); i++ {
		level := reactions.LevelAt(i)
		batch := reactions.At(level)
		sort.Slice(batch, func(a, b int) bool {
			return env.Reactions.MustGet(batch[a]).Priority < env.Reactions.MustGet(batch[b]).Priority
		})

		results := make([]*runtime.Context, len(batch))
		var g errgroup.Group
		for idx, rk := range batch {
			idx, rk := idx, rk
			g.Go(func() error {
				ctx, err := s.dispatch(t, rk, delivered)
				results[idx] = ctx
				return err
			})
		}
		if err := g.Wait(); err != nil {
			s.logger.Error().Err(err).Msg("reaction invocation failed")
		}

		for _, ctx := range results {
			if ctx != nil {
				s.collectResult(reactions, ctx)
			}
		}
	}

	for ak := range delivered {
		a := env.Actions.MustGet(ak)
		if a.Kind == types.ActionTimer && a.Period > 0 {
			next := t.Delay(a.Period)
			a.Schedule(next, struct{}{})
			s.queue.Push(next, s.reactionSetFrom(env.Graph.ActionTriggers[ak]), false)
		}
	}

	env.ResetPorts()
}

func (s *Scheduler) collectResult(reactions *ReactionSet, ctx *runtime.Context) {
	env := s.env()
	result := ctx.Result()

	for _, sa := range result.ScheduledActions {
		action := env.Actions.MustGet(sa.Action)
		action.Schedule(sa.Tag, sa.Value)
		s.queue.Push(sa.Tag, s.reactionSetFrom(env.Graph.ActionTriggers[sa.Action]), false)
	}
	if result.ShutdownTag != nil {
		if s.shutdownTag == nil || result.ShutdownTag.Before(*s.shutdownTag) {
			s.queue.Push(*result.ShutdownTag, s.reactionSetFrom(env.Graph.ShutdownReactions), true)
		}
	}
	for _, pk := range result.SetPorts {
		for _, lr := range env.Graph.PortTriggers[pk] {
			reactions.Add(lr.Level, lr.Reaction)
		}
		for _, link := range s.Enclave.OutLinks {
			if link.HomePort != pk {
				continue
			}
			port := env.Ports.MustGet(pk)
			deliverTag := ctx.GetTag().Delay(link.Delay)
			s.Enclave.Send(link.To, enclave.Message{Type: enclave.MsgPortDelivery, Tag: deliverTag, Port: link.DownPort, Value: port.Value, From: s.Key})
		}
	}
}

// dispatch builds one reaction's argument vectors and runs its body in a
// fresh Context, so concurrent dispatch of same-level reactions never
// shares mutable state.
func (s *Scheduler) dispatch(t tag.Tag, rk keys.RuntimeReactionKey, delivered map[keys.RuntimeActionKey]any) (ctx *runtime.Context, err error) {
	env := s.env()
	rr := env.Reactions.MustGet(rk)
	reactor := env.Reactors.MustGet(rr.Reactor)

	ctx = runtime.NewContext()
	ctx.Reset(t, s.startTime, delivered)
	metrics.ReactionsExecutedTotal.WithLabelValues(reactor.Name, strconv.Itoa(rr.Level)).Inc()

	if rr.Deadline != nil && !s.startTime.IsZero() {
		lag := time.Since(s.startTime.Add(t.Offset))
		if lag > rr.Deadline.Lag {
			metrics.DeadlinesMissedTotal.WithLabelValues(reactor.Name).Inc()
			if rr.Deadline.Handler(ctx) == types.DeadlineStop {
				return ctx, nil
			}
		}
	}

	usePorts := make([]runtime.PortRef, len(rr.UsePorts))
	for i, pk := range rr.UsePorts {
		usePorts[i] = runtime.NewPortRef(env, pk)
	}
	effectPorts := make([]runtime.PortRef, len(rr.EffectPorts))
	for i, pk := range rr.EffectPorts {
		effectPorts[i] = runtime.NewPortRef(env, pk)
	}
	actionRefs := make([]runtime.ActionRef, len(rr.Actions))
	for i, ak := range rr.Actions {
		actionRefs[i] = runtime.NewActionRef(env, ak, ctx)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in reaction %q: %v", rr.Name, r)
			}
		}()
		rr.Body(ctx, reactor.State, usePorts, effectPorts, actionRefs)
	}()
	return ctx, err
}

// allUpstreamsTerminated reports whether every upstream barrier has been
// released all the way to tag.FOREVER, the signal EventLoop broadcasts on
// exit.
func (s *Scheduler) allUpstreamsTerminated() bool {
	for _, b := range s.Enclave.Upstream {
		if b.ReleasedTag().Before(tag.FOREVER) {
			return false
		}
	}
	return true
}

// EventLoop runs Startup then Next repeatedly until it returns false, then
// tells every downstream enclave it will never produce again.
func (s *Scheduler) EventLoop() {
	s.Startup()
	for s.Next() {
	}
	s.releaseTagDownstream(tag.FOREVER)
}

// IntoEnv returns the enclave's Env, for inspection after EventLoop exits.
func (s *Scheduler) IntoEnv() *runtime.Env { return s.env() }

// ExecuteEnclaves spawns one Scheduler per enclave and runs each to
// completion on its own goroutine, returning every enclave's Env once all
// have exited.
func ExecuteEnclaves(enclaves map[keys.EnclaveKey]*enclave.Enclave, config Config) map[keys.EnclaveKey]*runtime.Env {
	results := make(map[keys.EnclaveKey]*runtime.Env, len(enclaves))
	type outcome struct {
		key keys.EnclaveKey
		env *runtime.Env
	}
	out := make(chan outcome, len(enclaves))
	for key, enc := range enclaves {
		key, enc := key, enc
		go func() {
			metrics.EnclavesRunning.Inc()
			defer metrics.EnclavesRunning.Dec()
			sched := New(key, enc, config)
			sched.EventLoop()
			out <- outcome{key: key, env: sched.IntoEnv()}
		}()
	}
	for range enclaves {
		o := <-out
		results[o.key] = o.env
	}
	return results
}
