package runtime

import (
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/tag"
)

// scheduledAction is one action event buffered by a reaction body, to be
// turned into a real event push once the body returns.
type scheduledAction struct {
	Action keys.RuntimeActionKey
	Tag    tag.Tag
	Value  any
}

// TriggerResult is everything a reaction invocation produced, collected by
// the scheduler after the body returns.
type TriggerResult struct {
	ScheduledActions []scheduledAction
	ShutdownTag      *tag.Tag
	SetPorts         []keys.RuntimePortKey
}

// Context is the per-invocation API surface handed to every reaction body.
// The scheduler allocates a fresh Context for every invocation and Resets it
// once before calling the body.
type Context struct {
	currentTag  tag.Tag
	startTime   time.Time
	actionValues map[keys.RuntimeActionKey]any

	result TriggerResult
}

// NewContext returns a Context ready for its first invocation.
func NewContext() *Context {
	return &Context{actionValues: make(map[keys.RuntimeActionKey]any)}
}

// Reset prepares ctx for the next reaction invocation at tag t, with
// actionValues holding the payload of every action delivered at t (the
// scheduler passes one map shared by all reactions of the tag).
func (c *Context) Reset(t tag.Tag, startTime time.Time, actionValues map[keys.RuntimeActionKey]any) {
	c.currentTag = t
	c.startTime = startTime
	c.actionValues = actionValues
	c.result.ScheduledActions = c.result.ScheduledActions[:0]
	c.result.ShutdownTag = nil
	c.result.SetPorts = c.result.SetPorts[:0]
}

// GetTag returns the logical tag of the in-progress invocation.
func (c *Context) GetTag() tag.Tag { return c.currentTag }

// GetLogicalTime returns the logical offset of the in-progress invocation.
func (c *Context) GetLogicalTime() time.Duration { return c.currentTag.Offset }

// GetPhysicalTime returns wall-clock now.
func (c *Context) GetPhysicalTime() time.Time { return time.Now() }

// ScheduleShutdown requests a terminal event at currentTag.Delay(delay),
// defaulting delay to zero. If called more than once in the same invocation,
// the earliest requested tag wins.
func (c *Context) ScheduleShutdown(delay *time.Duration) {
	d := time.Duration(0)
	if delay != nil {
		d = *delay
	}
	t := c.currentTag.Delay(d)
	if c.result.ShutdownTag == nil || t.Before(*c.result.ShutdownTag) {
		c.result.ShutdownTag = &t
	}
}

// Result returns the buffered outcome of the in-progress invocation. Valid
// only until the next Reset.
func (c *Context) Result() *TriggerResult { return &c.result }

func (c *Context) recordSetPort(k keys.RuntimePortKey) {
	c.result.SetPorts = append(c.result.SetPorts, k)
}

// actionTag computes the logical tag a schedule call against action key
// would produce, without buffering anything.
func (c *Context) actionTag(env *Env, key keys.RuntimeActionKey, delay *time.Duration) tag.Tag {
	a := env.Actions.MustGet(key)
	d := a.MinDelay
	if delay != nil {
		d = *delay
	}
	if a.Kind == "standard" && !a.IsLogical {
		return tag.Tag{Offset: time.Since(c.startTime) + d, Microstep: 0}
	}
	return c.currentTag.Delay(d)
}

func (c *Context) scheduleAction(env *Env, key keys.RuntimeActionKey, value any, delay *time.Duration) {
	t := c.actionTag(env, key, delay)
	c.result.ScheduledActions = append(c.result.ScheduledActions, scheduledAction{Action: key, Tag: t, Value: value})
}
