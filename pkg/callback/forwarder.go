// Package callback forwards Ansible playbook events to an axon socket.
package callback

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/Wiredcraft/ansible-addons/pkg/axon"
	"github.com/go-logr/logr"
)

type Level string

const (
	LevelNotification Level = "notification"
	LevelWarning      Level = "warning"
	LevelError        Level = "error"
	LevelInformation  Level = "information"
)

const (
	EventPlaybookOnStart     = "playbook_on_start"
	EventRunnerOnOK          = "runner_on_ok"
	EventRunnerOnFailed      = "runner_on_failed"
	EventRunnerOnError       = "runner_on_error"
	EventRunnerOnSkipped     = "runner_on_skipped"
	EventRunnerOnUnreachable = "runner_on_unreachable"
	EventPlaybookOnStats     = "playbook_on_stats"
	EventPlaybookOnNotify    = "playbook_on_notify"
)

// DefaultTopic is the topic every event is pushed under.
const DefaultTopic = "ansible"

// SpaceEnv names the environment variable holding the devops space
// that events are attributed to.
const SpaceEnv = "ANSIBLE_DEVOPS_SPACE"

// Forwarder turns playbook callbacks into events and pushes them.
// Failing to push an event is logged and otherwise ignored so that
// the playbook itself is never interrupted.
type Forwarder struct {
	sender axon.Sender
	space  string
	topic  string
}

func NewForwarder(sender axon.Sender, space string) *Forwarder {
	if sender == nil {
		sender = axon.Noop{}
	}
	return &Forwarder{
		sender: sender,
		space:  space,
		topic:  DefaultTopic,
	}
}

func (f *Forwarder) record(ctx context.Context, ev map[string]any) {
	log := logr.FromContextOrDiscard(ctx).WithValues("event", ev["event"])

	ev["space"] = f.space
	if err := f.sender.Send(ctx, f.topic, ev); err != nil {
		log.Error(err, "playbook callback can not send axon message")
		return
	}
	log.V(1).Info("forwarded event")
}

// event builds the base of an event. Fields of res are merged over
// the base so that a result can override them.
func event(level Level, name, host string, res map[string]any) map[string]any {
	ev := map[string]any{
		"type":  string(level),
		"event": name,
	}
	if host != "" {
		ev["source"] = host
	}
	maps.Copy(ev, res)
	return ev
}

func (f *Forwarder) PlaybookOnStart(ctx context.Context) {
	f.record(ctx, event(LevelNotification, EventPlaybookOnStart, "", map[string]any{"msg": "Start playbook"}))
}

func (f *Forwarder) RunnerOnOK(ctx context.Context, host string, res map[string]any) {
	f.record(ctx, event(LevelNotification, EventRunnerOnOK, host, res))
}

// RunnerOnFailed does nothing when the task ignores errors.
func (f *Forwarder) RunnerOnFailed(ctx context.Context, host string, res map[string]any, ignoreErrors bool) {
	if ignoreErrors {
		logr.FromContextOrDiscard(ctx).V(1).Info("skipping ignored failure", "host", host)
		return
	}
	f.record(ctx, event(LevelError, EventRunnerOnFailed, host, res))
}

func (f *Forwarder) RunnerOnError(ctx context.Context, host, msg string) {
	f.record(ctx, event(LevelError, EventRunnerOnError, host, map[string]any{"msg": msg}))
}

func (f *Forwarder) RunnerOnSkipped(ctx context.Context, host string, item any) {
	f.record(ctx, event(LevelNotification, EventRunnerOnSkipped, host, map[string]any{"item": item}))
}

func (f *Forwarder) RunnerOnUnreachable(ctx context.Context, host string, res map[string]any) {
	f.record(ctx, event(LevelError, EventRunnerOnUnreachable, host, res))
}

// PlaybookOnStats sends one event per processed host, in host order.
func (f *Forwarder) PlaybookOnStats(ctx context.Context, stats map[string]any) {
	for _, host := range slices.Sorted(maps.Keys(stats)) {
		f.record(ctx, event(LevelNotification, EventPlaybookOnStats, host, map[string]any{"stats": stats[host]}))
	}
}

func (f *Forwarder) PlaybookOnNotify(ctx context.Context, host, handler string) {
	f.record(ctx, event(LevelNotification, EventPlaybookOnNotify, host, map[string]any{"handler": handler}))
}

// Input is a callback invocation described by its parts, as received
// from the command line.
type Input struct {
	Source       string
	IgnoreErrors bool
	Msg          string
	Handler      string
	// Result is the task result, or the per-host summaries
	// for playbook_on_stats.
	Result map[string]any
}

// Dispatch calls the callback for the named event. Only an unknown
// event name is an error.
func (f *Forwarder) Dispatch(ctx context.Context, name string, in Input) error {
	switch name {
	case EventPlaybookOnStart:
		f.PlaybookOnStart(ctx)
	case EventRunnerOnOK:
		f.RunnerOnOK(ctx, in.Source, in.Result)
	case EventRunnerOnFailed:
		f.RunnerOnFailed(ctx, in.Source, in.Result, in.IgnoreErrors)
	case EventRunnerOnError:
		f.RunnerOnError(ctx, in.Source, in.Msg)
	case EventRunnerOnSkipped:
		f.RunnerOnSkipped(ctx, in.Source, in.Result["item"])
	case EventRunnerOnUnreachable:
		f.RunnerOnUnreachable(ctx, in.Source, in.Result)
	case EventPlaybookOnStats:
		f.PlaybookOnStats(ctx, in.Result)
	case EventPlaybookOnNotify:
		f.PlaybookOnNotify(ctx, in.Source, in.Handler)
	default:
		return fmt.Errorf("unknown event: %s", name)
	}
	return nil
}
