// Package runtime replays scenario files against an engine.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/aretw0/ivy"
	"github.com/aretw0/ivy/internal/dto"
	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/derive"
	"github.com/aretw0/ivy/pkg/live"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
)

// Frame is reported after setup (Step -1) and after every applied step.
type Frame struct {
	Step int
	Op   string
	// Markdown is the bound tree, empty when the render host keeps no tree.
	Markdown string
}

// Player holds the observables of one scenario.
type Player struct {
	engine    *ivy.Engine
	scenario  *dto.Scenario
	logger    *slog.Logger
	records   map[string]*reactive.Record
	sequences map[string]*reactive.Sequence
	root      *live.Node
	release   []watch.Disposer
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLogger sets the player logger.
func WithLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		p.logger = logger
	}
}

// Load opens every observable of sc, seeds the empty ones with their declared
// contents, starts the derivations and binds the tree. Observables that already hold
// data, e.g. restored from a datastore, keep it.
func Load(ctx context.Context, eng *ivy.Engine, sc *dto.Scenario, opts ...PlayerOption) (*Player, error) {
	p := &Player{
		engine:    eng,
		scenario:  sc,
		logger:    logging.NewNop(),
		records:   make(map[string]*reactive.Record),
		sequences: make(map[string]*reactive.Sequence),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, id := range slices.Sorted(maps.Keys(sc.Records)) {
		rec, err := eng.Record(ctx, sc.Shard, id)
		if err != nil {
			return nil, err
		}
		p.records[id] = rec
	}
	for _, id := range slices.Sorted(maps.Keys(sc.Sequences)) {
		seq, err := eng.Sequence(ctx, sc.Shard, id)
		if err != nil {
			return nil, err
		}
		p.sequences[id] = seq
	}

	err := eng.Mutate(ctx, sc.Shard, func(context.Context) error {
		if err := p.seed(); err != nil {
			return err
		}
		return p.derive()
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	if sc.Tree != nil {
		if err := p.bind(sc.Tree); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *Player) seed() error {
	for id, rec := range p.records {
		if len(rec.Keys()) > 0 {
			p.logger.Debug("record restored", "record", id, "keys", len(rec.Keys()))
			continue
		}
		values := p.scenario.Records[id]
		for _, key := range slices.Sorted(maps.Keys(values)) {
			if err := rec.Write(key, values[key]); err != nil {
				return err
			}
		}
	}
	for id, seq := range p.sequences {
		if seq.Len() > 0 {
			p.logger.Debug("sequence restored", "sequence", id, "len", seq.Len())
			continue
		}
		for _, v := range p.scenario.Sequences[id] {
			if err := seq.Append(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Player) derive() error {
	for _, d := range p.scenario.Derived {
		rec := p.records[d.Record]
		if rec == nil {
			return fmt.Errorf("derived %s: unknown record '%s'", d.Key, d.Record)
		}
		v, err := derive.Expr(rec, d.Expr)
		if err != nil {
			return err
		}
		p.release = append(p.release, v.Dispose)
		stop, err := derive.Into(v, rec, d.Key)
		if err != nil {
			return err
		}
		p.release = append(p.release, stop)
	}
	return nil
}

func (p *Player) bind(t *dto.Tree) error {
	var attrs live.Attributes = live.Static{}
	if t.Attrs != "" {
		rec, ok := p.records[t.Attrs]
		if !ok {
			return fmt.Errorf("tree: unknown attrs record '%s'", t.Attrs)
		}
		attrs = rec
	}

	sources := make([]reactive.Source, 0, len(t.Children))
	for _, id := range t.Children {
		seq, ok := p.sequences[id]
		if !ok {
			return fmt.Errorf("tree: unknown children sequence '%s'", id)
		}
		sources = append(sources, seq)
	}

	return p.engine.View(func() error {
		var children reactive.Source = derive.Slice()
		switch len(sources) {
		case 0:
		case 1:
			children = sources[0]
		default:
			c, err := derive.Concat(sources...)
			if err != nil {
				return err
			}
			p.release = append(p.release, c.Dispose)
			children = c
		}
		node, err := p.engine.Binder().CreateLiveNode(t.Tag, attrs, children)
		if err != nil {
			return err
		}
		p.root = node
		return nil
	})
}

// Root returns the bound tree, nil when the scenario declares none.
func (p *Player) Root() *live.Node {
	return p.root
}

// Record returns a scenario record by id.
func (p *Player) Record(id string) *reactive.Record {
	return p.records[id]
}

// Sequence returns a scenario sequence by id.
func (p *Player) Sequence(id string) *reactive.Sequence {
	return p.sequences[id]
}

// Apply runs step i of the scenario as one mutation.
func (p *Player) Apply(ctx context.Context, i int) error {
	st := p.scenario.Steps[i]
	err := p.engine.Mutate(ctx, p.scenario.Shard, func(context.Context) error {
		switch st.Op {
		case dto.OpWrite:
			rec, ok := p.records[st.Record]
			if !ok {
				return fmt.Errorf("unknown record '%s'", st.Record)
			}
			return rec.Write(st.Key, st.Value)
		case dto.OpSet, dto.OpInsert, dto.OpAppend, dto.OpRemove:
			seq, ok := p.sequences[st.Sequence]
			if !ok {
				return fmt.Errorf("unknown sequence '%s'", st.Sequence)
			}
			switch st.Op {
			case dto.OpSet:
				return seq.Set(st.Offset, st.Value)
			case dto.OpInsert:
				return seq.Insert(st.Offset, st.Value)
			case dto.OpAppend:
				return seq.Append(st.Value)
			default:
				return seq.Remove(st.Offset)
			}
		default:
			return fmt.Errorf("unknown op '%s'", st.Op)
		}
	})
	if err != nil {
		return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
	}
	return nil
}

// Frame renders the current tree.
func (p *Player) Frame(step int, op string) Frame {
	f := Frame{Step: step, Op: op}
	if p.root != nil {
		_ = p.engine.View(func() error {
			f.Markdown = recorder.Markdown(p.root.Handle())
			return nil
		})
	}
	return f
}

// Play reports the initial frame, then applies every step and reports its frame.
// It stops at the first failing step or when ctx is done.
func (p *Player) Play(ctx context.Context, observe func(Frame)) error {
	observe(p.Frame(-1, "load"))
	for i, st := range p.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Apply(ctx, i); err != nil {
			return err
		}
		p.logger.Debug("step applied", "step", i, "op", st.Op)
		observe(p.Frame(i, st.Op))
	}
	return nil
}

// Close disposes the tree and stops every derivation.
func (p *Player) Close() {
	_ = p.engine.View(func() error {
		if p.root != nil {
			p.root.Dispose()
		}
		watch.All(p.release...)()
		p.release = nil
		return nil
	})
}
