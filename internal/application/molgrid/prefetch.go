package molgrid

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/intelligence/augment"
	"github.com/turtacn/molgrid/pkg/errors"
)

// item is the host-side input of one example.
type item struct {
	mol   *molecule.MolInfo
	draw  augment.Draw
	label float32
}

// batch is everything Forward needs besides the rasterizer. A failed
// preparation carries err and no usable items.
type batch struct {
	id      string
	items   []item
	actives int
	decoys  int
	err     error
}

// prepare selects the next examples, resolves their MolInfo and draws the
// augmentation. Only one goroutine runs it at a time: the prefetcher when
// enabled, otherwise Forward under l.mu.
func (l *Layer) prepare(ctx context.Context) *batch {
	b := &batch{id: uuid.NewString(), items: make([]item, l.opts.BatchSize)}
	for i := range b.items {
		ex := l.stream.Next()
		rec, err := l.cache.Get(ctx, ex.Receptor, molecule.Receptor)
		if err != nil {
			b.err = errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("receptor %s", ex.Receptor))
			return b
		}
		lig, err := l.cache.Get(ctx, ex.Ligand, molecule.Ligand)
		if err != nil {
			b.err = errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("ligand %s", ex.Ligand))
			return b
		}
		b.items[i] = item{mol: rec.Append(lig), draw: l.policy.Draw(), label: ex.Label}
		if ex.Active() {
			b.actives++
		} else {
			b.decoys++
		}
	}
	return b
}

// prefetcher prepares batch k+1 on its own goroutine while batch k is
// rasterized. The channel holds one finished batch.
type prefetcher struct {
	ch     chan *batch
	cancel context.CancelFunc
	done   chan struct{}
	// err is written before done is closed.
	err error
}

func startPrefetcher(prepare func(context.Context) *batch, obs Observer) *prefetcher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &prefetcher{
		ch:     make(chan *batch, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		for {
			b := prepare(ctx)
			select {
			case p.ch <- b:
				obs.SetPrefetchDepth(len(p.ch))
			case <-ctx.Done():
				p.err = errors.New(errors.ErrCodeClosed, "prefetcher stopped")
				return
			}
			if b.err != nil {
				p.err = b.err
				return
			}
		}
	}()
	return p
}

func (p *prefetcher) next(ctx context.Context) (*batch, error) {
	select {
	case b := <-p.ch:
		return b, nil
	case <-p.done:
		select {
		case b := <-p.ch:
			return b, nil
		default:
		}
		return nil, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *prefetcher) stop() {
	p.cancel()
	<-p.done
}

//Personal.AI order the ending
