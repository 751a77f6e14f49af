// Package watcher drives automatic round closing: while a round is open it
// polls the block oracle for the target height and closes the round as soon
// as the block is mined. It runs independently of any client connection.
package watcher

import (
	"context"
	"time"

	"github.com/arukh89/bitcoin-block/internal/game"

	"github.com/sirupsen/logrus"
)

type Watcher struct {
	svc      *game.Service
	blocks   game.BlockSource
	interval time.Duration
	log      *logrus.Logger
}

func New(svc *game.Service, blocks game.BlockSource, interval time.Duration, log *logrus.Logger) *Watcher {
	return &Watcher{svc: svc, blocks: blocks, interval: interval, log: log}
}

// Run polls on a fixed interval until ctx is cancelled. Because each tick
// reads the currently open round from the store, the loop survives restarts,
// idles when no round is open, and self-terminates its interest in a round
// the moment it leaves open by any other path.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.checkOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

func (w *Watcher) checkOnce(ctx context.Context) {
	round, err := w.svc.CurrentRound(ctx)
	if err != nil {
		w.log.WithError(err).Warn("watcher: failed to load open round")
		return
	}
	if round == nil {
		return
	}

	_, found, err := w.blocks.HashAtHeight(ctx, round.BlockHeight)
	if err != nil {
		// Transient lookup failure, retry next interval.
		w.log.WithError(err).WithField("height", round.BlockHeight).Debug("watcher: oracle lookup failed")
		return
	}
	if !found {
		w.log.WithField("height", round.BlockHeight).Debug("watcher: target block not mined yet")
		return
	}

	// Re-check before acting on a stale success: the round may have been
	// closed manually between the lookup and now. The close itself is a
	// compare-and-set keyed on this round id, so racing the manual path
	// yields exactly one transition.
	current, err := w.svc.CurrentRound(ctx)
	if err != nil || current == nil || current.ID != round.ID {
		return
	}

	closed, err := w.svc.CloseRound(ctx, round.ID)
	if err != nil {
		w.log.WithError(err).WithField("round", round.ID).Warn("watcher: auto-close failed")
		return
	}
	if closed {
		w.log.WithFields(logrus.Fields{
			"round":  round.ID,
			"height": round.BlockHeight,
		}).Info("watcher: target block mined, round auto-closed")
	}
}
