package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webriots/green"
	"github.com/webriots/green/coop"
	"github.com/webriots/green/internal/config"
	"github.com/webriots/green/internal/echodb"
	"go.uber.org/zap"
)

const versionQuery = "SELECT version()"

type workload struct {
	cfg  config.Config
	reg  *green.Registry
	addr string
	log  *zap.Logger

	done atomic.Int64
}

// pooled is a connection shared by several clients. Exactly one of
// the two locks is used, depending on how clients are scheduled.
type pooled struct {
	conn *echodb.Conn
	cmu  coop.Mutex
	smu  sync.Mutex
}

func (w *workload) run(ctx context.Context) error {
	pool, err := w.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range pool {
			_ = p.conn.Close()
		}
	}()

	ctx = green.WithRegistry(ctx, w.reg)
	start := time.Now()

	if w.cfg.Scheduler.Mode == config.ModeCoop {
		err = w.runCoop(ctx, pool)
	} else {
		err = w.runGoroutines(ctx, pool)
	}

	w.log.Info("workload finished",
		zap.String("mode", w.cfg.Scheduler.Mode),
		zap.Int64("queries", w.done.Load()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

func (w *workload) dial(ctx context.Context) ([]*pooled, error) {
	pool := make([]*pooled, 0, w.cfg.Demo.Connections)
	for range w.cfg.Demo.Connections {
		conn, err := echodb.Dial(ctx, w.addr)
		if err != nil {
			for _, p := range pool {
				_ = p.conn.Close()
			}
			return nil, err
		}
		pool = append(pool, &pooled{conn: conn})
	}
	return pool, nil
}

// runCoop multiplexes every client onto one goroutine. Clients share
// the version lookup through Task.Do.
func (w *workload) runCoop(ctx context.Context, pool []*pooled) error {
	sched := coop.New(
		&coop.PollReactor{
			BatchSize: w.cfg.Scheduler.BatchSize,
			Timeout:   w.cfg.Scheduler.PollTimeout(),
		},
		coop.WithConcurrency(w.cfg.Scheduler.Concurrency),
	)

	var err error
	sched.Run(func(ctx context.Context, task *coop.Task) {
		g := task.Group()
		for i := range w.cfg.Demo.Clients {
			g.Go(func(ctx context.Context) error {
				t := coop.MustTaskFromContext(ctx)
				exec := func(p *pooled, q string) (string, error) {
					p.cmu.Lock(t)
					defer p.cmu.Unlock()
					return echodb.Exec(ctx, p.conn, q)
				}

				v, err, _ := t.Do(versionQuery, func() (any, error) {
					return exec(pool[i%len(pool)], versionQuery)
				})
				if err != nil {
					return err
				}
				w.log.Debug("server version", zap.Int("client", i), zap.Any("version", v))

				return w.client(i, pool, exec)
			})
		}
		err = g.Wait(task)
	}).Resume(ctx)

	return err
}

// runGoroutines runs one goroutine per client, each blocked in the
// select handler or the networking layer while waiting.
func (w *workload) runGoroutines(ctx context.Context, pool []*pooled) error {
	exec := func(p *pooled, q string) (string, error) {
		p.smu.Lock()
		defer p.smu.Unlock()
		return echodb.Exec(ctx, p.conn, q)
	}

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for i := range w.cfg.Demo.Clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.client(i, pool, exec); err != nil {
				once.Do(func() { first = err })
			}
		}()
	}
	wg.Wait()
	return first
}

func (w *workload) client(i int, pool []*pooled, exec func(*pooled, string) (string, error)) error {
	for q := range w.cfg.Demo.Queries {
		query := fmt.Sprintf("SELECT %d AS client, %d AS query", i, q)
		res, err := exec(pool[(i+q)%len(pool)], query)
		if err != nil {
			return fmt.Errorf("client %d: %w", i, err)
		}
		if res != query {
			return fmt.Errorf("client %d: unexpected answer %q", i, res)
		}
		w.done.Add(1)
	}
	return nil
}
