package app

import (
	"context"

	"go.trai.ch/ims/internal/adapters/checkpoint"
	"go.trai.ch/ims/internal/adapters/logstore"
	"go.trai.ch/ims/internal/adapters/swarm"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/ims/internal/engine/prefetch"
	"go.trai.ch/ims/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// runtime holds the collaborators that depend on the loaded configuration.
type runtime struct {
	cfg        *domain.Config
	store      *logstore.Store
	checkpoint *checkpoint.File
	status     *domain.SyncStatus
	swarm      *swarm.Swarm
	replica    *prefetch.Replica
	resolver   *resolver.Resolver
	handler    *prefetch.Handler
	logger     ports.Logger

	// ctx bounds peer streams; cancel ends them on close.
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) open(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	store, err := logstore.Open(ctx, domain.LogPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}

	sw := swarm.New(a.logger, store)
	replica := prefetch.NewReplica(store, sw, a.logger, prefetch.DefaultFetchTimeout)
	res := resolver.New(replica, prefetch.NewBroadcaster(sw, a.logger), a.tracer)
	handler := prefetch.NewHandler(res, replica, replica, a.logger, cfg.PrefetchCap)
	sw.Handle(prefetch.ResolveChannel, handler)
	sw.Handle(prefetch.PositionsChannel, handler)
	sw.Handle(prefetch.GetChannel, replica)
	sw.Handle(prefetch.EntriesChannel, replica)

	a.logger.Debug("index opened",
		"data_dir", cfg.DataDir,
		"length", store.Version(),
		"contiguous", store.Contiguous(),
		"replica", store.IsReplica(),
	)

	peerCtx, cancel := context.WithCancel(ctx)
	return &runtime{
		cfg:        cfg,
		store:      store,
		checkpoint: checkpoint.NewFile(domain.SeqPath(cfg.DataDir)),
		status:     domain.NewSyncStatus(),
		swarm:      sw,
		replica:    replica,
		resolver:   res,
		handler:    handler,
		logger:     a.logger,
		ctx:        peerCtx,
		cancel:     cancel,
	}, nil
}

// connect dials every configured peer. Unreachable peers are skipped.
func (rt *runtime) connect() {
	for _, addr := range rt.cfg.Peers {
		if err := rt.swarm.Connect(rt.ctx, addr); err != nil {
			rt.logger.Warn("peer unreachable", "addr", addr, "error", err.Error())
		}
	}
}

func (rt *runtime) close() {
	rt.cancel()
	rt.swarm.Wait()
	rt.handler.Wait()
	rt.replica.Wait()
	_ = rt.store.Close()
}
