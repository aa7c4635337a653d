package services

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"kestrel-hq/kestrel/pkg/completion"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/index"
	"kestrel-hq/kestrel/pkg/model"
	"kestrel-hq/kestrel/pkg/providerfactory"
	"kestrel-hq/kestrel/pkg/providers"
)

// Capabilities records which optional subsystems resolved.
type Capabilities struct {
	Completion bool
	Chat       bool
	Search     bool
}

// ResolvedServices holds the subsystems built at startup. Nil fields are
// absent. The value is read-only once Assemble returns.
type ResolvedServices struct {
	Embedding  providers.Embedding
	Index      *index.ReaderProvider
	CodeSearch *index.CodeSearch
	DocSearch  *index.DocSearch
	Completion *completion.Service
	Chat       providers.Chat

	// Events is always set; it discards events when recording is disabled.
	Events events.Logger

	// PromptInfo is set only when completion resolved.
	PromptInfo *model.PromptInfo

	owned []providers.Provider
}

// Capabilities returns the set of optional subsystems that are present.
func (rs *ResolvedServices) Capabilities() Capabilities {
	if rs == nil {
		return Capabilities{}
	}
	return Capabilities{
		Completion: rs.Completion != nil,
		Chat:       rs.Chat != nil,
		Search:     rs.CodeSearch != nil,
	}
}

// Close stops the index watcher and closes bindings that no manager owns.
func (rs *ResolvedServices) Close() error {
	if rs == nil {
		return nil
	}
	var errs []error
	if rs.Index != nil {
		errs = append(errs, rs.Index.Close())
	}
	for _, p := range rs.owned {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Dependencies are the long-lived collaborators Assemble wires into the
// services it builds.
type Dependencies struct {
	// Events receives completion events. Nil discards them.
	Events events.Logger

	// Manager takes ownership of resolved bindings. When nil,
	// ResolvedServices.Close closes them instead.
	Manager *providerfactory.Manager

	// CompletionObserver is notified of every completion, e.g. for metrics.
	CompletionObserver completion.Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Assemble resolves the model roles in cfg and builds the services that
// depend on them. It returns an error, and no services, when any configured
// role fails to resolve.
func Assemble(ctx context.Context, cfg *config.Config, deps Dependencies) (*ResolvedServices, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "services")

	sink := deps.Events
	if sink == nil {
		sink = events.NoopLogger{}
	}

	rs := &ResolvedServices{Events: sink}

	// Stage 1: embedding.
	embedding, err := model.LoadEmbedding(ctx, cfg.Model.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		rs.Embedding = embedding
		rs.track(deps.Manager, embedding)
	}

	// Stage 2: search over the shared index reader.
	if rs.Embedding != nil {
		rs.Index = index.NewReaderProvider(cfg.Index, rs.Embedding)
		rs.CodeSearch = index.NewCodeSearch(rs.Index)
		rs.DocSearch = index.NewDocSearch(rs.Index)
		logger.Info("code search enabled", "index_dir", cfg.Index.Dir)
	}

	// Stage 3: completion and chat resolve concurrently.
	var (
		completionModel providers.Completion
		promptInfo      *model.PromptInfo
		chat            providers.Chat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		completionModel, promptInfo, err = model.LoadCompletion(gctx, cfg.Model.Completion)
		return err
	})
	g.Go(func() error {
		var err error
		chat, err = model.LoadChat(gctx, cfg.Model.Chat)
		return err
	})
	if err := g.Wait(); err != nil {
		for _, p := range []providers.Provider{completionModel, chat} {
			if p != nil {
				p.Close()
			}
		}
		rs.abort(deps.Manager)
		return nil, err
	}

	if completionModel != nil {
		opts := []completion.Option{}
		if rs.CodeSearch != nil {
			opts = append(opts, completion.WithCodeSearch(rs.CodeSearch))
		}
		if promptInfo != nil && promptInfo.PromptTemplate != nil {
			opts = append(opts, completion.WithPromptTemplate(*promptInfo.PromptTemplate))
		}
		if deps.CompletionObserver != nil {
			opts = append(opts, completion.WithObserver(deps.CompletionObserver))
		}

		rs.Completion = completion.NewService(completionModel, sink, cfg.Completion, opts...)
		rs.PromptInfo = promptInfo
		rs.track(deps.Manager, completionModel)
	}
	if chat != nil {
		rs.Chat = chat
		rs.track(deps.Manager, chat)
	}

	caps := rs.Capabilities()
	logger.Info("services assembled",
		"completion", caps.Completion,
		"chat", caps.Chat,
		"search", caps.Search,
	)
	return rs, nil
}

func (rs *ResolvedServices) track(m *providerfactory.Manager, p providers.Provider) {
	if m != nil {
		m.Track(p)
		return
	}
	rs.owned = append(rs.owned, p)
}

// abort releases whatever was built before a later stage failed.
func (rs *ResolvedServices) abort(m *providerfactory.Manager) {
	if rs.Embedding != nil && m != nil {
		_ = m.Remove(rs.Embedding.GetName())
	}
	_ = rs.Close()
}
