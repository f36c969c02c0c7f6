// Package dependency wires lily's services using go.uber.org/dig.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/dig"

	"github.com/projectlily/lily/internal/agent"
	"github.com/projectlily/lily/internal/channels"
	"github.com/projectlily/lily/internal/config"
	agentcfg "github.com/projectlily/lily/internal/config/agent"
	memorycfg "github.com/projectlily/lily/internal/config/memory"
	"github.com/projectlily/lily/internal/cron"
	"github.com/projectlily/lily/internal/heartbeat"
	"github.com/projectlily/lily/internal/memory"
	"github.com/projectlily/lily/internal/providers"
	"github.com/projectlily/lily/internal/schema"
)

// Options adjust the graph for one command.
type Options struct {
	// PersonaPath overrides the configured agent file.
	PersonaPath string
	// ForceCLI enables the console integration regardless of config.
	ForceCLI bool
	// OnExit runs when the console user leaves.
	OnExit func()
}

// Container resolves services on first use.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	d       *dig.Container
	closers *closers
}

type closers struct{ fns []func() error }

func (c *closers) add(fn func() error) { c.fns = append(c.fns, fn) }

// recall groups the optional long-term memory collaborators. Both fields are
// nil when recall is disabled.
type recall struct {
	embedder schema.Embedder
	index    schema.VectorIndex
}

// New registers every constructor. Nothing is built until a getter asks for it.
func New(cfg *config.Config, opts Options) (*Container, error) {
	d := dig.New()
	cl := &closers{}

	constructors := []any{
		func() *config.Config { return cfg },
		func() Options { return opts },
		func() *closers { return cl },
		newPersona,
		newLanguageModel,
		newDatabase,
		memory.NewLogStore,
		newRecall,
		newMemory,
		newRouter,
		newCommandSet,
		newLoop,
		newCronService,
		newHeartbeat,
		newManager,
	}
	for _, fn := range constructors {
		if err := d.Provide(fn); err != nil {
			return nil, fmt.Errorf("register constructor: %w", err)
		}
	}
	return &Container{d: d, closers: cl}, nil
}

func resolve[T any](c *Container) (T, error) {
	var out T
	err := c.d.Invoke(func(v T) { out = v })
	if err != nil {
		return out, dig.RootCause(err)
	}
	return out, nil
}

func (c *Container) Persona() (*agentcfg.Persona, error) { return resolve[*agentcfg.Persona](c) }

func (c *Container) LanguageModel() (schema.LanguageModel, error) {
	return resolve[schema.LanguageModel](c)
}

func (c *Container) LogStore() (*memory.LogStore, error) { return resolve[*memory.LogStore](c) }

// VectorStore returns the long-term memory index, or nil when recall is
// disabled.
func (c *Container) VectorStore() (*memory.VectorStore, error) {
	r, err := resolve[recall](c)
	if err != nil || r.index == nil {
		return nil, err
	}
	vs, _ := r.index.(*memory.VectorStore)
	return vs, nil
}

// Embedder returns the recall embedder, or nil when recall is disabled.
func (c *Container) Embedder() (schema.Embedder, error) {
	r, err := resolve[recall](c)
	return r.embedder, err
}

func (c *Container) Memory() (*agent.Memory, error)             { return resolve[*agent.Memory](c) }
func (c *Container) Router() (*channels.Router, error)          { return resolve[*channels.Router](c) }
func (c *Container) Loop() (*agent.Loop, error)                 { return resolve[*agent.Loop](c) }
func (c *Container) CronService() (*cron.Service, error)        { return resolve[*cron.Service](c) }
func (c *Container) ChannelManager() (*channels.Manager, error) { return resolve[*channels.Manager](c) }

// Close releases everything the container opened, newest first.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers.fns) - 1; i >= 0; i-- {
		errs = append(errs, c.closers.fns[i]())
	}
	c.closers.fns = nil
	return errors.Join(errs...)
}

func newPersona(cfg *config.Config, opts Options) (*agentcfg.Persona, error) {
	path := opts.PersonaPath
	if path == "" {
		path = cfg.PersonaPath()
	}
	p, err := agentcfg.LoadPersona(path, cfg.Agent.Completion)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("agent file %s: %w", path, err)
	}
	return p, nil
}

func newLanguageModel(cfg *config.Config, p *agentcfg.Persona) schema.LanguageModel {
	model := cfg.Provider.Model
	if p.Completion.Model != "" {
		model = p.Completion.Model
	}
	return providers.New(providers.Params{
		ProviderName: cfg.Provider.Name,
		APIBase:      cfg.Provider.APIBase,
		APIKey:       cfg.Provider.APIKey,
		Model:        model,
		ExtraHeaders: cfg.Provider.ExtraHeaders,
	})
}

func newDatabase(cfg *config.Config, cl *closers) (*memory.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := memory.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	cl.add(db.Close)
	return db, nil
}

func newRecall(cfg *config.Config, db *memory.DB) (recall, error) {
	rc := cfg.Memory.Recall
	if !rc.Enabled {
		return recall{}, nil
	}
	var emb schema.Embedder
	switch rc.Embedder {
	case memorycfg.EmbedderOllama:
		emb = memory.NewOllamaEmbedder(rc.APIBase, rc.Model)
	case memorycfg.EmbedderOpenAI:
		emb = memory.NewOpenAIEmbedder(rc.APIBase, rc.APIKey, rc.Model, rc.Dimensions)
	default:
		return recall{}, fmt.Errorf("unknown embedder %q", rc.Embedder)
	}
	return recall{embedder: emb, index: memory.NewVectorStore(db, rc.Dimensions)}, nil
}

func newMemory(logs *memory.LogStore, r recall) *agent.Memory {
	return agent.NewMemory(agent.NewMessageLog(), logs, r.embedder, r.index)
}

func newRouter(cl *closers) *channels.Router {
	r := channels.NewRouter()
	cl.add(func() error { r.Close(); return nil })
	return r
}

func newCommandSet(cfg *config.Config) (*agent.CommandSet, error) {
	return agent.CommandSetFromNames(cfg.Agent.Commands)
}

func newLoop(
	cfg *config.Config,
	p *agentcfg.Persona,
	lm schema.LanguageModel,
	router *channels.Router,
	mem *agent.Memory,
	commands *agent.CommandSet,
) (*agent.Loop, error) {
	c := p.Completion
	format := agent.Format{
		SystemPrefix:    c.SystemMessagePrefix,
		SystemSuffix:    c.SystemMessageSuffix,
		UserPrefix:      c.UserMessagePrefix,
		UserSuffix:      c.UserMessageSuffix,
		AssistantPrefix: c.AssistantMessagePrefix,
		AssistantSuffix: c.AssistantMessageSuffix,
	}
	settings := agent.LoopSettings{
		Generation:        c.Generation(),
		ContextLength:     c.ContextLength,
		StartupBudget:     cfg.Memory.StartupBudget,
		TickInterval:      cfg.TickInterval(),
		RecallK:           cfg.Memory.Recall.K,
		RecallMaxDistance: cfg.Memory.Recall.MaxDistance,
	}
	store, err := agent.NewFileContextStore(cfg.WorkspacePath())
	if err != nil {
		return nil, err
	}
	return agent.NewLoop(lm, router, mem, commands, p.Settings(), format, settings,
		agent.WithContextStore(store)), nil
}

func newCronService(cfg *config.Config, router *channels.Router) *cron.Service {
	return cron.NewService(cfg.CronStorePath(), router)
}

func newHeartbeat(cfg *config.Config, router *channels.Router) *heartbeat.Service {
	hb := cfg.Channels.Heartbeat
	return heartbeat.NewService(router, cfg.WorkspacePath(),
		time.Duration(hb.IntervalSeconds)*time.Second)
}

func newManager(
	cfg *config.Config,
	opts Options,
	p *agentcfg.Persona,
	router *channels.Router,
	cronSvc *cron.Service,
	hb *heartbeat.Service,
) *channels.Manager {
	chCfg := cfg.Channels
	if opts.ForceCLI {
		chCfg.CLI.Enabled = true
	}
	var extra []schema.Integration
	if chCfg.Cron.Enabled {
		extra = append(extra, cronSvc)
	}
	if chCfg.Heartbeat.Enabled {
		extra = append(extra, hb)
	}
	return channels.NewManager(&chCfg, router, channels.ManagerOptions{
		AgentName:      p.Name,
		TranscriptPath: cfg.TranscriptPath(time.Now()),
		OnExit:         opts.OnExit,
		Extra:          extra,
	})
}
