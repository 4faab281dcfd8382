package medguide

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/engine"
	"github.com/medguideai/medguide/entity"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/ingest"
	"github.com/medguideai/medguide/internal/mylog"
	"github.com/medguideai/medguide/memory"
	"github.com/medguideai/medguide/session"
	"github.com/medguideai/medguide/tool"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type (
	// Runtime wires the conversation engine, document pipeline, memory and
	// session storage into one assistant.
	Runtime struct {
		logger   *slog.Logger
		engine   *engine.Engine
		registry tool.Registry

		documents ingest.Service
		memories  memory.Service
		sessions  session.Manager

		model         engine.ModelClient
		embedder      ingest.Embedder
		documentStore ingest.Store

		assistant  config.AssistantConfig
		mcpServers map[string]config.MCPServer

		modelConfig   *config.ModelConfig
		ingestConfig  *config.IngestConfig
		memoryConfig  *config.MemoryConfig
		sessionConfig *config.SessionConfig
		logConfig     *config.LogConfig

		// One response at a time per session; the transcript is append-only
		// and interleaved writes would corrupt its order.
		sessionLocksMtx sync.Mutex
		sessionLocks    map[string]*sync.Mutex
	}
	Option func(*Runtime)
)

func NewRuntime(ctx context.Context, optionFuncs ...Option) (*Runtime, error) {
	r := &Runtime{
		modelConfig:   config.NewModelConfig(),
		ingestConfig:  config.NewIngestConfig(),
		memoryConfig:  config.NewMemoryConfig(),
		sessionConfig: config.NewSessionConfig(),
		logConfig:     config.NewLogConfig(),
		sessionLocks:  make(map[string]*sync.Mutex),
	}
	for _, f := range optionFuncs {
		f(r)
	}

	if r.logger == nil {
		r.logger = mylog.NewLogger(r.logConfig.LogLevel, r.logConfig.LogHandler)
	}
	if r.assistant.Model != "" {
		r.modelConfig.ChatModel = r.assistant.Model
	}

	var err error
	if r.model == nil {
		if r.model, err = engine.NewModelClient(r.modelConfig); err != nil {
			return nil, err
		}
	}
	if r.embedder == nil {
		if r.modelConfig.OpenAIAPIKey == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "OPENAI_API_KEY is required for embeddings")
		}
		r.embedder = ingest.NewOpenAIEmbedder(r.modelConfig.OpenAIAPIKey, r.modelConfig.EmbeddingModel)
	}

	if r.documents == nil {
		if r.documentStore != nil {
			r.documents, err = ingest.NewServiceWithStore(r.ingestConfig, r.logger, r.embedder, r.documentStore)
		} else {
			r.documents, err = ingest.NewService(r.ingestConfig, r.logger, r.embedder, r.modelConfig.EmbeddingDimension)
		}
		if err != nil {
			return nil, err
		}
	}
	if r.memories == nil {
		if r.memories, err = memory.NewService(r.memoryConfig, r.logger, r.embedder); err != nil {
			return nil, err
		}
	}
	if r.sessions == nil {
		if r.sessions, err = session.NewManager(r.sessionConfig, r.logger); err != nil {
			return nil, err
		}
	}

	mcpServers := r.mcpServers
	if len(r.assistant.MCPServers) > 0 {
		mcpServers = r.assistant.MCPServers
	}
	if r.registry, err = tool.NewRegistry(ctx, tool.Options{
		Logger:      r.logger,
		ToolTimeout: r.modelConfig.ToolTimeout,
		MCPServers:  mcpServers,
		Documents:   r.documents,
		Memory:      r.memories,
	}); err != nil {
		return nil, err
	}

	if r.engine, err = engine.NewEngine(engine.Options{
		Logger:          r.logger,
		Model:           r.model,
		Registry:        r.registry,
		Name:            r.assistant.Name,
		Role:            r.assistant.Role,
		System:          r.assistant.System,
		AllowedTools:    r.assistant.Tools,
		MaxToolRounds:   r.modelConfig.MaxToolRounds,
		ModelTimeout:    r.modelConfig.ModelTimeout,
		MaxOutputTokens: r.modelConfig.MaxOutputTokens,
		Temperature:     r.modelConfig.Temperature,
	}); err != nil {
		return nil, err
	}

	return r, nil
}

// Respond answers one user message within a session and persists both sides
// of the exchange, including every tool call made along the way.
func (r *Runtime) Respond(ctx context.Context, sessionId string, message string, streamCallback engine.StreamCallback) (*engine.RunResponse, error) {
	if message == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "message is empty")
	}

	sess, err := r.sessions.GetOrCreateSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	lock := r.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	transcript, err := r.sessions.GetTranscript(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	if _, err := r.sessions.AppendTurn(ctx, sess.ID, entity.Turn{
		Role:    entity.TurnRoleUser,
		Content: message,
	}); err != nil {
		return nil, err
	}

	if sess.ActiveCollection != "" {
		ctx = tool.WithActiveCollection(ctx, sess.ActiveCollection)
	}

	res, err := r.engine.Run(ctx, engine.RunRequest{
		History:          transcriptToMessages(transcript),
		UserMessage:      message,
		ActiveCollection: sess.ActiveCollection,
	}, streamCallback)
	if err != nil {
		return nil, err
	}

	for _, trace := range res.ToolTrace {
		var args map[string]any
		if len(trace.Arguments) > 0 {
			// Best effort; invalid arguments are part of the record too.
			_ = json.Unmarshal(trace.Arguments, &args)
		}
		if _, err := r.sessions.AppendTurn(ctx, sess.ID, entity.Turn{
			Role:     entity.TurnRoleTool,
			Content:  trace.Result,
			ToolName: trace.Name,
			ToolArgs: datatypes.NewJSONType(args),
		}); err != nil {
			return nil, err
		}
	}

	if _, err := r.sessions.AppendTurn(ctx, sess.ID, entity.Turn{
		Role:    entity.TurnRoleAssistant,
		Content: res.Text,
	}); err != nil {
		return nil, err
	}

	return res, nil
}

// IngestFile runs the document pipeline and, when a session is given, makes
// the resulting collection that session's default search target.
func (r *Runtime) IngestFile(ctx context.Context, sessionId string, fileBytes []byte, filename string, collection string) (*ingest.Result, error) {
	result, err := r.documents.Ingest(ctx, fileBytes, filename, collection)
	if err != nil {
		return nil, err
	}

	if sessionId != "" {
		if _, err := r.sessions.GetOrCreateSession(ctx, sessionId); err != nil {
			return nil, err
		}
		if err := r.sessions.SetActiveCollection(ctx, sessionId, result.Collection); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *Runtime) Sessions() session.Manager { return r.sessions }
func (r *Runtime) Documents() ingest.Service { return r.documents }
func (r *Runtime) Memories() memory.Service { return r.memories }
func (r *Runtime) Tools() tool.Registry { return r.registry }

func (r *Runtime) Close() {
	if r.registry != nil {
		r.registry.Close()
	}
	for _, closeFn := range []func() error{
		r.sessions.Close,
		r.memories.Close,
		r.documents.Close,
	} {
		if err := closeFn(); err != nil {
			r.logger.Warn("failed to close service", "error", err)
		}
	}
}

func (r *Runtime) sessionLock(sessionId string) *sync.Mutex {
	r.sessionLocksMtx.Lock()
	defer r.sessionLocksMtx.Unlock()

	lock, ok := r.sessionLocks[sessionId]
	if !ok {
		lock = &sync.Mutex{}
		r.sessionLocks[sessionId] = lock
	}
	return lock
}

// transcriptToMessages replays persisted turns as model context. Tool turns
// stay in the transcript for audit but are not replayed: a tool result is
// only meaningful next to the tool call that produced it, which past rounds
// no longer carry.
func transcriptToMessages(turns []entity.Turn) []engine.Message {
	return lo.FilterMap(turns, func(turn entity.Turn, _ int) (engine.Message, bool) {
		switch turn.Role {
		case entity.TurnRoleUser:
			return engine.Message{Role: engine.RoleUser, Content: turn.Content}, true
		case entity.TurnRoleAssistant:
			return engine.Message{Role: engine.RoleAssistant, Content: turn.Content}, true
		default:
			return engine.Message{}, false
		}
	})
}

func WithOpenAIAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.modelConfig.OpenAIAPIKey = apiKey
	}
}

func WithAnthropicAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.modelConfig.AnthropicAPIKey = apiKey
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithLogConfig(logConfig *config.LogConfig) Option {
	return func(r *Runtime) {
		r.logConfig = logConfig
	}
}

func WithModelConfig(modelConfig *config.ModelConfig) Option {
	return func(r *Runtime) {
		r.modelConfig = modelConfig
	}
}

func WithIngestConfig(ingestConfig *config.IngestConfig) Option {
	return func(r *Runtime) {
		r.ingestConfig = ingestConfig
	}
}

func WithMemoryConfig(memoryConfig *config.MemoryConfig) Option {
	return func(r *Runtime) {
		r.memoryConfig = memoryConfig
	}
}

func WithSessionConfig(sessionConfig *config.SessionConfig) Option {
	return func(r *Runtime) {
		r.sessionConfig = sessionConfig
	}
}

func WithAssistant(assistant config.AssistantConfig) Option {
	return func(r *Runtime) {
		r.assistant = assistant
	}
}

func WithMCPServers(servers map[string]config.MCPServer) Option {
	return func(r *Runtime) {
		r.mcpServers = servers
	}
}

func WithModelClient(model engine.ModelClient) Option {
	return func(r *Runtime) {
		r.model = model
	}
}

func WithEmbedder(embedder ingest.Embedder) Option {
	return func(r *Runtime) {
		r.embedder = embedder
	}
}

func WithDocumentStore(store ingest.Store) Option {
	return func(r *Runtime) {
		r.documentStore = store
	}
}

func WithDocumentService(documents ingest.Service) Option {
	return func(r *Runtime) {
		r.documents = documents
	}
}

func WithMemoryService(memories memory.Service) Option {
	return func(r *Runtime) {
		r.memories = memories
	}
}

func WithSessionManager(sessions session.Manager) Option {
	return func(r *Runtime) {
		r.sessions = sessions
	}
}
