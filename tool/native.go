package tool

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/ingest"
	"github.com/medguideai/medguide/memory"
	"github.com/mitchellh/mapstructure"
	"github.com/mokiat/gog"
)

func (r *registry) registerNativeTools() error {
	if r.documents != nil {
		if err := r.registerSearchDocumentsTool(); err != nil {
			return err
		}
	}
	if r.memory != nil {
		if err := r.registerMemoryTools(); err != nil {
			return err
		}
	}
	return nil
}

// registerNativeTool derives the input schema from the In struct's jsonschema
// tags and wraps fn so arguments arrive decoded and outputs leave as JSON.
func registerNativeTool[In any, Out any](r *registry, toolName, toolDescription string, fn func(ctx context.Context, input In) (Out, error)) error {
	schema, err := reflectInputSchema[In]()
	if err != nil {
		return errors.Wrapf(err, "failed to reflect input schema for tool '%s'", toolName)
	}

	return r.register(ToolDescriptor{
		Name:        toolName,
		Description: toolDescription,
		InputSchema: schema,
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var raw map[string]any
		if err := json.Unmarshal(args, &raw); err != nil {
			return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': arguments are not a JSON object: %v", toolName, err)
		}

		var input In
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &input,
		})
		if err != nil {
			return "", err
		}
		if err := decoder.Decode(raw); err != nil {
			return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': %v", toolName, err)
		}

		out, err := fn(ctx, input)
		if err != nil {
			return "", err
		}

		outputJson, err := json.Marshal(out)
		if err != nil {
			return "", errors.Wrapf(err, "failed to encode output of tool '%s'", toolName)
		}
		return string(outputJson), nil
	})
}

func reflectInputSchema[In any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	var input In
	schemaJson, err := json.Marshal(reflector.Reflect(&input))
	if err != nil {
		return nil, err
	}

	var schema map[string]any
	if err := json.Unmarshal(schemaJson, &schema); err != nil {
		return nil, err
	}
	// The validator keys off $schema to pick a draft it may not know.
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}

func (r *registry) registerSearchDocumentsTool() error {
	return registerNativeTool(
		r,
		"search_documents",
		`Search the user's uploaded medical documents for relevant passages.

Use this tool whenever the user asks about the content of a document they uploaded: lab results, discharge summaries, prescriptions, clinical notes, research papers.

How to use:
- Provide a clear, specific search query describing what you are looking for
- Leave 'collection' empty to search the document the conversation is currently about
- Results are text excerpts ranked by semantic similarity, with a score per excerpt

The search is semantic, so exact keyword matches are not required. If the first query returns nothing useful, try rephrasing before telling the user the information is not in the document.`,
		func(ctx context.Context, input struct {
			Query      string `json:"query" jsonschema:"required,description=The search query to find relevant passages"`
			Collection string `json:"collection,omitempty" jsonschema:"description=Document collection to search; defaults to the document currently under discussion"`
			Limit      *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of passages to return,default=5"`
		}) (reply struct {
			Results []ingest.SearchResult `json:"results,omitempty" jsonschema:"description=Matching passages ranked by relevance"`
			Error   string                `json:"error,omitempty" jsonschema:"description=Error message if the search failed"`
		}, err error) {
			limit := 5
			if input.Limit != nil {
				limit = *input.Limit
			}

			collection := input.Collection
			if collection == "" {
				collection = activeCollectionFrom(ctx)
			}
			if collection == "" {
				reply.Error = "no document has been ingested yet; ask the user to upload one first"
				return reply, nil
			}

			results, err := r.documents.Search(ctx, collection, input.Query, limit)
			if err != nil {
				reply.Error = err.Error()
				return reply, nil
			}

			// Embeddings are dead weight in a model-facing payload.
			for _, res := range results {
				chunk := *res.Chunk
				chunk.Embedding = nil
				reply.Results = append(reply.Results, ingest.SearchResult{Chunk: &chunk, Score: res.Score})
			}
			return reply, nil
		},
	)
}

func (r *registry) registerMemoryTools() error {
	if err := registerNativeTool(
		r,
		"save_memory",
		`Store a lasting fact about the user for future conversations.

Save immediately when the user mentions:
- Allergies and adverse reactions ("I'm allergic to penicillin")
- Current medications and dosages ("I take metformin 500mg twice a day")
- Diagnoses and chronic conditions ("I was diagnosed with hypertension")
- Relevant history ("my father had a stroke at 60")

Key format: category_detail, e.g. allergy_penicillin, medication_metformin, condition_hypertension.

Always tell the user when you store their information.`,
		func(ctx context.Context, input struct {
			Key    string   `json:"key" jsonschema:"required,description=Stable snake_case identifier, e.g. allergy_penicillin"`
			Memory string   `json:"memory" jsonschema:"required,description=The fact to store, specific and self-contained"`
			Tags   []string `json:"tags,omitempty" jsonschema:"description=Optional topic tags such as ['allergy'] or ['medication']"`
		}) (reply struct {
			Memory *memory.Memory `json:"memory,omitempty" jsonschema:"description=The stored memory"`
			Error  string         `json:"error,omitempty" jsonschema:"description=Error message if storage failed"`
		}, err error) {
			m := &memory.Memory{
				Key:    input.Key,
				Value:  input.Memory,
				Source: memory.MemorySourceAssistant,
				Tags:   input.Tags,
			}
			if err := r.memory.Remember(ctx, m); err != nil {
				reply.Error = err.Error()
				return reply, nil
			}

			stored := *m
			stored.Embedding = nil
			reply.Memory = &stored
			return reply, nil
		},
	); err != nil {
		return err
	}

	if err := registerNativeTool(
		r,
		"search_memory",
		`Find what you already know about the user with a natural language query.

Use at the start of a conversation to recover context, or whenever advice could depend on the user's allergies, medications or conditions.

Good queries: "drug allergies", "current medications", "chronic conditions".`,
		func(ctx context.Context, input struct {
			Query string `json:"query" jsonschema:"required,description=Natural language query for related memories"`
			Limit *uint  `json:"limit,omitempty" jsonschema:"description=Maximum number of memories to return,default=10"`
		}) (reply struct {
			Memories []memory.ScoredMemory `json:"memories" jsonschema:"description=Relevant memories ranked by similarity"`
			Error    string                `json:"error,omitempty" jsonschema:"description=Error message if the search failed"`
		}, err error) {
			limit := uint(10)
			if input.Limit != nil {
				limit = *input.Limit
			}

			memories, err := r.memory.Recall(ctx, input.Query, limit)
			if err != nil {
				reply.Error = err.Error()
				return reply, nil
			}

			reply.Memories = gog.Map(memories, func(sm memory.ScoredMemory) memory.ScoredMemory {
				m := *sm.Memory
				m.Embedding = nil
				return memory.ScoredMemory{Memory: &m, Score: sm.Score}
			})
			return reply, nil
		},
	); err != nil {
		return err
	}

	return registerNativeTool(
		r,
		"list_memories",
		`List every fact stored about the user.

Use sparingly: before important guidance when you need the complete picture, or when a memory search came back empty.`,
		func(ctx context.Context, input struct{}) (reply struct {
			Memories []*memory.Memory `json:"memories" jsonschema:"description=All stored memories"`
			Error    string           `json:"error,omitempty" jsonschema:"description=Error message if listing failed"`
		}, err error) {
			memories, err := r.memory.List(ctx)
			if err != nil {
				reply.Error = err.Error()
				return reply, nil
			}

			reply.Memories = gog.Map(memories, func(m *memory.Memory) *memory.Memory {
				c := *m
				c.Embedding = nil
				return &c
			})
			return reply, nil
		},
	)
}
