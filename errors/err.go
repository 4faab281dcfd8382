package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig     = fmt.Errorf("medguide: invalid config")
	ErrNotFound          = fmt.Errorf("medguide: not found")
	ErrInvalidParams     = fmt.Errorf("medguide: invalid params")
	ErrInternal          = fmt.Errorf("medguide: internal error")
	ErrUnsupportedFormat = fmt.Errorf("medguide: unsupported document format")
	ErrExtraction        = fmt.Errorf("medguide: no extractable text")
	ErrEmbedding         = fmt.Errorf("medguide: embedding failed")
	ErrToolArgument      = fmt.Errorf("medguide: invalid tool arguments")
	ErrToolExecution     = fmt.Errorf("medguide: tool execution failed")
	ErrModelTimeout      = fmt.Errorf("medguide: model call timed out")
	ErrDuplicateToolName = fmt.Errorf("medguide: duplicate tool name")
	ErrAgentLoopExceeded = fmt.Errorf("medguide: agent loop exceeded max tool rounds")
)
