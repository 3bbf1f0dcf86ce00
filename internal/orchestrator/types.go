package orchestrator

import (
	"context"

	"github.com/codefionn/chatschnell/internal/directive"
	"github.com/codefionn/chatschnell/internal/llm"
	"github.com/codefionn/chatschnell/internal/progress"
	"github.com/codefionn/chatschnell/internal/research"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once returned;
// the orchestrator only ever produces a new Turn, never rewrites history.
type Turn struct {
	ID          string           `json:"id"`
	Sender      Sender           `json:"sender"`
	Text        string           `json:"text"`
	Attachments []llm.Attachment `json:"attachments,omitempty"`
	Citations   []llm.Citation   `json:"citations,omitempty"`
	ImageData   string           `json:"image_data,omitempty"`
	Model       string           `json:"model,omitempty"`
	// Stopped marks a turn cut short by user cancellation. Partial output,
	// not an error.
	Stopped bool `json:"stopped,omitempty"`
}

// Action is a routing state of the orchestrator.
type Action int

const (
	ActionSimple Action = iota
	ActionSearch
	ActionDeepSearch
	ActionThink
	ActionImage
	ActionProject
	ActionStudy
	ActionCanvas
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSimple:
		return "SIMPLE"
	case ActionSearch:
		return "SEARCH"
	case ActionDeepSearch:
		return "DEEP_SEARCH"
	case ActionThink:
		return "THINK"
	case ActionImage:
		return "IMAGE"
	case ActionProject:
		return "PROJECT"
	case ActionStudy:
		return "STUDY"
	case ActionCanvas:
		return "CANVAS"
	default:
		return "UNKNOWN"
	}
}

// ActionForDirective maps a scanned directive kind to its routing state.
func ActionForDirective(kind directive.Kind) Action {
	switch kind {
	case directive.DeepSearch:
		return ActionDeepSearch
	case directive.Search:
		return ActionSearch
	case directive.Think:
		return ActionThink
	case directive.Image:
		return ActionImage
	case directive.Project:
		return ActionProject
	case directive.Canvas:
		return ActionCanvas
	case directive.Study:
		return ActionStudy
	default:
		return ActionSimple
	}
}

// RoutingDecision is the starting action proposed by the external intent
// classifier. Directives discovered mid-stream may overwrite it.
type RoutingDecision struct {
	Action     Action         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Intensity is the thinking-intensity setting carried by the conversation.
type Intensity string

const (
	IntensityFast    Intensity = "fast"
	IntensityThink   Intensity = "think"
	IntensityDeep    Intensity = "deep"
	IntensityInstant Intensity = "instant"
)

// Request is one orchestrator invocation: a user prompt against the prior
// conversation. The orchestrator borrows History read-only.
type Request struct {
	Prompt      string
	History     []*Turn
	Attachments []llm.Attachment
	// Model is the requested model identifier; empty means the baseline
	// native model.
	Model     string
	Intensity Intensity
	// Decision is the classifier's proposal. Nil means the orchestrator
	// asks its own Classifier, or starts at SIMPLE without one.
	Decision *RoutingDecision
	// OnChunk receives every streamed token and progress notice.
	OnChunk progress.Callback
}

// Classifier proposes a starting action for a raw prompt.
type Classifier interface {
	Route(ctx context.Context, prompt string, attachmentCount int) (*RoutingDecision, error)
}

// ImageGenerator synthesizes an image for a description, returned as base64.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CanvasBuilder delegates a whole invocation to an external build agent and
// returns a turn whose text the orchestrator adopts.
type CanvasBuilder interface {
	Build(ctx context.Context, req *Request) (*Turn, error)
}

// MemoryStore retrieves long-term user context, injected verbatim into the
// system instruction.
type MemoryStore interface {
	GetContext(ctx context.Context, categories []string) (string, error)
}

// ClientFactory constructs a provider client for a model identifier. The
// orchestrator wraps native clients with the retry controller itself.
type ClientFactory func(model string) (llm.Client, error)

// Options wires the orchestrator to its collaborators. Clients is required;
// everything else may be nil, degrading the matching capability.
type Options struct {
	Clients    ClientFactory
	Classifier Classifier
	Researcher research.Researcher
	Images     ImageGenerator
	Canvas     CanvasBuilder
	Memory     MemoryStore
}
