// Package orchestrator turns one user turn into a sequence of provider
// calls. It owns the bounded routing loop: stream a step, scan the step's
// output for an embedded directive, either terminate with the accumulated
// text or rewrite the current action and prompt and go around again.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/chatschnell/internal/consts"
	"github.com/codefionn/chatschnell/internal/directive"
	"github.com/codefionn/chatschnell/internal/llm"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/progress"
	"github.com/codefionn/chatschnell/internal/research"
	"github.com/google/uuid"
)

// Orchestrator routes a request through its action handlers. Each invocation
// owns its own accumulators; instances are safe for concurrent use.
type Orchestrator struct {
	clients    ClientFactory
	classifier Classifier
	researcher research.Researcher
	images     ImageGenerator
	canvas     CanvasBuilder
	memory     MemoryStore
}

// New creates an Orchestrator. Options.Clients must be set.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		clients:    opts.Clients,
		classifier: opts.Classifier,
		researcher: opts.Researcher,
		images:     opts.Images,
		canvas:     opts.Canvas,
		memory:     opts.Memory,
	}
}

// loopState is the explicit state threaded through the routing loop:
// currentAction, currentPrompt and the cross-iteration accumulators.
// finalText grows across iterations and becomes the returned turn's text.
type loopState struct {
	action Action
	prompt string
	model  string

	finalText string
	citations []llm.Citation
	imageData string

	// searchContext holds a synthesized research answer until the synthesis
	// pass consumes it. Safety net against empty completions.
	searchContext string

	// terminal stops the loop after this iteration; noScan additionally
	// skips the directive scan (THINK, IMAGE, PROJECT, STUDY, CANVAS).
	terminal bool
	noScan   bool
}

func (st *loopState) append(text string) {
	st.finalText += text
}

func (st *loopState) appendBlock(text string) {
	if st.finalText != "" && !strings.HasSuffix(st.finalText, "\n") {
		st.finalText += "\n\n"
	}
	st.finalText += text
}

// Respond executes one invocation. It always returns exactly one Turn and
// never an error: failures become the turn's text, cancellation yields the
// partial text flagged as user-stopped.
func (o *Orchestrator) Respond(ctx context.Context, req *Request) (turn *Turn) {
	turn = &Turn{ID: uuid.NewString(), Sender: SenderAssistant, Model: req.Model}
	st := &loopState{action: ActionSimple, prompt: req.Prompt, model: req.Model}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("orchestrator panic: %v", r)
			st.appendBlock("[Something went wrong while generating a response. Please try again.]")
		}
		turn.Text = st.finalText
		turn.Citations = st.citations
		turn.ImageData = st.imageData
		turn.Model = st.model
		if ctx.Err() != nil {
			turn.Stopped = true
		}
	}()

	o.applyInitialRouting(ctx, req, st)

	for iteration := 0; iteration < consts.MaxRouteIterations; iteration++ {
		if ctx.Err() != nil {
			return turn
		}

		o.degradeUnsupported(st)
		logger.Debug("iteration %d: action=%s model=%s", iteration, st.action, st.model)

		iterText, err := o.dispatch(ctx, req, st)
		if err != nil {
			if ctx.Err() != nil {
				return turn
			}
			note := errorText(err)
			_ = progress.Text(req.OnChunk, note)
			st.appendBlock(note)
			return turn
		}

		if !st.noScan {
			// Only this iteration's output is scanned; rescanning cumulative
			// text would re-trigger directives already acted on.
			if d, ok := directive.Scan(iterText); ok {
				applyDirective(st, d, req.Prompt)
				continue
			}
		}

		if st.terminal {
			return turn
		}
	}

	// Loop bound reached: soft degradation, return what accumulated.
	logger.Warn("routing loop hit iteration cap (%d), returning accumulated text", consts.MaxRouteIterations)
	return turn
}

// applyInitialRouting consumes the classifier's proposal: either the one the
// caller already obtained or a fresh call. Classifier failure is not fatal,
// the turn starts at SIMPLE.
func (o *Orchestrator) applyInitialRouting(ctx context.Context, req *Request, st *loopState) {
	decision := req.Decision
	if decision == nil && o.classifier != nil {
		var err error
		decision, err = o.classifier.Route(ctx, req.Prompt, len(req.Attachments))
		if err != nil {
			logger.Warn("classifier failed, starting at SIMPLE: %v", err)
			return
		}
	}
	if decision == nil {
		return
	}

	st.action = decision.Action
	if query, ok := decision.Parameters["query"].(string); ok && strings.TrimSpace(query) != "" {
		st.prompt = query
	}
}

// degradeUnsupported falls back to SIMPLE when the requested capability
// cannot be served by the current model or wiring.
func (o *Orchestrator) degradeUnsupported(st *loopState) {
	switch st.action {
	case ActionProject, ActionStudy:
		// Structured calls need the native provider.
		if !llm.IsNativeModel(st.model) {
			logger.Info("%s requested on non-native model %s, degrading to SIMPLE", st.action, st.model)
			st.action = ActionSimple
		}
	case ActionCanvas:
		if o.canvas == nil {
			st.action = ActionSimple
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, req *Request, st *loopState) (string, error) {
	switch st.action {
	case ActionSearch:
		return o.runSearch(ctx, req, st, false)
	case ActionDeepSearch:
		return o.runSearch(ctx, req, st, true)
	case ActionThink:
		return o.runThink(ctx, req, st)
	case ActionImage:
		return o.runImage(ctx, req, st)
	case ActionProject:
		return o.runStructured(ctx, req, st, projectSystemPrompt, true)
	case ActionStudy:
		return o.runStructured(ctx, req, st, studySystemPrompt, false)
	case ActionCanvas:
		return o.runCanvas(ctx, req, st)
	default:
		return o.runSimple(ctx, req, st)
	}
}

// runSimple is the default handler and the densest path: normalized history,
// native-only attachments, relay fallback and the empty-completion safety
// net.
func (o *Orchestrator) runSimple(ctx context.Context, req *Request, st *loopState) (string, error) {
	system, err := o.systemPrompt(ctx)
	if err != nil {
		return "", err
	}

	sreq := &llm.StreamRequest{
		Model:        st.model,
		Messages:     buildMessages(req.History, st.prompt, req.Attachments, llm.IsNativeModel(st.model)),
		SystemPrompt: system,
		MaxTokens:    consts.DefaultMaxTokens,
	}

	text, err := o.streamStep(ctx, req, st, sreq)
	if err != nil && llm.IsModelUnavailable(err) && !llm.IsNativeModel(st.model) {
		// The relay is not serving this model right now. Fall back to the
		// baseline native model and continue the turn instead of failing it.
		_ = progress.Noticef(req.OnChunk, "Model %s is unavailable, falling back to %s", st.model, llm.DefaultNativeModel)
		logger.Info("relay model %s unavailable, falling back to %s", st.model, llm.DefaultNativeModel)

		st.model = llm.DefaultNativeModel
		sreq.Model = st.model
		sreq.Messages = buildMessages(req.History, st.prompt, req.Attachments, true)
		text, err = o.streamStep(ctx, req, st, sreq)
	}
	if err != nil {
		return "", err
	}

	st.append(text)

	// A prior SEARCH step paid for research; if synthesis produced nothing,
	// the context itself is better than an empty answer.
	if strings.TrimSpace(text) == "" && st.searchContext != "" {
		_ = progress.Text(req.OnChunk, st.searchContext)
		st.appendBlock(st.searchContext)
		st.searchContext = ""
	}

	st.terminal = true
	return text, nil
}

// runSearch runs the deterministic two-step retrieve-then-synthesize
// pipeline. The research answer is never the final text; it becomes the
// prompt of a SIMPLE synthesis pass.
func (o *Orchestrator) runSearch(ctx context.Context, req *Request, st *loopState, deep bool) (string, error) {
	if o.researcher == nil {
		note := "[Search is not available right now, answering from model knowledge.]"
		_ = progress.Text(req.OnChunk, note+"\n")
		st.appendBlock(note)
		st.action = ActionSimple
		return "", nil
	}

	if deep {
		_ = progress.Statusf(req.OnChunk, "Running deep research...")
	} else {
		_ = progress.Statusf(req.OnChunk, "Searching...")
	}

	result, err := o.researcher.DeepResearch(ctx, st.prompt, func(message string) {
		_ = progress.Noticef(req.OnChunk, "%s", message)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		// Sub-capability failure: degrade to an inline note, keep going.
		note := fmt.Sprintf("[Search failed: %v]", err)
		_ = progress.Text(req.OnChunk, note+"\n")
		st.appendBlock(note)
		st.action = ActionSimple
		return "", nil
	}

	st.citations = mergeCitations(st.citations, research.Citations(result.Sources))
	st.searchContext = result.Answer
	st.prompt = synthesisPrompt(st.prompt, result.Answer)
	st.action = ActionSimple

	// The scanner inspects the research output; a directive there still
	// overrides the synthesis pass.
	return result.Answer, nil
}

// runThink forces the reasoning model with an explicit deliberation budget.
// THINK is a terminal depth tier: its stream ends the turn without another
// directive scan.
func (o *Orchestrator) runThink(ctx context.Context, req *Request, st *loopState) (string, error) {
	st.model = llm.ReasoningModel

	budget := int32(consts.ThinkingBudgetDefault)
	if req.Intensity == IntensityDeep {
		budget = consts.ThinkingBudgetDeep
	}

	_ = progress.Statusf(req.OnChunk, "Thinking deeply...")

	sreq := &llm.StreamRequest{
		Model:          st.model,
		Messages:       buildMessages(req.History, st.prompt, req.Attachments, true),
		SystemPrompt:   simpleSystemPrompt,
		MaxTokens:      consts.DefaultMaxTokens,
		ThinkingBudget: budget,
	}

	text, err := o.streamStep(ctx, req, st, sreq)
	if err != nil {
		return "", err
	}

	st.append(text)
	st.terminal = true
	st.noScan = true
	return text, nil
}

// runImage delegates to the external image synthesizer. Failure is
// non-fatal: the turn returns successfully with a visible note.
func (o *Orchestrator) runImage(ctx context.Context, req *Request, st *loopState) (string, error) {
	st.terminal = true
	st.noScan = true

	if o.images == nil {
		note := "[Image generation is not available.]"
		_ = progress.Text(req.OnChunk, note)
		st.appendBlock(note)
		return "", nil
	}

	_ = progress.Statusf(req.OnChunk, "Generating image...")

	data, err := o.images.Generate(ctx, st.prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		note := fmt.Sprintf("[Image generation failed: %v]", err)
		_ = progress.Text(req.OnChunk, note)
		st.appendBlock(note)
		return "", nil
	}

	st.imageData = data
	return "", nil
}

// runStructured performs the single non-streaming call behind PROJECT and
// STUDY. Both are terminal.
func (o *Orchestrator) runStructured(ctx context.Context, req *Request, st *loopState, system string, jsonResponse bool) (string, error) {
	st.terminal = true
	st.noScan = true

	client, err := o.clientFor(st.model, req.OnChunk)
	if err != nil {
		return "", err
	}

	out, err := client.Complete(ctx, &llm.StreamRequest{
		Model:        st.model,
		Messages:     []*llm.Message{{Role: "user", Content: st.prompt}},
		SystemPrompt: system,
		MaxTokens:    consts.DefaultMaxTokens,
		JSONResponse: jsonResponse,
	})
	if err != nil {
		return "", err
	}

	_ = progress.Text(req.OnChunk, out)
	st.append(out)
	return out, nil
}

// runCanvas hands the whole invocation to the external build agent and
// adopts its result.
func (o *Orchestrator) runCanvas(ctx context.Context, req *Request, st *loopState) (string, error) {
	st.terminal = true
	st.noScan = true

	sub := *req
	sub.Prompt = st.prompt
	result, err := o.canvas.Build(ctx, &sub)
	if err != nil {
		return "", err
	}

	st.appendBlock(result.Text)
	st.citations = mergeCitations(st.citations, result.Citations)
	if result.ImageData != "" {
		st.imageData = result.ImageData
	}
	return result.Text, nil
}

// streamStep runs one provider stream, forwarding every delta to the
// caller's sink and returning the step's accumulated text. Chunks arrive in
// order; the cancellation signal is checked inside the chunk loop.
func (o *Orchestrator) streamStep(ctx context.Context, req *Request, st *loopState, sreq *llm.StreamRequest) (string, error) {
	client, err := o.clientFor(sreq.Model, req.OnChunk)
	if err != nil {
		return "", err
	}

	var step strings.Builder
	err = client.Stream(ctx, sreq, func(ev llm.StreamEvent) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ev.Text != "" {
			if err := progress.Text(req.OnChunk, ev.Text); err != nil {
				return err
			}
			step.WriteString(ev.Text)
		}
		st.citations = mergeCitations(st.citations, ev.Citations)
		return nil
	})
	if err != nil && ctx.Err() != nil {
		// Partial output on cancellation is kept, not discarded.
		st.append(step.String())
		return step.String(), err
	}
	if err != nil {
		return "", err
	}
	return step.String(), nil
}

// clientFor constructs the provider client for a model. Native clients get
// the quota-retry controller; the relay path surfaces errors directly so
// the unavailable-model fallback can see them.
func (o *Orchestrator) clientFor(model string, notify progress.Callback) (llm.Client, error) {
	client, err := o.clients(model)
	if err != nil {
		return nil, err
	}
	if llm.IsNativeModel(model) {
		client = llm.NewRetryClient(client, notify)
	}
	return client, nil
}

func (o *Orchestrator) systemPrompt(ctx context.Context) (string, error) {
	system := simpleSystemPrompt
	if o.memory == nil {
		return system, nil
	}

	memoryCtx, err := o.memory.GetContext(ctx, []string{"profile", "preferences", "recent"})
	if err != nil {
		// Memory is a nicety; a failed lookup never blocks the answer.
		logger.Warn("memory lookup failed: %v", err)
		return system, nil
	}
	if strings.TrimSpace(memoryCtx) != "" {
		system += "\n\nUSER CONTEXT:\n" + memoryCtx
	}
	return system, nil
}

// buildMessages normalizes history into the provider message list. A
// trailing user turn that duplicates the current prompt is dropped, and
// binary attachments ride along only for native models.
func buildMessages(history []*Turn, prompt string, attachments []llm.Attachment, native bool) []*llm.Message {
	turns := history
	if n := len(turns); n > 0 && turns[n-1].Sender == SenderUser && turns[n-1].Text == prompt {
		turns = turns[:n-1]
	}

	messages := make([]*llm.Message, 0, len(turns)+1)
	for _, turn := range turns {
		if turn == nil || strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := "user"
		if turn.Sender == SenderAssistant {
			role = "model"
		}
		messages = append(messages, &llm.Message{Role: role, Content: turn.Text})
	}

	current := &llm.Message{Role: "user", Content: prompt}
	if native {
		current.Attachments = attachments
	}
	return append(messages, current)
}

func applyDirective(st *loopState, d directive.Directive, originalPrompt string) {
	st.action = ActionForDirective(d.Kind)
	if d.Payload != "" {
		st.prompt = d.Payload
	} else {
		// Fallback payload policy: a bare directive re-uses the user's
		// original prompt, not the partial model text.
		st.prompt = originalPrompt
	}
	st.terminal = false
	st.noScan = false
}

func mergeCitations(existing, incoming []llm.Citation) []llm.Citation {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.URL] = struct{}{}
	}
	for _, c := range incoming {
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		existing = append(existing, c)
	}
	return existing
}

func errorText(err error) string {
	switch {
	case errors.Is(err, llm.ErrMaxRetries):
		return "[The model is rate limited right now. Please try again in a moment.]"
	case llm.IsQuotaExhausted(err):
		return "[The model is over capacity. Please try again shortly.]"
	default:
		return fmt.Sprintf("[Something went wrong while generating a response: %v]", err)
	}
}
