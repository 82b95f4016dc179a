package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/banking"
	"github.com/aibanking/conversation-core/internal/model"
)

// turnDeadline bounds one Process call end to end.
const turnDeadline = 20 * time.Second

var (
	approveRe = regexp.MustCompile(`(?i)^\s*(yes|confirm|approve|proceed|ok|okay)\b`)
	cancelRe  = regexp.MustCompile(`(?i)^\s*(no|cancel|stop|abort)\b`)
)

// Pipeline composes the catalog, classifier, extractor, enricher, refiner,
// responder, state manager, and operations into the per-turn state machine.
type Pipeline struct {
	catalog    *Catalog
	classifier *Classifier
	extractor  *Extractor
	enricher   *Enricher
	recipients *RecipientResolution
	responder  *Responder
	state      *StateManager
	operations *Operations
	banking    banking.Service

	locks sync.Map // sessionID -> *sync.Mutex
	now   func() time.Time
}

// PipelineDeps carries the constructed components into the pipeline.
type PipelineDeps struct {
	Catalog    *Catalog
	Classifier *Classifier
	Extractor  *Extractor
	Enricher   *Enricher
	Recipients *RecipientResolution
	Responder  *Responder
	State      *StateManager
	Operations *Operations
	Banking    banking.Service
}

// NewPipeline wires the orchestrator.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		catalog:    deps.Catalog,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		enricher:   deps.Enricher,
		recipients: deps.Recipients,
		responder:  deps.Responder,
		state:      deps.State,
		operations: deps.Operations,
		banking:    deps.Banking,
		now:        time.Now,
	}
}

// State exposes the session state manager for the boundary layer.
func (p *Pipeline) State() *StateManager { return p.state }

// turnState carries one turn through the pipeline stages.
type turnState struct {
	original   string
	resolved   string
	intent     *model.Intent
	extraction *ExtractionResult
	confidence float64
	fromCache  bool
	fallback   bool
	profile    *model.UserProfile
	refined    bool
	refineWhy  string
}

// Process runs one turn. At most one turn per session is in flight; a second
// call for the same session blocks until the first finishes.
func (p *Pipeline) Process(ctx context.Context, req *model.ProcessRequest) (resp *model.TurnResponse) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Turn processing panicked")
			resp = &model.TurnResponse{
				Status:    model.StatusError,
				ErrorKind: model.ErrKindInternal,
				Message:   "Something went wrong processing your request. Please try again.",
			}
		}
		if resp != nil {
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
			if resp.SessionID == "" {
				resp.SessionID = req.SessionID
			}
		}
	}()

	if err := SanitizeQuery(req.Query); err != nil {
		return &model.TurnResponse{
			Status:    model.StatusError,
			ErrorKind: model.ErrKindValidation,
			Message:   err.Error(),
		}
	}

	if req.SessionID == "" {
		id, err := p.state.CreateSession(ctx)
		if err != nil {
			return &model.TurnResponse{
				Status:    model.StatusError,
				ErrorKind: model.ErrKindInternal,
				Message:   "Could not create a session.",
			}
		}
		req.SessionID = id
	}

	lock := p.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, turnDeadline)
	defer cancel()

	sc := p.state.GetContext(ctx, req.SessionID)

	if pc := sc.PendingClarification; pc != nil && pc.AwaitingResponse {
		return p.handleClarification(ctx, sc, req)
	}
	if pa := p.state.GetPendingApproval(ctx, sc); pa != nil {
		if cancelRe.MatchString(req.Query) {
			return p.cancelApproval(ctx, sc)
		}
		if approveRe.MatchString(req.Query) {
			return p.handleApproval(ctx, sc, req, pa)
		}
		// Anything else abandons the approval implicitly and is processed
		// as a fresh request; the slot stays until it expires or resolves.
	}

	return p.runPipeline(ctx, sc, req)
}

func (p *Pipeline) sessionLock(sessionID string) *sync.Mutex {
	actual, _ := p.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// runPipeline is the main path: resolve references, classify, extract, then
// hand off to finish for enrichment, refinement, and response generation.
func (p *Pipeline) runPipeline(ctx context.Context, sc *model.SessionContext, req *model.ProcessRequest) *model.TurnResponse {
	resolved := req.Query
	if !req.SkipResolution {
		resolved = p.state.ResolveReferences(req.Query, sc)
	}

	classification := p.classifier.Classify(ctx, resolved, &ClassifierContext{LastIntent: sc.LastIntent})
	intent := p.catalog.Get(classification.IntentID)
	if intent == nil {
		resp := &model.TurnResponse{
			Status:     model.StatusInfo,
			Intent:     model.IntentUnknown,
			Confidence: classification.Confidence,
			Message:    "I'm not sure which banking operation you need. You can ask about balances, transfers, cards, or payments.",
			FromCache:  classification.FromCache,
			Fallback:   classification.Fallback,
		}
		p.updateState(ctx, sc, req.Query, resolved, model.IntentUnknown, classification.Confidence, nil, "none", false, "")
		return resp
	}

	hints := &ExtractionHints{LastRecipient: sc.LastRecipient, LastAmount: sc.LastAmount}
	extraction := p.extractor.Extract(ctx, resolved, intent.ID, intent.RequiredEntities, hints)

	ts := &turnState{
		original:   req.Query,
		resolved:   resolved,
		intent:     intent,
		extraction: extraction,
		confidence: classification.Confidence,
		fromCache:  classification.FromCache,
		fallback:   classification.Fallback,
		profile:    req.UserProfile,
	}
	return p.finish(ctx, sc, ts)
}

// finish enriches, refines, generates the response, and applies suspensions
// and execution. Both the main path and clarification resumes land here.
func (p *Pipeline) finish(ctx context.Context, sc *model.SessionContext, ts *turnState) *model.TurnResponse {
	entities := p.enricher.Enrich(ctx, ts.intent, ts.extraction.Entities)
	ts.extraction.Entities = entities

	if recipient, ok := entities[model.EntityRecipient]; ok {
		if recipient.DisambiguationRequired {
			return p.suspendForRecipient(ctx, sc, ts, recipient)
		}
		if recipient.NotFound {
			return p.respond(ts, &model.TurnResponse{
				Status:    model.StatusError,
				ErrorKind: model.ErrKindNotFound,
				Message:   fmt.Sprintf("I couldn't find %q in your saved recipients. You can add them first or check the spelling.", recipient.Text()),
			})
		}
	}

	refinedID, reason := Refine(ts.intent.ID, entities, ts.resolved)
	if refinedID != ts.intent.ID {
		if refined := p.catalog.Get(refinedID); refined != nil {
			log.Info().
				Str("from", ts.intent.ID).
				Str("to", refinedID).
				Str("reason", reason).
				Msg("Intent refined")
			ts.intent = refined
			ts.refined = true
			ts.refineWhy = reason
		}
	}
	p.recomputeMissing(ts)

	gen := p.responder.Generate(ts.intent, ts.extraction, ts.profile)

	switch gen.Status {
	case model.StatusClarificationNeeded:
		return p.suspendForMissing(ctx, sc, ts, gen)
	case model.StatusConfirmationNeeded:
		return p.suspendForApproval(ctx, sc, ts, gen)
	case model.StatusAuthRequired:
		return p.respond(ts, &model.TurnResponse{
			Status:        model.StatusAuthRequired,
			Message:       gen.Message,
			AuthChallenge: gen.AuthChallenge,
		})
	case model.StatusError:
		return p.respond(ts, &model.TurnResponse{
			Status:    model.StatusError,
			ErrorKind: model.ErrKindValidation,
			Message:   gen.Message,
			NextSteps: gen.NextSteps,
		})
	}

	resp := p.respond(ts, &model.TurnResponse{
		Status:   gen.Status,
		Message:  gen.Message,
		Warnings: gen.Warnings,
	})
	if gen.Status == model.StatusSuccess && IsExecutable(ts.intent.ID) {
		if opID, ok := p.operations.ForIntent(ts.intent.ID); ok {
			execution := p.operations.Execute(ctx, opID, ts.extraction.Entities)
			resp.Execution = execution
			if execution.Status == model.OpFailed {
				resp.Status = model.StatusError
				resp.ErrorKind = model.ErrKindInternal
				resp.Message = execution.Message
			} else if execution.Message != "" {
				resp.Message = execution.Message
			}
		}
	}

	action := "response"
	if resp.Execution != nil {
		action = "execution"
	}
	p.updateState(ctx, sc, ts.original, ts.resolved, ts.intent.ID, ts.confidence, ts.extraction.Entities, action, resp.Status == model.StatusSuccess, "")
	return resp
}

// recomputeMissing refreshes the missing-required list against the (possibly
// refined) intent after enrichment has had its chance to fill entities.
func (p *Pipeline) recomputeMissing(ts *turnState) {
	ts.extraction.MissingRequired = nil
	ts.extraction.Suggestions = nil
	for _, req := range ts.intent.RequiredEntities {
		if _, ok := ts.extraction.Entities[req]; ok {
			continue
		}
		ts.extraction.MissingRequired = append(ts.extraction.MissingRequired, req)
		if s, ok := entitySuggestions[req]; ok {
			ts.extraction.Suggestions = append(ts.extraction.Suggestions, s)
		}
	}
	ts.extraction.FollowUpNeeded = len(ts.extraction.MissingRequired) > 0
}

// respond fills the turn-level fields shared by every outcome.
func (p *Pipeline) respond(ts *turnState, resp *model.TurnResponse) *model.TurnResponse {
	resp.Intent = ts.intent.ID
	resp.Confidence = ts.confidence
	resp.Entities = ts.extraction.Entities
	resp.ValidationErrors = ts.extraction.ValidationErrors
	resp.FromCache = ts.fromCache
	resp.Fallback = ts.fallback
	resp.RefinementApplied = ts.refined
	resp.RefinementReason = ts.refineWhy
	return resp
}

func (p *Pipeline) suspendForRecipient(ctx context.Context, sc *model.SessionContext, ts *turnState, recipient model.Entity) *model.TurnResponse {
	options := make([]model.ClarificationOption, 0, len(recipient.Options))
	var labels []string
	for i, opt := range recipient.Options {
		options = append(options, model.ClarificationOption{ID: opt.ID, Label: opt.Name})
		labels = append(labels, fmt.Sprintf("%d. %s (%s)", i+1, opt.Name, opt.BankName))
	}

	pc := &model.PendingClarification{
		Type:             "recipient",
		OriginalIntent:   ts.intent.ID,
		OriginalQuery:    ts.resolved,
		OriginalEntities: ts.extraction.Entities,
		Options:          options,
	}
	if err := p.state.SetPendingClarification(ctx, sc, pc); err != nil {
		log.Warn().Err(err).Msg("Clarification save failed")
	}

	return p.respond(ts, &model.TurnResponse{
		Status:  model.StatusClarificationNeeded,
		Message: fmt.Sprintf("I found several matches for %q. Which one did you mean?\n%s", recipient.Text(), strings.Join(labels, "\n")),
		PendingClarification: &model.ClarificationInfo{
			Type:     "recipient",
			Options:  options,
			Question: "Which recipient did you mean?",
		},
	})
}

func (p *Pipeline) suspendForMissing(ctx context.Context, sc *model.SessionContext, ts *turnState, gen *GeneratedResponse) *model.TurnResponse {
	pc := &model.PendingClarification{
		Type:             "missing_info",
		OriginalIntent:   ts.intent.ID,
		OriginalQuery:    ts.resolved,
		OriginalEntities: ts.extraction.Entities,
		MissingEntities:  ts.extraction.MissingRequired,
	}
	if err := p.state.SetPendingClarification(ctx, sc, pc); err != nil {
		log.Warn().Err(err).Msg("Clarification save failed")
	}

	return p.respond(ts, &model.TurnResponse{
		Status:    model.StatusClarificationNeeded,
		Message:   gen.Message,
		NextSteps: gen.Questions,
		PendingClarification: &model.ClarificationInfo{
			Type:          "missing_info",
			MissingFields: ts.extraction.MissingRequired,
			Question:      strings.Join(gen.Questions, " "),
		},
	})
}

func (p *Pipeline) suspendForApproval(ctx context.Context, sc *model.SessionContext, ts *turnState, gen *GeneratedResponse) *model.TurnResponse {
	amount, _ := ts.extraction.Entities.AmountValue()
	ticket, err := p.banking.RequestTransactionApproval(ctx, ts.intent.ID, amount)
	if err != nil {
		return p.respond(ts, &model.TurnResponse{
			Status:    model.StatusError,
			ErrorKind: model.ErrKindInternal,
			Message:   "Could not start the approval process. Please try again.",
		})
	}

	pa := &model.PendingApproval{
		TransactionType: ts.intent.ID,
		Amount:          amount,
		Intent:          ts.intent.ID,
		Entities:        ts.extraction.Entities,
		ApprovalMethod:  ticket.Method,
		Token:           ticket.Token,
		ExpiresAt:       ticket.ExpiresAt,
		MaxAttempts:     3,
	}
	if err := p.state.SetPendingApproval(ctx, sc, pa); err != nil {
		log.Warn().Err(err).Msg("Approval save failed")
	}

	return p.respond(ts, &model.TurnResponse{
		Status:               model.StatusConfirmationNeeded,
		Message:              gen.Message,
		Warnings:             gen.Warnings,
		RequiresConfirmation: true,
		Approval: &model.ApprovalInfo{
			ApprovalMethod: ticket.Method,
			Token:          ticket.Token,
			Amount:         amount,
			ExpiresInSec:   int(time.Until(ticket.ExpiresAt).Seconds()),
		},
	})
}

// handleClarification treats the utterance as the answer to the pending
// clarification. An unusable answer re-prompts and leaves the slot set.
func (p *Pipeline) handleClarification(ctx context.Context, sc *model.SessionContext, req *model.ProcessRequest) *model.TurnResponse {
	pc := sc.PendingClarification
	intent := p.catalog.Get(pc.OriginalIntent)
	if intent == nil {
		if err := p.state.ClearPendingClarification(ctx, sc); err != nil {
			log.Warn().Err(err).Msg("Clarification clear failed")
		}
		return p.runPipeline(ctx, sc, req)
	}

	if pc.Type == "recipient" {
		option, ok := MatchClarificationOption(pc.Options, req.Query)
		if !ok {
			var labels []string
			for i, opt := range pc.Options {
				labels = append(labels, fmt.Sprintf("%d. %s", i+1, opt.Label))
			}
			return &model.TurnResponse{
				Status:  model.StatusClarificationNeeded,
				Intent:  pc.OriginalIntent,
				Message: fmt.Sprintf("Sorry, I didn't catch that. Please pick one:\n%s", strings.Join(labels, "\n")),
				PendingClarification: &model.ClarificationInfo{
					Type:    "recipient",
					Options: pc.Options,
				},
			}
		}

		entities := p.recipients.ResolveByID(ctx, pc.OriginalEntities, option.ID)
		if err := p.state.ClearPendingClarification(ctx, sc); err != nil {
			log.Warn().Err(err).Msg("Clarification clear failed")
		}
		ts := &turnState{
			original:   req.Query,
			resolved:   pc.OriginalQuery,
			intent:     intent,
			extraction: &ExtractionResult{Entities: entities},
			confidence: 0.95,
			profile:    req.UserProfile,
		}
		return p.finish(ctx, sc, ts)
	}

	// missing_info: extract the still-missing fields from the answer and
	// merge over the original entities.
	hints := &ExtractionHints{LastRecipient: sc.LastRecipient, LastAmount: sc.LastAmount}
	extraction := p.extractor.Extract(ctx, req.Query, pc.OriginalIntent, pc.MissingEntities, hints)

	merged := pc.OriginalEntities.Clone()
	for entityType, entity := range extraction.Entities {
		merged[entityType] = entity
	}

	var stillMissing []model.EntityType
	for _, required := range intent.RequiredEntities {
		if _, ok := merged[required]; !ok {
			stillMissing = append(stillMissing, required)
		}
	}

	if len(stillMissing) > 0 {
		pc.OriginalEntities = merged
		pc.MissingEntities = stillMissing
		if err := p.state.SetPendingClarification(ctx, sc, pc); err != nil {
			log.Warn().Err(err).Msg("Clarification save failed")
		}
		names := make([]string, 0, len(stillMissing))
		var questions []string
		for _, field := range stillMissing {
			names = append(names, friendlyFieldName(field))
			if s, ok := entitySuggestions[field]; ok {
				questions = append(questions, s)
			}
		}
		return &model.TurnResponse{
			Status:    model.StatusClarificationNeeded,
			Intent:    pc.OriginalIntent,
			Entities:  merged,
			Message:   fmt.Sprintf("Thanks. I still need: %s.", strings.Join(names, ", ")),
			NextSteps: questions,
			PendingClarification: &model.ClarificationInfo{
				Type:          "missing_info",
				MissingFields: stillMissing,
				Question:      strings.Join(questions, " "),
			},
		}
	}

	if err := p.state.ClearPendingClarification(ctx, sc); err != nil {
		log.Warn().Err(err).Msg("Clarification clear failed")
	}
	ts := &turnState{
		original:   req.Query,
		resolved:   pc.OriginalQuery,
		intent:     intent,
		extraction: &ExtractionResult{Entities: merged},
		confidence: 0.9,
		profile:    req.UserProfile,
	}
	return p.finish(ctx, sc, ts)
}

// handleApproval verifies the pending approval and executes the suspended
// operation on success.
func (p *Pipeline) handleApproval(ctx context.Context, sc *model.SessionContext, req *model.ProcessRequest, pa *model.PendingApproval) *model.TurnResponse {
	if err := p.state.RecordApprovalAttempt(ctx, sc); err != nil {
		message := "There is no pending approval for this session."
		if err == ErrApprovalMaxAttempts {
			message = "Too many failed verification attempts. The transaction has been cancelled."
		}
		return &model.TurnResponse{
			Status:    model.StatusError,
			ErrorKind: model.ErrKindValidation,
			Message:   message,
		}
	}

	data := req.VerificationData
	if data == nil && pa.ApprovalMethod == model.ApprovalBiometric {
		// An explicit approval keyword on a biometric-only method counts as
		// the biometric tap in the mock flow.
		data = &model.VerificationData{BiometricSuccess: true}
	}

	verified, err := p.banking.VerifyTransactionApproval(ctx, pa.ApprovalMethod, data)
	if err != nil || !verified {
		remaining := pa.MaxAttempts - pa.Attempts
		return &model.TurnResponse{
			Status:    model.StatusError,
			ErrorKind: model.ErrKindValidation,
			Message:   fmt.Sprintf("Verification failed. %d attempt(s) remaining.", remaining),
			Approval: &model.ApprovalInfo{
				ApprovalMethod: pa.ApprovalMethod,
				Token:          pa.Token,
				Amount:         pa.Amount,
			},
		}
	}

	if err := p.state.ClearPendingApproval(ctx, sc); err != nil {
		log.Warn().Err(err).Msg("Approval clear failed")
	}

	resp := &model.TurnResponse{
		Status:     model.StatusSuccess,
		Intent:     pa.Intent,
		Confidence: 1.0,
		Entities:   pa.Entities,
		Message:    "Approved.",
	}
	if IsExecutable(pa.Intent) {
		if opID, ok := p.operations.ForIntent(pa.Intent); ok {
			execution := p.operations.Execute(ctx, opID, pa.Entities)
			resp.Execution = execution
			resp.Message = execution.Message
			if execution.Status == model.OpFailed {
				resp.Status = model.StatusError
				resp.ErrorKind = model.ErrKindInternal
			}
		}
	}

	p.updateState(ctx, sc, req.Query, req.Query, pa.Intent, 1.0, pa.Entities, "approval_execution", resp.Status == model.StatusSuccess, "")
	return resp
}

func (p *Pipeline) cancelApproval(ctx context.Context, sc *model.SessionContext) *model.TurnResponse {
	if err := p.state.ClearPendingApproval(ctx, sc); err != nil {
		log.Warn().Err(err).Msg("Approval clear failed")
	}
	return &model.TurnResponse{
		Status:  model.StatusCancelled,
		Message: "Okay, I've cancelled that transaction. Nothing was moved.",
	}
}

func (p *Pipeline) updateState(ctx context.Context, sc *model.SessionContext, original, resolved, intentID string, confidence float64, entities model.Entities, action string, success bool, errorMessage string) {
	p.state.Update(ctx, sc, original, resolved, &TurnOutcome{
		Intent:       intentID,
		Confidence:   confidence,
		Entities:     entities,
		ActionTaken:  action,
		Success:      success,
		ErrorMessage: errorMessage,
	})
}
