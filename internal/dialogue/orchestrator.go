// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/holomush/parley/internal/generation"
)

// farewellPhrases end a conversation when they appear in a chosen option.
var farewellPhrases = []string{"goodbye", "farewell", "leaving", "i should go"}

// QuestUnavailableLine is the fixed reply to the work-request option.
const QuestUnavailableLine = "There's no work available right now. Check back later."

// IsFarewell reports whether option text ends the conversation.
func IsFarewell(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range farewellPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// OrchestratorConfig wires an Orchestrator's collaborators. Store, Generator,
// Workers, Owner and Sink are required.
type OrchestratorConfig struct {
	Store     *SessionStore
	Generator Generator
	Workers   WorkQueue
	Owner     Executor
	Sink      Sink

	// Catalog defaults to DefaultFallbackCatalog.
	Catalog *FallbackCatalog
	// Resolver defaults to a randomly seeded resolver.
	Resolver *SkillCheckResolver
	// Debouncer gates Trigger. Nil disables debouncing.
	Debouncer *Debouncer
	// Events receives gameplay telemetry. Nil disables it.
	Events EventEmitter
}

// EventEmitter accepts fire-and-forget gameplay events.
type EventEmitter interface {
	Emit(eventType string, data map[string]any) bool
}

// Orchestrator drives every conversation's state machine.
//
// Entry points (Trigger, StartSession, SubmitChoice, Talk, Leave, Disconnect)
// run on the owner context. Generation calls run on the work queue and their
// results are posted back to the owner, where they are applied under the
// user's slot lock only if the session's epoch is unchanged.
type Orchestrator struct {
	store     *SessionStore
	generator Generator
	workers   WorkQueue
	owner     Executor
	sink      Sink
	catalog   *FallbackCatalog
	resolver  *SkillCheckResolver
	debouncer *Debouncer
	events    EventEmitter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	switch {
	case cfg.Store == nil:
		return nil, errMissingDependency("a session store")
	case cfg.Generator == nil:
		return nil, errMissingDependency("a generator")
	case cfg.Workers == nil:
		return nil, errMissingDependency("a work queue")
	case cfg.Owner == nil:
		return nil, errMissingDependency("an owner executor")
	case cfg.Sink == nil:
		return nil, errMissingDependency("a sink")
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultFallbackCatalog()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewSkillCheckResolver(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     cfg.Store,
		generator: cfg.Generator,
		workers:   cfg.Workers,
		owner:     cfg.Owner,
		sink:      cfg.Sink,
		catalog:   catalog,
		resolver:  resolver,
		debouncer: cfg.Debouncer,
		events:    cfg.Events,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Close cancels every in-flight generation request. Completions that still
// arrive are applied normally or fall back.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(o.cancel)
}

// Store returns the orchestrator's session store.
func (o *Orchestrator) Store() *SessionStore {
	return o.store
}

// Trigger handles a user interacting with a character. Repeats inside the
// debounce window are absorbed and reported as false.
func (o *Orchestrator) Trigger(ctx context.Context, userID, characterID, characterName string) (bool, error) {
	if o.debouncer != nil && !o.debouncer.Allow(userID, characterID) {
		TriggersDebounced.Inc()
		slog.DebugContext(ctx, "interaction trigger debounced",
			"user_id", userID,
			"character_id", characterID,
		)
		return false, nil
	}
	if err := o.StartSession(ctx, userID, characterID, characterName); err != nil {
		return false, err
	}
	return true, nil
}

// StartSession starts a conversation, superseding any existing one for the
// user, and dispatches the greeting round.
func (o *Orchestrator) StartSession(ctx context.Context, userID, characterID, characterName string) error {
	if userID == "" {
		return ErrInvalidArgs("user")
	}
	if characterID == "" {
		return ErrInvalidArgs("character")
	}

	return o.store.WithLock(userID, func(x *Slot) error {
		s := o.begin(ctx, x, characterID, characterName)
		o.dispatch(ctx, s, generation.StartDialogue(characterID, userID))
		return nil
	})
}

// begin replaces the slot's session. Caller holds the slot lock.
func (o *Orchestrator) begin(ctx context.Context, x *Slot, characterID, characterName string) *Session {
	if x.Session() != nil {
		RecordSessionEnded(EndSuperseded)
	}
	s := x.Start(characterID, characterName)
	SessionsStarted.Inc()
	slog.InfoContext(ctx, "dialogue session started",
		"user_id", s.UserID,
		"character_id", s.CharacterID,
		"epoch", s.Epoch,
	)
	o.emit("dialogue_started", map[string]any{"player": s.UserID, "npc": s.CharacterID})
	return s
}

// AwaitingChoice reports whether userID has options on screen and no
// request in flight.
func (o *Orchestrator) AwaitingChoice(userID string) bool {
	s := o.store.Get(userID)
	return s != nil && s.State == StateAwaitingChoice && !s.Pending()
}

// SubmitChoice applies the user's pick of the 1-based option index.
func (o *Orchestrator) SubmitChoice(ctx context.Context, userID string, index int) error {
	return o.store.WithLock(userID, func(x *Slot) error {
		s := x.Session()
		if s == nil {
			RecordChoice("no_session")
			return ErrNotInConversation(userID)
		}
		if s.Pending() || s.State != StateAwaitingChoice {
			RecordChoice("pending")
			return ErrAwaitingResponse(userID, o.displayName(s))
		}
		if index < 1 || index > len(s.Options) {
			RecordChoice("invalid")
			return ErrInvalidChoice(userID, index, len(s.Options))
		}

		opt := s.Options[index-1]
		logger := slog.With("user_id", userID, "character_id", s.CharacterID, "epoch", s.Epoch)

		if opt.ID == QuestOptionID {
			RecordChoice("quest")
			logger.DebugContext(ctx, "work request answered locally")
			o.present(s, KindDialogue, []string{QuestUnavailableLine}, s.Options)
			return nil
		}

		if opt.Farewell || IsFarewell(opt.Text) {
			RecordChoice("farewell")
			o.end(ctx, x, EndFarewell, "")
			return nil
		}

		var roll *generation.RollResult
		if opt.RollCheck != nil {
			outcome, err := o.resolver.Resolve(*opt.RollCheck)
			if err != nil {
				logger.WarnContext(ctx, "ignoring invalid roll check", "error", err)
			} else {
				o.present(s, KindRoll, []string{outcome.Describe()}, nil)
				o.emit("skill_check", map[string]any{
					"player":  userID,
					"npc":     s.CharacterID,
					"skill":   outcome.Check.Skill,
					"roll":    outcome.Roll,
					"success": outcome.Success,
				})
				roll = &generation.RollResult{
					Skill:      outcome.Check.Skill,
					Difficulty: outcome.Check.Difficulty,
					Roll:       outcome.Roll,
					Rolls:      outcome.Rolls,
					Success:    outcome.Success,
				}
			}
		}

		RecordChoice("dispatched")
		o.dispatch(ctx, s, generation.RespondToChoice(s.ConversationToken, s.CharacterID, userID, opt.Text, roll))
		return nil
	})
}

// Talk sends free text to a character. With no session, or a session with a
// different character, a new session is started without a greeting round.
// An empty characterID talks to the current session's character.
func (o *Orchestrator) Talk(ctx context.Context, userID, characterID, characterName, message string) error {
	if userID == "" {
		return ErrInvalidArgs("user")
	}
	if strings.TrimSpace(message) == "" {
		return ErrInvalidArgs("message")
	}

	return o.store.WithLock(userID, func(x *Slot) error {
		s := x.Session()
		switch {
		case s == nil && characterID == "":
			return ErrNotInConversation(userID)
		case s == nil || (characterID != "" && !strings.EqualFold(s.CharacterID, characterID)):
			s = o.begin(ctx, x, characterID, characterName)
		case s.Pending():
			return ErrAwaitingResponse(userID, o.displayName(s))
		}

		o.dispatch(ctx, s, generation.Talk(userID, s.CharacterID, message, true))
		return nil
	})
}

// Leave ends the user's conversation with a farewell line.
func (o *Orchestrator) Leave(ctx context.Context, userID string) error {
	return o.store.WithLock(userID, func(x *Slot) error {
		if x.Session() == nil {
			return ErrNotInConversation(userID)
		}
		o.end(ctx, x, EndLeave, "")
		return nil
	})
}

// Disconnect silently drops the user's conversation.
func (o *Orchestrator) Disconnect(ctx context.Context, userID string) {
	//nolint:errcheck // callback never fails
	o.store.WithLock(userID, func(x *Slot) error {
		if s := x.Remove(); s != nil {
			RecordSessionEnded(EndDisconnect)
			slog.InfoContext(ctx, "dialogue session ended",
				"user_id", userID,
				"character_id", s.CharacterID,
				"epoch", s.Epoch,
				"reason", EndDisconnect,
			)
		}
		return nil
	})
}

// Notify sends the user a notice outside any conversation round.
func (o *Orchestrator) Notify(userID string, lines ...string) {
	o.sink.Present(Output{UserID: userID, Kind: KindNotice, Lines: lines})
}

// dispatch starts a generation round for s. Caller holds the slot lock.
// When the work queue refuses the job the round falls back immediately.
func (o *Orchestrator) dispatch(ctx context.Context, s *Session, req generation.Request) {
	s.State = StateWaitingForResponse
	s.Options = nil

	reqCtx, cancel := context.WithCancel(o.ctx)
	s.setPending(cancel)

	userID, epoch := s.UserID, s.Epoch
	job := func() {
		reply, err := o.generator.Call(reqCtx, req)
		posted := o.owner.Post(func() {
			o.complete(userID, epoch, reply, err)
		})
		if !posted {
			cancel()
			slog.Debug("owner closed, dropping generation completion",
				"user_id", userID,
				"epoch", epoch,
			)
		}
	}

	slog.DebugContext(ctx, "generation round dispatched",
		"user_id", userID,
		"character_id", s.CharacterID,
		"epoch", epoch,
		"tool", req.Tool,
	)

	if !o.workers.Submit(job) {
		s.clearPending()
		o.fallback(ctx, s, ReasonOverloaded, "")
	}
}

// complete applies a finished generation round. It runs on the owner.
func (o *Orchestrator) complete(userID string, epoch uint64, reply *generation.Reply, callErr error) {
	ctx := o.ctx

	//nolint:errcheck // callback never fails
	o.store.WithLock(userID, func(x *Slot) error {
		s := x.Session()
		if s == nil || s.Epoch != epoch || !s.Pending() {
			StaleCompletions.Inc()
			slog.Debug("stale generation completion discarded",
				"user_id", userID,
				"epoch", epoch,
				"current_epoch", x.Epoch(),
			)
			return nil
		}
		s.clearPending()

		if callErr == nil && reply == nil {
			callErr = ErrInvalidArgs("reply")
		}
		if callErr != nil {
			o.fallback(ctx, s, fallbackReason(callErr), "")
			slog.Warn("generation failed, using fallback dialogue",
				"user_id", userID,
				"character_id", s.CharacterID,
				"epoch", epoch,
				"code", generation.Code(callErr),
				"attempts", generation.Attempts(callErr),
				"error", callErr,
			)
			return nil
		}

		if reply.ConversationID != "" {
			s.ConversationToken = reply.ConversationID
		}
		if s.CharacterName == "" && reply.NPCName != "" {
			s.CharacterName = reply.NPCName
		}
		line := Sanitize(reply.Line())

		if reply.ConversationEnded {
			o.end(ctx, x, EndBackend, line)
			return nil
		}

		opts := convertOptions(reply.DialogueOptions())
		if len(opts) == 0 {
			o.fallback(ctx, s, ReasonNoOptions, line)
			return nil
		}

		s.Options = opts
		s.State = StateAwaitingChoice
		if line != "" {
			s.LastLine = line
		}
		slog.Debug("dialogue round applied",
			"user_id", userID,
			"character_id", s.CharacterID,
			"epoch", epoch,
			"options", len(opts),
		)
		if note := relationshipNote(o.displayName(s), reply); note != "" {
			o.present(s, KindNotice, []string{note}, nil)
		}
		o.present(s, KindDialogue, nonEmpty(line), s.Options)
		return nil
	})
}

// relationshipNote describes a shift in how the character regards the user.
func relationshipNote(name string, reply *generation.Reply) string {
	if reply.RelationshipChange == 0 {
		return ""
	}
	note := name + " warms to you"
	if reply.RelationshipChange < 0 {
		note = name + " cools toward you"
	}
	if rel := reply.NewRelationship; rel != nil && rel.Title != "" {
		note += " (" + rel.Title + ")"
	}
	return note + "."
}

// fallback offers catalog options. line, when set, is the NPC text that came
// with an unusable reply. Caller holds the slot lock.
func (o *Orchestrator) fallback(ctx context.Context, s *Session, reason, line string) {
	RecordFallback(reason)

	if line == "" {
		if s.LastLine == "" {
			line = o.catalog.Greeting(s.CharacterID, s.CharacterName)
		} else {
			line = fmt.Sprintf("%s pauses, considering.", o.displayName(s))
		}
	}

	s.Options = o.catalog.Options(s.CharacterID)
	s.State = StateAwaitingChoice
	s.LastLine = line

	slog.InfoContext(ctx, "dialogue fallback applied",
		"user_id", s.UserID,
		"character_id", s.CharacterID,
		"epoch", s.Epoch,
		"reason", reason,
	)
	o.present(s, KindDialogue, []string{line}, s.Options)
}

// end removes the slot's session and says goodbye. line, when set, replaces
// the catalog farewell. Caller holds the slot lock.
func (o *Orchestrator) end(ctx context.Context, x *Slot, reason, line string) {
	s := x.Remove()
	if s == nil {
		return
	}
	RecordSessionEnded(reason)

	if line == "" {
		line = o.catalog.Farewell(s.CharacterID, s.CharacterName)
	}
	slog.InfoContext(ctx, "dialogue session ended",
		"user_id", s.UserID,
		"character_id", s.CharacterID,
		"epoch", s.Epoch,
		"reason", reason,
	)
	o.present(s, KindFarewell, []string{line}, nil)
	o.emit("dialogue_ended", map[string]any{"player": s.UserID, "npc": s.CharacterID, "reason": reason})
}

func (o *Orchestrator) emit(eventType string, data map[string]any) {
	if o.events != nil {
		o.events.Emit(eventType, data)
	}
}

func (o *Orchestrator) present(s *Session, kind OutputKind, lines []string, opts []Option) {
	out := Output{
		UserID:      s.UserID,
		CharacterID: s.CharacterID,
		Speaker:     o.displayName(s),
		Kind:        kind,
		Lines:       lines,
	}
	if len(opts) > 0 {
		out.Options = renderOptions(opts)
	}
	o.sink.Present(out)
}

func (o *Orchestrator) displayName(s *Session) string {
	return o.catalog.DisplayName(s.CharacterID, s.CharacterName)
}

// convertOptions keeps backend options with text and a usable roll check.
// An option that arrives with QuestOptionID is renumbered past the highest
// id in the round, since that id is answered locally.
func convertOptions(in []generation.Option) []Option {
	out := make([]Option, 0, len(in))
	var reserved []int
	maxID := 0
	for _, o := range in {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			continue
		}
		opt := Option{
			ID:       o.ID,
			Text:     text,
			Tone:     ParseTone(o.Tone),
			Farewell: strings.EqualFold(o.LeadsTo, generation.LeadsToFarewell),
		}
		if o.RollCheck != nil {
			rc := RollCheck{
				Skill:        o.RollCheck.Skill,
				Difficulty:   o.RollCheck.Difficulty,
				Advantage:    o.RollCheck.Advantage,
				Disadvantage: o.RollCheck.Disadvantage,
			}
			if err := rc.Validate(); err != nil {
				slog.Debug("dropping option with invalid roll check", "option_id", o.ID, "error", err)
				continue
			}
			opt.RollCheck = &rc
		}
		if opt.ID == QuestOptionID {
			reserved = append(reserved, len(out))
		} else if opt.ID > maxID {
			maxID = opt.ID
		}
		out = append(out, opt)
	}

	for _, i := range reserved {
		maxID++
		if maxID == QuestOptionID {
			maxID++
		}
		slog.Debug("renumbering option with reserved id", "option_id", maxID)
		out[i].ID = maxID
	}
	return out
}

func fallbackReason(err error) string {
	switch generation.Code(err) {
	case generation.CodeTimeout:
		return ReasonTimeout
	case generation.CodeRejected, generation.CodeBackendError:
		return ReasonRejected
	case generation.CodeMalformedResponse:
		return ReasonMalformed
	default:
		return ReasonFailed
	}
}

func nonEmpty(line string) []string {
	if line == "" {
		return nil
	}
	return []string{line}
}
