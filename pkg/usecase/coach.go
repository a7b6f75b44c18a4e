package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/model/config"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/service/progress"
	"github.com/intake-lab/prosecoach/pkg/service/safety"
	"github.com/intake-lab/prosecoach/pkg/utils/async"
	"github.com/intake-lab/prosecoach/pkg/utils/logging"
)

//go:embed prompt/coach_system.md
var coachSystemPromptTmpl string

var coachSystemPrompt = template.Must(template.New("coach_system").Parse(coachSystemPromptTmpl))

// CoachReply is what one completed turn returns alongside the updated session
type CoachReply struct {
	AssistantMessage string         `json:"assistant_message"`
	NextQuestions    []string       `json:"next_questions"`
	ExtractedFacts   map[string]any `json:"extracted_facts"`
	MissingFields    []string       `json:"missing_fields"`
	ProgressPercent  int            `json:"progress_percent"`
	SafetyFlags      []string       `json:"safety_flags"`
}

// CoachUseCase runs the per-turn pipeline: safety check, generation (or its
// deterministic fallback), fact folding, progress estimation, persistence.
type CoachUseCase struct {
	repo     interfaces.Repository
	cfg      *config.IntakeConfig
	llm      gollem.LLMClient
	notifier interfaces.Notifier
	timeout  time.Duration
	nowFn    func() time.Time
}

const maxCollaboratorQuestions = 6

// fallbackQuestions templates one follow-up per fact gap, in priority order
var fallbackQuestions = []struct {
	field    string
	question string
}{
	{progress.FieldGoalRelief, "What exactly do you want the judge to do (the result you're asking for)?"},
	{progress.FieldPeople, "Who is involved (names or initials, relationship, and who you are asking about)?"},
	{progress.FieldKeyEventsOrTimeline, "What are the 3-6 most important events in date order (include dates or approximate dates)?"},
	{progress.FieldEvidence, "What proof do you have (texts, emails, photos, witnesses, medical or police records)?"},
}

const fallbackAssistantMessage = "Thanks - I'm going to help you organize this for court. Answer the questions below as clearly as you can (short sentences, dates if possible)."

// HandleTurn processes one user utterance against a session.
//
// The user message is appended before anything else can fail, so even an
// urgent short-circuit leaves the conversation complete. Generation failures
// of any kind degrade to the deterministic fallback; only unknown-session,
// empty-input, and persistence errors reach the caller.
func (uc *CoachUseCase) HandleTurn(ctx context.Context, id types.SessionID, userMessage string) (*model.Session, *CoachReply, error) {
	logger := logging.From(ctx)

	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, nil, goerr.Wrap(ErrInvalidInput, "user message is required")
	}

	s, err := uc.repo.Session().Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	now := uc.nowFn().UTC()
	s.Append(model.NewMessage(types.RoleUser, userMessage, now))

	assessment := safety.Assess(userMessage)

	var reply *CoachReply
	if assessment.IsUrgent() {
		reply = uc.urgentReply(s, assessment)
		uc.dispatchUrgentAlert(ctx, s, reply.SafetyFlags)
	} else {
		generated, genErr := uc.generateReply(ctx, s, userMessage)
		if genErr != nil {
			logger.Warn("coach generation failed, using deterministic fallback",
				"session_id", s.ID,
				"error", genErr.Error(),
			)
			generated = uc.fallbackReply(s, assessment)
		}
		reply = generated

		reply.SafetyFlags = model.MergeSafetyFlags(assessment.Flags, reply.SafetyFlags)

		if len(reply.ExtractedFacts) > 0 {
			merged, mergeErr := s.Facts.Merge(reply.ExtractedFacts)
			if mergeErr != nil {
				// Malformed extraction is a generation defect: drop the facts,
				// keep the reply.
				logger.Warn("dropping unmergeable extracted facts",
					"session_id", s.ID,
					"error", mergeErr.Error(),
				)
				reply.ExtractedFacts = map[string]any{}
			} else {
				s.Facts = merged
				s.PromoteCanonicalFacts()
			}
		}
	}

	s.Facts.SafetyFlags = model.MergeSafetyFlags(s.Facts.SafetyFlags, reply.SafetyFlags)
	s.Facts.SafetyLevel = s.Facts.SafetyLevel.Normalize().Max(assessment.Level)

	s.Append(model.NewMessage(types.RoleAssistant, reply.AssistantMessage, uc.nowFn().UTC()))
	s.Touch(uc.nowFn().UTC())

	if err := uc.repo.Session().Update(ctx, s); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to persist turn", goerr.V("session_id", s.ID))
	}

	return s, reply, nil
}

// urgentReply builds the fixed safety short-circuit: no follow-up questions,
// no fact extraction, no generation.
func (uc *CoachUseCase) urgentReply(s *model.Session, assessment safety.Assessment) *CoachReply {
	return &CoachReply{
		AssistantMessage: assessment.Message,
		NextQuestions:    []string{},
		ExtractedFacts:   map[string]any{},
		MissingFields:    progress.MissingFields(s),
		ProgressPercent:  progress.Percent(s),
		SafetyFlags:      model.MergeSafetyFlags(s.Facts.SafetyFlags, assessment.Flags),
	}
}

// fallbackReply synthesizes a coaching reply without the collaborator: one
// templated question per missing fact gap, capped by configuration.
func (uc *CoachUseCase) fallbackReply(s *model.Session, assessment safety.Assessment) *CoachReply {
	missing := progress.MissingFields(s)
	missingSet := make(map[string]struct{}, len(missing))
	for _, field := range missing {
		missingSet[field] = struct{}{}
	}

	var questions []string
	for _, fq := range fallbackQuestions {
		if _, ok := missingSet[fq.field]; ok {
			questions = append(questions, fq.question)
		}
	}
	if len(questions) == 0 {
		questions = []string{
			"What is the strongest fact that supports what you're asking for?",
			"What is the other side likely to say back, and what would your response be?",
		}
	}
	if len(questions) > uc.cfg.MaxQuestions {
		questions = questions[:uc.cfg.MaxQuestions]
	}

	return &CoachReply{
		AssistantMessage: fallbackAssistantMessage,
		NextQuestions:    questions,
		ExtractedFacts:   map[string]any{},
		MissingFields:    missing,
		ProgressPercent:  progress.Percent(s),
		SafetyFlags:      assessment.Flags,
	}
}

// collaboratorReply is the structured object the collaborator must return
type collaboratorReply struct {
	AssistantMessage string         `json:"assistant_message"`
	NextQuestions    []string       `json:"next_questions"`
	ExtractedFacts   map[string]any `json:"extracted_facts"`
	MissingFields    []string       `json:"missing_fields"`
	ProgressPercent  *float64       `json:"progress_percent"`
	SafetyFlags      []string       `json:"safety_flags"`
}

func (uc *CoachUseCase) generateReply(ctx context.Context, s *model.Session, userMessage string) (*CoachReply, error) {
	if uc.llm == nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "no LLM client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	systemPrompt, err := uc.buildCoachSystemPrompt(s)
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "failed to build system prompt", goerr.V("cause", err.Error()))
	}

	session, err := uc.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(coachResponseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "failed to create LLM session", goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(uc.buildTurnPrompt(s, userMessage)))
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator call failed", goerr.V("cause", err.Error()))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator returned no content")
	}

	var parsed collaboratorReply
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator response is not valid JSON", goerr.V("response", resp.Texts[0]))
	}
	if strings.TrimSpace(parsed.AssistantMessage) == "" {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator response has no assistant message")
	}

	reply := &CoachReply{
		AssistantMessage: strings.TrimSpace(parsed.AssistantMessage),
		NextQuestions:    parsed.NextQuestions,
		ExtractedFacts:   parsed.ExtractedFacts,
		MissingFields:    parsed.MissingFields,
		SafetyFlags:      parsed.SafetyFlags,
	}
	if len(reply.NextQuestions) > maxCollaboratorQuestions {
		reply.NextQuestions = reply.NextQuestions[:maxCollaboratorQuestions]
	}
	if reply.ExtractedFacts == nil {
		reply.ExtractedFacts = map[string]any{}
	}

	// Omitted estimates are recomputed from the session as it stood before
	// this turn's facts are folded in.
	if len(reply.MissingFields) == 0 {
		reply.MissingFields = progress.MissingFields(s)
	}
	if parsed.ProgressPercent != nil {
		reply.ProgressPercent = clampPercent(*parsed.ProgressPercent)
	} else {
		reply.ProgressPercent = progress.Percent(s)
	}

	return reply, nil
}

type coachPromptData struct {
	Jurisdiction string
	Track        string
	FactsJSON    string
}

func (uc *CoachUseCase) buildCoachSystemPrompt(s *model.Session) (string, error) {
	factsJSON, err := json.Marshal(s.Facts)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode facts for prompt")
	}

	var buf bytes.Buffer
	if err := coachSystemPrompt.Execute(&buf, coachPromptData{
		Jurisdiction: s.Jurisdiction,
		Track:        s.Track.String(),
		FactsJSON:    string(factsJSON),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute coach system prompt template")
	}
	return buf.String(), nil
}

// buildTurnPrompt renders the bounded conversation window plus the new
// message. The window excludes the just-appended user message to avoid
// sending it twice.
func (uc *CoachUseCase) buildTurnPrompt(s *model.Session, userMessage string) string {
	history := s.Messages
	if len(history) > 0 && history[len(history)-1].Role == types.RoleUser && history[len(history)-1].Content == userMessage {
		history = history[:len(history)-1]
	}
	if len(history) > uc.cfg.HistoryWindow {
		history = history[len(history)-uc.cfg.HistoryWindow:]
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	if len(history) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, msg := range history {
		sb.WriteString(strings.ToUpper(msg.Role.String()))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nNew user message:\n")
	sb.WriteString(userMessage)
	return sb.String()
}

func coachResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "CoachReply",
		Description: "Structured coaching reply for one intake turn",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"assistant_message": {
				Type:        gollem.TypeString,
				Description: "Reply shown to the user. Plain text, short sentences.",
				Required:    true,
			},
			"next_questions": {
				Type:        gollem.TypeArray,
				Description: "Up to 4 focused follow-up questions.",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"extracted_facts": {
				Type:        gollem.TypeObject,
				Description: "Facts extracted from this turn using the canonical keys. Only include fields you are confident about.",
			},
			"missing_fields": {
				Type:        gollem.TypeArray,
				Description: "Canonical names of signals still missing: jurisdiction, track, goal_relief, people, key_events_or_timeline, evidence.",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"progress_percent": {
				Type:        gollem.TypeNumber,
				Description: "Estimated intake completeness, 0-100.",
			},
			"safety_flags": {
				Type:        gollem.TypeArray,
				Description: "Safety flags, including danger_possible_immediate_risk when the user suggests immediate danger or violence.",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
		},
	}
}

func clampPercent(v float64) int {
	pct := int(math.Round(v))
	if pct < 5 {
		pct = 5
	}
	if pct > 95 {
		pct = 95
	}
	return pct
}

func (uc *CoachUseCase) dispatchUrgentAlert(ctx context.Context, s *model.Session, flags []string) {
	if uc.notifier == nil {
		return
	}
	alerted := s.Clone()
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.notifier.NotifyUrgent(ctx, alerted, flags)
	})
}
