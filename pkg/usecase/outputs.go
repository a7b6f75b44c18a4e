package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/singleflight"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/model/config"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/service/progress"
	"github.com/intake-lab/prosecoach/pkg/service/safety"
	"github.com/intake-lab/prosecoach/pkg/utils/logging"
)

//go:embed prompt/outputs_system.md
var outputsSystemPromptTmpl string

var outputsSystemPrompt = template.Must(template.New("outputs_system").Parse(outputsSystemPromptTmpl))

const fallbackTimelineCap = 8

// OutputUseCase generates and caches the presentation packet for a session.
// Generation is expensive, so concurrent requests for the same session are
// collapsed into a single flight and everyone gets the one result.
type OutputUseCase struct {
	repo    interfaces.Repository
	cfg     *config.IntakeConfig
	llm     gollem.LLMClient
	timeout time.Duration
	nowFn   func() time.Time

	group singleflight.Group
}

// Generate returns the session's presentation packet. The cached packet is
// reused until the caller asks for regeneration; generation failures degrade
// to a deterministic packet built from the fact record alone.
func (uc *OutputUseCase) Generate(ctx context.Context, id types.SessionID, regenerate bool) (*model.Packet, error) {
	if strings.TrimSpace(id.String()) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "session ID is required")
	}

	v, err, _ := uc.group.Do(id.String(), func() (any, error) {
		return uc.generate(ctx, id, regenerate)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Packet), nil
}

func (uc *OutputUseCase) generate(ctx context.Context, id types.SessionID, regenerate bool) (*model.Packet, error) {
	logger := logging.From(ctx)

	s, err := uc.repo.Session().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !regenerate && s.Outputs != nil && s.Outputs.Packet != nil {
		return s.Outputs.Packet.Clone(), nil
	}

	packet, genErr := uc.generatePacket(ctx, s)
	if genErr != nil {
		logger.Warn("packet generation failed, using deterministic fallback",
			"session_id", s.ID,
			"error", genErr.Error(),
		)
		packet = uc.fallbackPacket(s)
	}
	packet.SafetyFlags = uc.packetSafetyFlags(s)

	now := uc.nowFn().UTC()
	s.Outputs = &model.OutputsCache{
		GeneratedAt: now,
		Packet:      packet,
	}
	s.Touch(now)

	if err := uc.repo.Session().Update(ctx, s); err != nil {
		return nil, goerr.Wrap(err, "failed to persist generated packet", goerr.V("session_id", s.ID))
	}

	return packet.Clone(), nil
}

// packetSafetyFlags re-assesses the latest user message so the packet always
// carries a current safety verdict, with the danger marker first when urgent.
func (uc *OutputUseCase) packetSafetyFlags(s *model.Session) []string {
	assessment := safety.Assess(s.LastUserText())
	flags := model.MergeSafetyFlags(s.Facts.SafetyFlags, assessment.Flags)
	if assessment.IsUrgent() || s.Facts.SafetyLevel.Normalize() == types.SafetyLevelUrgent {
		flags = model.MergeSafetyFlags([]string{"danger_possible_immediate_risk"}, flags)
	}
	return flags
}

// generatedPacket is the structured object the collaborator must return
type generatedPacket struct {
	OralScript2Min    string                `json:"oral_script_2min"`
	OralOutline5Min   string                `json:"oral_outline_5min"`
	Timeline          []model.TimelineEntry `json:"timeline"`
	EvidenceChecklist []string              `json:"evidence_checklist"`
	Gaps              []string              `json:"gaps"`
	ReviewerPacket    model.ReviewerPacket  `json:"reviewer_packet"`
}

func (uc *OutputUseCase) generatePacket(ctx context.Context, s *model.Session) (*model.Packet, error) {
	if uc.llm == nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "no LLM client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	systemPrompt, err := uc.buildOutputsSystemPrompt(s)
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "failed to build system prompt", goerr.V("cause", err.Error()))
	}

	session, err := uc.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(packetResponseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "failed to create LLM session", goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text("Generate the presentation packet for this session."))
	if err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator call failed", goerr.V("cause", err.Error()))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator returned no content")
	}

	var parsed generatedPacket
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator response is not valid JSON", goerr.V("response", resp.Texts[0]))
	}

	packet := &model.Packet{
		OralScript2Min:    strings.TrimSpace(parsed.OralScript2Min),
		OralOutline5Min:   strings.TrimSpace(parsed.OralOutline5Min),
		Timeline:          parsed.Timeline,
		EvidenceChecklist: parsed.EvidenceChecklist,
		Gaps:              parsed.Gaps,
		ReviewerPacket:    parsed.ReviewerPacket,
	}
	if err := packet.Validate(); err != nil {
		return nil, goerr.Wrap(ErrGenerationFailed, "collaborator returned a malformed packet", goerr.V("cause", err.Error()))
	}

	// Generated filler is replaced with the deterministic equivalents so a
	// lazy collaborator cannot thin out the packet.
	if len(packet.Timeline) == 0 {
		packet.Timeline = fallbackTimeline(s.Facts)
	}
	if len(packet.EvidenceChecklist) == 0 {
		packet.EvidenceChecklist = fallbackEvidenceChecklist(s.Facts)
	}
	if len(packet.Gaps) == 0 {
		packet.Gaps = progress.Gaps(s, uc.cfg.PromptsFor(s.Track))
	}
	normalizeReviewerPacket(&packet.ReviewerPacket, s)

	return packet, nil
}

type outputsPromptData struct {
	Jurisdiction string
	Track        string
	FactsJSON    string
	Conversation string
}

func (uc *OutputUseCase) buildOutputsSystemPrompt(s *model.Session) (string, error) {
	factsJSON, err := json.Marshal(s.Facts)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode facts for prompt")
	}

	var sb strings.Builder
	for _, msg := range s.RecentMessages(uc.cfg.HistoryWindow) {
		sb.WriteString(strings.ToUpper(msg.Role.String()))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	conversation := sb.String()
	if conversation == "" {
		conversation = "(none)\n"
	}

	var buf bytes.Buffer
	if err := outputsSystemPrompt.Execute(&buf, outputsPromptData{
		Jurisdiction: s.Jurisdiction,
		Track:        s.Track.String(),
		FactsJSON:    string(factsJSON),
		Conversation: conversation,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute outputs system prompt template")
	}
	return buf.String(), nil
}

func packetResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "PresentationPacket",
		Description: "Courtroom presentation materials built from the intake record",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"oral_script_2min": {
				Type:        gollem.TypeString,
				Description: "First-person script readable aloud in about two minutes.",
				Required:    true,
			},
			"oral_outline_5min": {
				Type:        gollem.TypeString,
				Description: "Bullet outline for a longer hearing.",
				Required:    true,
			},
			"timeline": {
				Type:        gollem.TypeArray,
				Description: "Key events oldest first. Use Unknown/approx when no date was given.",
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"date":  {Type: gollem.TypeString, Required: true},
						"event": {Type: gollem.TypeString, Required: true},
					},
				},
			},
			"evidence_checklist": {
				Type:        gollem.TypeArray,
				Description: "Concrete evidence items to gather or bring.",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"gaps": {
				Type:        gollem.TypeArray,
				Description: "What is still missing or weak, phrased as actions.",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"reviewer_packet": {
				Type:        gollem.TypeObject,
				Description: "Condensed summary for a human reviewer.",
				Properties: map[string]*gollem.Parameter{
					"jurisdiction": {Type: gollem.TypeString},
					"track":        {Type: gollem.TypeString},
					"goal_relief":  {Type: gollem.TypeString},
					"key_facts":    {Type: gollem.TypeArray, Items: &gollem.Parameter{Type: gollem.TypeString}},
					"key_requests": {Type: gollem.TypeArray, Items: &gollem.Parameter{Type: gollem.TypeString}},
				},
			},
		},
	}
}

// fallbackPacket builds the deterministic packet from the fact record alone.
// Every field must be usable in court as-is; placeholders name what to fill
// in rather than pretending to know it.
func (uc *OutputUseCase) fallbackPacket(s *model.Session) *model.Packet {
	f := s.Facts

	goal := strings.TrimSpace(f.GoalRelief)
	if goal == "" {
		goal = "the relief I am requesting (to be stated specifically)"
	}

	timeline := fallbackTimeline(f)

	packet := &model.Packet{
		OralScript2Min:    fallbackScript(s, goal, timeline),
		OralOutline5Min:   fallbackOutline(s, goal, timeline),
		Timeline:          timeline,
		EvidenceChecklist: fallbackEvidenceChecklist(f),
		Gaps:              progress.Gaps(s, uc.cfg.PromptsFor(s.Track)),
	}
	normalizeReviewerPacket(&packet.ReviewerPacket, s)
	return packet
}

// fallbackTimeline prefers the structured timeline, then key events or the
// user's story split into lines, capped so the packet stays readable.
func fallbackTimeline(f model.Facts) []model.TimelineEntry {
	if len(f.Timeline) > 0 {
		out := make([]model.TimelineEntry, 0, len(f.Timeline))
		for _, entry := range f.Timeline {
			if strings.TrimSpace(entry.Date) == "" {
				entry.Date = "Unknown/approx"
			}
			out = append(out, entry)
			if len(out) == fallbackTimelineCap {
				break
			}
		}
		return out
	}

	source := f.KeyEvents
	if strings.TrimSpace(source) == "" {
		source = f.UserStory
	}

	var out []model.TimelineEntry
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line == "" {
			continue
		}
		out = append(out, model.TimelineEntry{Date: "Unknown/approx", Event: line})
		if len(out) == fallbackTimelineCap {
			break
		}
	}
	return out
}

func fallbackEvidenceChecklist(f model.Facts) []string {
	if len(f.Evidence) > 0 {
		return append([]string(nil), f.Evidence...)
	}
	return []string{
		"Text messages or emails related to the key events",
		"Photos or videos (injuries, property, screenshots)",
		"Police reports or incident numbers, if any",
		"Medical records, if any",
		"Names and contact information of witnesses",
		"Relevant documents (lease, orders, agreements, notices)",
	}
}

func fallbackScript(s *model.Session, goal string, timeline []model.TimelineEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Good morning, Your Honor. I am representing myself in this %s matter in %s.\n\n",
		strings.ReplaceAll(s.Track.String(), "_", " "), s.Jurisdiction)
	sb.WriteString("I am here today because I am asking the court for the following: ")
	sb.WriteString(goal)
	sb.WriteString(".\n\nBriefly, these are the key events:\n")
	if len(timeline) == 0 {
		sb.WriteString("- (I will summarize the key events in date order.)\n")
	}
	for _, entry := range timeline {
		fmt.Fprintf(&sb, "- %s: %s\n", entry.Date, entry.Event)
	}
	sb.WriteString("\nI have evidence supporting what I described, and I can provide it to the court.\n")
	sb.WriteString("For these reasons, I respectfully ask the court to grant the relief I described. Thank you, Your Honor.")
	return sb.String()
}

func fallbackOutline(s *model.Session, goal string, timeline []model.TimelineEntry) string {
	var sb strings.Builder
	sb.WriteString("1. Introduction\n")
	fmt.Fprintf(&sb, "   - Self-represented, %s matter, %s\n", strings.ReplaceAll(s.Track.String(), "_", " "), s.Jurisdiction)
	fmt.Fprintf(&sb, "   - Relief requested: %s\n", goal)
	sb.WriteString("2. Key events (date order)\n")
	if len(timeline) == 0 {
		sb.WriteString("   - (list 3-6 key events with dates)\n")
	}
	for _, entry := range timeline {
		fmt.Fprintf(&sb, "   - %s: %s\n", entry.Date, entry.Event)
	}
	sb.WriteString("3. Evidence\n")
	sb.WriteString("   - Walk through each item and what it shows\n")
	sb.WriteString("4. Requested relief\n")
	fmt.Fprintf(&sb, "   - Restate specifically: %s\n", goal)
	sb.WriteString("5. Anticipated questions\n")
	sb.WriteString("   - What the other side may say, and the short response\n")
	return sb.String()
}

// normalizeReviewerPacket fills the reviewer packet's identity fields from the
// session record, which is authoritative over anything generated.
func normalizeReviewerPacket(rp *model.ReviewerPacket, s *model.Session) {
	rp.Jurisdiction = s.Jurisdiction
	rp.Track = s.Track.String()
	if strings.TrimSpace(rp.GoalRelief) == "" {
		rp.GoalRelief = s.Facts.GoalRelief
	}
	if len(rp.KeyFacts) == 0 {
		f := s.Facts
		var facts []string
		if strings.TrimSpace(f.UserStory) != "" {
			facts = append(facts, f.UserStory)
		}
		for _, entry := range f.Timeline {
			facts = append(facts, strings.TrimSpace(entry.Date+": "+entry.Event))
			if len(facts) >= fallbackTimelineCap {
				break
			}
		}
		rp.KeyFacts = facts
	}
	if len(rp.KeyRequests) == 0 && strings.TrimSpace(s.Facts.GoalRelief) != "" {
		rp.KeyRequests = []string{s.Facts.GoalRelief}
	}
}
