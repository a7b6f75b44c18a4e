package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ReviewerPacket is the condensed summary a human reviewer reads first
type ReviewerPacket struct {
	Jurisdiction string   `json:"jurisdiction"`
	Track        string   `json:"track"`
	GoalRelief   string   `json:"goal_relief"`
	KeyFacts     []string `json:"key_facts"`
	KeyRequests  []string `json:"key_requests"`
}

// Packet is the generated presentation artifact for a session: what the
// litigant brings into the courtroom.
type Packet struct {
	OralScript2Min    string          `json:"oral_script_2min"`
	OralOutline5Min   string          `json:"oral_outline_5min"`
	Timeline          []TimelineEntry `json:"timeline"`
	EvidenceChecklist []string        `json:"evidence_checklist"`
	Gaps              []string        `json:"gaps"`
	ReviewerPacket    ReviewerPacket  `json:"reviewer_packet"`
	SafetyFlags       []string        `json:"safety_flags"`
}

// Validate rejects packets without a usable script and outline. A generated
// packet missing either is treated as malformed and discarded.
func (p *Packet) Validate() error {
	if strings.TrimSpace(p.OralScript2Min) == "" {
		return goerr.New("packet oral script is empty")
	}
	if strings.TrimSpace(p.OralOutline5Min) == "" {
		return goerr.New("packet oral outline is empty")
	}
	return nil
}

// Clone returns a deep copy of the packet
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	out := *p
	out.Timeline = append([]TimelineEntry(nil), p.Timeline...)
	out.EvidenceChecklist = append([]string(nil), p.EvidenceChecklist...)
	out.Gaps = append([]string(nil), p.Gaps...)
	out.SafetyFlags = append([]string(nil), p.SafetyFlags...)
	out.ReviewerPacket.KeyFacts = append([]string(nil), p.ReviewerPacket.KeyFacts...)
	out.ReviewerPacket.KeyRequests = append([]string(nil), p.ReviewerPacket.KeyRequests...)
	return &out
}
