package models

import (
	"errors"
	"math"
	"time"
)

// Actions an operator can configure for flagged content.
const (
	ActionRecord = "record"
	ActionIgnore = "ignore"
	ActionDelete = "delete"
)

var ErrThresholdOutOfRange = errors.New("score threshold must be within [0, 1]")

// MaskedToken replaces the scoring token in responses. An update carrying it
// back keeps the stored token.
const MaskedToken = "********"

// ModerationPolicy is the operator-controlled configuration of the auto-check
// pipeline. It is stored as a single row and re-read at the start of every run.
type ModerationPolicy struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	AutoCheckEnabled bool      `gorm:"not null;default:false" json:"abuseMLCheck"`
	ScoringEndpoint  string    `gorm:"size:512" json:"abuseMLInfoUrl"`
	ScoringToken     string    `gorm:"size:8192" json:"abuseMLInfoToken"`
	ActionOnFlag     string    `gorm:"size:64;not null;default:record" json:"abuseReportMLAction"`
	ScoreThreshold   float64   `gorm:"not null;default:0.5" json:"abuseMLInfoScore"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Validate checks the invariants that must hold before a policy is stored.
// Unknown actions are accepted; they are treated as "record" when applied.
func (p *ModerationPolicy) Validate() error {
	if math.IsNaN(p.ScoreThreshold) || p.ScoreThreshold < 0 || p.ScoreThreshold > 1 {
		return ErrThresholdOutOfRange
	}
	return nil
}

// HasBackend reports whether both the scoring endpoint and token are set.
// Without them the pipeline is disabled.
func (p *ModerationPolicy) HasBackend() bool {
	return p.ScoringEndpoint != "" && p.ScoringToken != ""
}

// Masked returns a copy that is safe to send to clients.
func (p ModerationPolicy) Masked() ModerationPolicy {
	if p.ScoringToken != "" {
		p.ScoringToken = MaskedToken
	}
	return p
}

// PolicyUpdate is a partial change to the policy. Nil fields are left as they are.
type PolicyUpdate struct {
	AutoCheckEnabled *bool    `json:"abuseMLCheck"`
	ActionOnFlag     *string  `json:"abuseReportMLAction"`
	ScoringEndpoint  *string  `json:"abuseMLInfoUrl"`
	ScoringToken     *string  `json:"abuseMLInfoToken"`
	ScoreThreshold   *float64 `json:"abuseMLInfoScore"`
}

func (u PolicyUpdate) Apply(p *ModerationPolicy) {
	if u.AutoCheckEnabled != nil {
		p.AutoCheckEnabled = *u.AutoCheckEnabled
	}
	if u.ActionOnFlag != nil {
		p.ActionOnFlag = *u.ActionOnFlag
	}
	if u.ScoringEndpoint != nil {
		p.ScoringEndpoint = *u.ScoringEndpoint
	}
	if u.ScoringToken != nil && *u.ScoringToken != MaskedToken {
		p.ScoringToken = *u.ScoringToken
	}
	if u.ScoreThreshold != nil {
		p.ScoreThreshold = *u.ScoreThreshold
	}
}
