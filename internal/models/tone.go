package models

import (
	"fmt"
	"strings"
)

// Tone is the formality label of a message or a user baseline
type Tone string

const (
	ToneCasual  Tone = "casual"
	ToneNeutral Tone = "neutral"
	ToneFormal  Tone = "formal"
)

// IsValid reports whether t is one of the known tones
func (t Tone) IsValid() bool {
	switch t {
	case ToneCasual, ToneNeutral, ToneFormal:
		return true
	default:
		return false
	}
}

// ParseTone converts a raw string into a Tone, rejecting unknown values
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid tone: %q (must be 'casual', 'neutral', or 'formal')", s)
	}
	return t, nil
}

// ToneProfile holds relative formality weights for a user.
// Weights have no fixed total; only their relative magnitude matters.
type ToneProfile struct {
	Casual  int `json:"casual"`
	Neutral int `json:"neutral"`
	Formal  int `json:"formal"`
}

// DefaultToneProfile is assigned to users on creation
func DefaultToneProfile() ToneProfile {
	return ToneProfile{Casual: 0, Neutral: 50, Formal: 50}
}

// Validate rejects negative weights
func (p ToneProfile) Validate() error {
	if p.Casual < 0 || p.Neutral < 0 || p.Formal < 0 {
		return fmt.Errorf("tone profile weights must be non-negative: %+v", p)
	}
	return nil
}

// Dominant returns the tone with the largest weight.
// Ties resolve neutral first, then formal, then casual.
func (p ToneProfile) Dominant() Tone {
	best, weight := ToneNeutral, p.Neutral
	if p.Formal > weight {
		best, weight = ToneFormal, p.Formal
	}
	if p.Casual > weight {
		best = ToneCasual
	}
	return best
}

// EmailContext is the signal extracted from the email being replied to.
// It is never persisted.
type EmailContext struct {
	SenderName      string `json:"senderName"`
	Subject         string `json:"subject"`
	SenderTone      Tone   `json:"senderTone"`
	OriginalContent string `json:"originalContent"`
}
