package ai

import (
	"context"

	"github.com/RedRangerWentWild/IITR1/internal/models"
)

// Completer sends one system/user prompt pair to a language model and
// returns the raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Conversion is a validated model result
type Conversion struct {
	Subject      string      `json:"subject"`
	Body         string      `json:"body"`
	DetectedTone models.Tone `json:"detectedTone"`
}
