// Package moderation maps an external text classifier's verdict onto the
// admission policy: any flagged result rejects the content, and any failure
// to get a verdict is surfaced as an error so callers fail closed.
package moderation

import (
	"context"
	"fmt"
	"time"
)

// Result is the classifier's verdict for one piece of text.
type Result struct {
	Flagged    bool
	Categories []string
}

// Classifier is the external text-safety service, consumed as a black box.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Gate applies the moderation policy with a bounded call time.
type Gate struct {
	classifier Classifier
	timeout    time.Duration
}

func NewGate(classifier Classifier, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{classifier: classifier, timeout: timeout}
}

// Review classifies text. A flagged verdict means the content must be
// rejected regardless of which categories triggered; categories are returned
// for server-side logging only and must never reach the client. A non-nil
// error means no verdict was obtained and the submission must not proceed.
func (g *Gate) Review(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.classifier.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("moderation: %w", err)
	}
	return res, nil
}
