package loop

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// =============================================================================
// CONTEXT RENDERING
// =============================================================================

// historyResultLimit caps how much of one result the rendered history keeps,
// so a single oversized tool output cannot crowd out the rest of the context.
const historyResultLimit = 600

// renderActHistory renders the visible history for the next planning call.
// Entries are numbered in append order; injected advisories render like any
// other entry so the model sees its own warnings.
func renderActHistory(history []act.ActionResult) string {
	if len(history) == 0 {
		return "No actions taken yet."
	}

	var b strings.Builder
	for i, r := range history {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, r.Status, r.ActionType, truncate(r.Result, historyResultLimit))
		if r.Notes != "" {
			fmt.Fprintf(&b, "   note: %s\n", truncate(r.Notes, 200))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderOfferBlock describes deferred-card offers pending for the topic. Any
// store failure skips the augmentation; planning proceeds on history alone.
func (r *run) renderOfferBlock(ctx context.Context) string {
	offers, err := safeCall(r.logger, "deferred_card_augmentation", func() ([]OfferCard, error) {
		return r.o.Offers.ListOffers(ctx, r.params.Topic)
	})
	if err != nil {
		r.logger.Debug("card_augmentation_skipped", "error", err.Error())
		return ""
	}
	if len(offers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nPending card offers for this topic:\n")
	for _, offer := range offers {
		fmt.Fprintf(&b, "- %s (offer_id: %s)\n", offer.DisplayName, offer.OfferID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// planActionTypes lists the action types of a plan in order, for logs.
func planActionTypes(actions []act.ActionSpec) []string {
	if len(actions) == 0 {
		return nil
	}
	types := make([]string, len(actions))
	for i, a := range actions {
		types[i] = a.Type
	}
	return types
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
