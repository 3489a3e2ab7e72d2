package sealpost

import (
	"context"
	"sort"
)

// Conversations derives a summary per conversation partner from the
// envelope list. Summaries are ordered by last activity, most recent
// first. The unread count covers incoming envelopes without a read
// timestamp.
func (c *Client) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	envelopes, err := c.apiClient.ListEnvelopes(ctx, "")
	if err != nil {
		return nil, wrapError(err)
	}
	c.cacheEnvelopes(envelopes)

	byPartner := make(map[string]*ConversationSummary)
	for i := range envelopes {
		env := envelopeFromAPI(&envelopes[i])
		partner := env.PartnerID(c.userID)

		summary := byPartner[partner]
		if summary == nil {
			summary = &ConversationSummary{PartnerID: partner}
			byPartner[partner] = summary
		}
		if env.CreatedAt.After(summary.LastMessageAt) {
			summary.LastMessageAt = env.CreatedAt
		}
		if env.SenderID != c.userID && env.ReadAt == nil {
			summary.UnreadCount++
		}
	}

	summaries := make([]ConversationSummary, 0, len(byPartner))
	for _, s := range byPartner {
		summaries = append(summaries, *s)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}

// Messages lists the envelope metadata for one conversation, oldest
// first. The ciphertext is not fetched; use Read to decrypt individual
// messages on demand.
func (c *Client) Messages(ctx context.Context, partnerID string) ([]*Envelope, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	envelopes, err := c.apiClient.ListEnvelopes(ctx, partnerID)
	if err != nil {
		return nil, wrapError(err)
	}
	c.cacheEnvelopes(envelopes)

	result := make([]*Envelope, 0, len(envelopes))
	for i := range envelopes {
		result = append(result, envelopeFromAPI(&envelopes[i]))
	}
	// Server order is already chronological; the stable sort keeps ties
	// in server order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
