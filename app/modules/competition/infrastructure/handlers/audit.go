package competitionhandlers

import (
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
)

// HandleLifecycleEvent logs a lifecycle event and counts it. Undecodable payloads are
// logged and acked so they do not redeliver forever.
func (h *CompetitionHandlers) HandleLifecycleEvent(msg *message.Message) error {
	ctx := msg.Context()
	topic := message.SubscribeTopicFromCtx(ctx)

	ctx, span := h.tracer.Start(ctx, "CompetitionHandlers.HandleLifecycleEvent")
	defer span.End()

	h.metrics.RecordEventObserved(ctx, topic)

	switch topic {
	case competitionevents.StatusChangedV1:
		var p competitionevents.StatusChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.WarnContext(ctx, "Dropping malformed status event", slog.String("message_uuid", msg.UUID), slog.Any("error", err))
			return nil
		}
		h.logger.InfoContext(ctx, "Competition status changed",
			slog.String("competition_id", p.CompetitionID.String()),
			slog.String("from", p.From),
			slog.String("to", p.To),
			slog.Bool("manual", p.Manual),
			slog.Time("changed_at", p.ChangedAt),
		)
	case competitionevents.ManualSelectionRequiredV1:
		var p competitionevents.ManualSelectionRequiredPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.WarnContext(ctx, "Dropping malformed tie event", slog.String("message_uuid", msg.UUID), slog.Any("error", err))
			return nil
		}
		h.logger.WarnContext(ctx, "Round 2 tied, manual winner selection required",
			slog.String("competition_id", p.CompetitionID.String()),
			slog.Int("tied", len(p.TiedIDs)),
			slog.Int("top_score", p.TopScore),
		)
	default:
		h.logger.DebugContext(ctx, "Lifecycle event observed",
			slog.String("topic", topic),
			slog.String("message_uuid", msg.UUID),
		)
	}
	return nil
}
