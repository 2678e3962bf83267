package loadboard

import (
	"context"
	"encoding/json"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notifier publishes committed indent writes on the feed channel.
type Notifier struct {
	pub     publisher
	channel string
	logg    *logger.Logger
}

func NewNotifier(pub publisher, channel string, logg *logger.Logger) *Notifier {
	return &Notifier{pub: pub, channel: channel, logg: logg}
}

func (n *Notifier) IndentCreated(ctx context.Context, indent *models.Indent) {
	n.publish(ctx, Change{Op: OpInsert, Indent: CardFromIndent(indent)})
}

func (n *Notifier) IndentUpdated(ctx context.Context, indent *models.Indent) {
	n.publish(ctx, Change{Op: OpUpdate, Indent: CardFromIndent(indent)})
}

// publish is best effort: the write is already committed and viewers resync on reconnect.
func (n *Notifier) publish(ctx context.Context, c Change) {
	if n == nil || n.pub == nil {
		return
	}
	payload, err := json.Marshal(c)
	if err == nil {
		err = n.pub.Publish(context.WithoutCancel(ctx), n.channel, payload)
	}
	if err != nil && n.logg != nil {
		n.logg.Warn(n.logg.WithFields(ctx, map[string]any{
			"indent_id": c.Indent.ID.String(),
			"op":        c.Op,
			"error":     err.Error(),
		}), "feed publish failed")
	}
}
