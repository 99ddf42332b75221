package alert

import (
	"context"

	"pulsewatch/internals/modules/channel"

	"github.com/rs/zerolog"
)

// Router picks a notifier by channel type and falls back when none is
// registered.
type Router struct {
	byType   map[channel.Type]Notifier
	fallback Notifier
}

func NewRouter(fallback Notifier) *Router {
	return &Router{
		byType:   make(map[channel.Type]Notifier),
		fallback: fallback,
	}
}

// Register binds a notifier to one or more channel types.
func (r *Router) Register(n Notifier, types ...channel.Type) *Router {
	for _, t := range types {
		r.byType[t] = n
	}
	return r
}

func (r *Router) Notify(ctx context.Context, ch channel.Channel, msg Message) error {
	if n, ok := r.byType[ch.Type]; ok {
		return n.Notify(ctx, ch, msg)
	}
	return r.fallback.Notify(ctx, ch, msg)
}

// LogNotifier writes alerts to the log. Used when no gateway is configured
// for a channel type.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ch channel.Channel, msg Message) error {
	n.logger.Info().
		Str("channel_type", string(ch.Type)).
		Str("destination", ch.Destination).
		Str("monitor_id", msg.MonitorID.String()).
		Str("kind", string(msg.Kind)).
		Msg(msg.Subject())
	return nil
}
