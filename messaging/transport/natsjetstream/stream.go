package natsjetstream

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
)

// streamConfig 事件按时间保留，不随确认删除；各实例的消费者互不影响
func streamConfig(cfg Config) *nats.StreamConfig {
	sc := &nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
		Discard:   nats.DiscardOld,
	}
	if cfg.Replicas > 0 {
		sc.Replicas = cfg.Replicas
	}
	return sc
}

// ensureStream 已存在时不修改
func ensureStream(js nats.JetStreamContext, cfg Config) error {
	_, err := js.StreamInfo(cfg.Stream)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(streamConfig(cfg))
	}
	return err
}

var durableEscaper = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// durableName 形如 natours-node-1-tour_created，名称里不能出现 . * >
func durableName(cfg Config, messageType string) string {
	if messageType == "*" {
		messageType = "all"
	}
	return durableEscaper.Replace(cfg.DurablePrefix + cfg.Instance + "-" + messageType)
}
