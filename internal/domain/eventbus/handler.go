package eventbus

import "strings"

// Logger is the printf-style sink audit records are written to.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

// AuditHandler turns grant events into audit log lines.
type AuditHandler struct {
	logger Logger
}

func NewAuditHandler(logger Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

func (h *AuditHandler) onStored(data GrantEventData) {
	h.logger.Info("[AUDIT] grant stored key=%s type=%s subject=%s client=%s", data.Key, data.Type, data.SubjectID, data.ClientID)
}

func (h *AuditHandler) onRemoved(data GrantEventData) {
	h.logger.Info("[AUDIT] grant removed key=%s subject=%s client=%s", data.Key, data.SubjectID, data.ClientID)
}

func (h *AuditHandler) onRemovedAll(data FilterEventData) {
	h.logger.Info("[AUDIT] grants removed subject=%s client=%s session=%s type=%s", data.SubjectID, data.ClientID, data.SessionID, data.Type)
}

func (h *AuditHandler) onPruned(data FilterEventData) {
	h.logger.Info("[AUDIT] pruned %d dangling index entries subject=%s keys=%s", len(data.Keys), data.SubjectID, strings.Join(data.Keys, ","))
}

func (h *AuditHandler) onError(data ErrorEventData) {
	h.logger.Warn("[AUDIT] %s failed (%s): %s", data.Operation, data.Kind, data.Message)
}

// Subscriber is the subscription side of a bus.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
}

// SetupAuditHandlers subscribes an AuditHandler to every grant topic.
func SetupAuditHandlers(bus Subscriber, logger Logger) error {
	h := NewAuditHandler(logger)
	subscriptions := []struct {
		topic string
		fn    interface{}
	}{
		{EventGrantStored, h.onStored},
		{EventGrantRemoved, h.onRemoved},
		{EventGrantsRemoved, h.onRemovedAll},
		{EventGrantsPruned, h.onPruned},
		{EventGrantStoreError, h.onError},
	}
	for _, s := range subscriptions {
		if err := bus.Subscribe(s.topic, s.fn); err != nil {
			return err
		}
	}
	return nil
}
