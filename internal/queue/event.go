// Package queue carries CircuLink's RabbitMQ traffic: audit events on a
// durable work queue and real-time notifications on a fanout exchange so
// every server instance can push to its own WebSocket clients.
package queue

import (
    "github.com/iliyamo/circulink/internal/model"
    "github.com/iliyamo/circulink/internal/realtime"
)

// AuditEvent is the payload published to the audit queue.
type AuditEvent = model.AuditEntry

// NotificationEvent is published on the fanout exchange.  Origin is the
// publishing instance; consumers deliver every event, their own included,
// because the publisher does not emit locally.
type NotificationEvent struct {
    Channel realtime.Channel `json:"channel"`
    Message realtime.Message `json:"message"`
    Origin  string           `json:"origin"`
}
