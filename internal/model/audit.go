package model

import "time"

// AuditEntry is one row of the activity trail written by the audit hook.
type AuditEntry struct {
    ID        string    `json:"id" bson:"_id"`
    ActorID   uint64    `json:"actor_id" bson:"actor_id"`
    ActorRole string    `json:"actor_role" bson:"actor_role"`
    Action    string    `json:"action" bson:"action"`
    Target    string    `json:"target" bson:"target"`
    Status    int       `json:"status" bson:"status"`
    At        time.Time `json:"at" bson:"at"`
}
