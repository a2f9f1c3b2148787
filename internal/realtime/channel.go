// Package realtime pushes messages to connected WebSocket clients.  Every
// client is subscribed to three channels: its own user channel, its role
// channel and the broadcast channel.  Channel names are built only here.
package realtime

import (
	"strconv"
	"strings"

	"github.com/iliyamo/circulink/internal/model"
)

// Channel names a delivery target.
type Channel string

// Broadcast reaches every connected client.
const Broadcast Channel = "broadcast"

// User is the private channel of one user.
func User(id uint64) Channel { return Channel("user:" + strconv.FormatUint(id, 10)) }

// Role is the channel shared by every user with the given role.
func Role(role string) Channel {
	return Channel("role:" + strings.ToLower(strings.TrimSpace(role)))
}

// ChannelsFor lists the channels a user with role joins on connect.
func ChannelsFor(userID uint64, role model.Role) []Channel {
	return []Channel{User(userID), Role(string(role)), Broadcast}
}

// Message is the envelope written to clients as JSON.
type Message struct {
	Type    string  `json:"type"`
	Channel Channel `json:"channel,omitempty"`
	Data    any     `json:"data,omitempty"`
}

// Message types.
const (
	TypeNotification = "notification"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeWelcome      = "welcome"
)
