package universe

import (
	"github.com/sessamekesh/universe-client/pkg/message"
	"go.uber.org/zap"
)

// SendChat queues a chat message. Messages beyond the configured rate are
// dropped and reported as false.
func (c *UniverseClient) SendChat(text string, mode message.ChatSendMode) bool {
	if c.session == nil || text == "" {
		return false
	}
	if !c.chatLimiter.AllowN(c.params.Now(), 1) {
		c.stats.ChatMessagesDropped++
		c.log.Debug("Dropping chat message over the rate limit")
		return false
	}

	c.session.conn.Push(&message.ChatSend{Text: text, Mode: mode})
	c.stats.ChatMessagesSent++
	if mode == message.ChatSendMode_Local {
		c.player.SetChatBubble(text)
	}
	return true
}

// PullChatMessages returns and clears received chat messages.
func (c *UniverseClient) PullChatMessages() []message.ChatReceive {
	out := c.chatMessages
	c.chatMessages = nil
	if len(out) > 0 {
		c.log.Debug("Delivering chat messages", zap.Int("count", len(out)))
	}
	return out
}
