package dashboard

import (
	"sync"

	"github.com/Brownie44l1/osteo-care/internal/preprocess"
)

// idle marks a chat with no questionnaire in progress.
const idle = -1

// conversation is what the bot remembers about one chat.
type conversation struct {
	// step is the index of the question awaiting an answer, or idle.
	step    int
	answers preprocess.Answers
	user    string
}

// conversations is an in-memory per-chat state store.
type conversations struct {
	mu    sync.RWMutex
	chats map[int64]conversation
}

func newConversations() *conversations {
	return &conversations{chats: make(map[int64]conversation)}
}

// get returns the chat's state, creating an idle one if it has none.
func (c *conversations) get(chatID int64) conversation {
	c.mu.RLock()
	conv, ok := c.chats[chatID]
	c.mu.RUnlock()
	if !ok {
		return conversation{step: idle}
	}
	return conv
}

// update applies fn to the chat's state under the write lock.
func (c *conversations) update(chatID int64, fn func(*conversation)) conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.chats[chatID]
	if !ok {
		conv = conversation{step: idle}
	}
	fn(&conv)
	c.chats[chatID] = conv
	return conv
}
