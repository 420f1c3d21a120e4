package coach

import (
	"sync"
	"time"

	"github.com/2beens/apexhq/internal/athlete"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat keeps the transcript of the active athlete only. It is bound to the
// aggregator epoch it was opened at: once the athlete changes (switch, logout)
// the old transcript is gone, and late replies for it are dropped.
type Chat struct {
	mu        sync.Mutex
	athleteID string
	epoch     uint64
	messages  []Message

	NowFunc   func() time.Time
	NewIDFunc func() string
}

func NewChat() *Chat {
	return &Chat{
		NowFunc:   time.Now,
		NewIDFunc: uuid.NewString,
	}
}

// Transcript returns the messages for athlete/epoch, starting a new transcript
// with the welcome message if the previous one belonged to an older epoch.
// A caller holding an outdated epoch gets nothing.
func (c *Chat) Transcript(profile *athlete.Profile, epoch uint64) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.openLocked(profile, epoch) {
		return []Message{}
	}
	return c.copyLocked()
}

// Append adds a message to the transcript of athlete/epoch. It reports false,
// adding nothing, when that transcript has been superseded.
func (c *Chat) Append(profile *athlete.Profile, epoch uint64, role Role, text string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if profile == nil || !c.openLocked(profile, epoch) {
		return Message{}, false
	}

	msg := Message{
		ID:        c.NewIDFunc(),
		Role:      role,
		Text:      text,
		Timestamp: c.NowFunc(),
	}
	c.messages = append(c.messages, msg)
	return msg, true
}

// epochs only grow, so anything older than the open transcript is stale
func (c *Chat) openLocked(profile *athlete.Profile, epoch uint64) bool {
	athleteID := ""
	if profile != nil {
		athleteID = profile.ID
	}
	if c.messages != nil {
		if epoch < c.epoch {
			return false
		}
		if epoch == c.epoch && athleteID == c.athleteID {
			return true
		}
	}

	c.athleteID = athleteID
	c.epoch = epoch
	c.messages = []Message{
		{
			ID:        "welcome",
			Role:      RoleAssistant,
			Text:      WelcomeMessage(profile),
			Timestamp: c.NowFunc(),
		},
	}
	return true
}

func (c *Chat) copyLocked() []Message {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}
