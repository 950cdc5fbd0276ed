package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Channel describes one chat widget: the endpoints it talks to and how it polls.
type Channel struct {
	Name           string
	StartPath      string // empty when the channel attaches to existing sessions only
	SendPath       string
	HistoryPath    string
	ListPath       string // owner inbox listing, empty otherwise
	PollInterval   time.Duration
	VisitorLabel   string
	ResponderLabel string
}

// CanStart reports whether the channel can open new sessions
func (c Channel) CanStart() bool {
	return c.StartPath != ""
}

const (
	ChannelCustomer = "customer"
	ChannelOwner    = "owner"
	ChannelAI       = "ai"
)

// DefaultPollInterval is the tick period of the user-facing widgets
const DefaultPollInterval = 4 * time.Second

var channels = map[string]Channel{
	ChannelCustomer: {
		Name:           ChannelCustomer,
		StartPath:      "/api/v1/chat/start-session",
		SendPath:       "/api/v1/chat/send-message",
		HistoryPath:    "/api/v1/chat/history",
		PollInterval:   DefaultPollInterval,
		VisitorLabel:   "you",
		ResponderLabel: "host",
	},
	ChannelOwner: {
		Name:           ChannelOwner,
		SendPath:       "/api/v1/owner/chat/send-message",
		HistoryPath:    "/api/v1/chat/history",
		ListPath:       "/api/v1/owner/chat/sessions",
		PollInterval:   DefaultPollInterval,
		VisitorLabel:   "customer",
		ResponderLabel: "you",
	},
	ChannelAI: {
		Name:           ChannelAI,
		StartPath:      "/api/v1/ai-chat/start-session",
		SendPath:       "/api/v1/ai-chat/send-message",
		HistoryPath:    "/api/v1/ai-chat/history",
		PollInterval:   DefaultPollInterval,
		VisitorLabel:   "you",
		ResponderLabel: "assistant",
	},
}

// LookupChannel returns the channel registered under name
func LookupChannel(name string) (Channel, error) {
	ch, ok := channels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Channel{}, fmt.Errorf("unknown channel: %s (supported: %s)", name, strings.Join(ChannelNames(), ", "))
	}
	return ch, nil
}

// ChannelNames lists the registered channel names in order
func ChannelNames() []string {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
