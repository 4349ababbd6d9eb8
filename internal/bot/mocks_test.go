package bot

import (
	"context"
	"sync"
)

// mockDiscord is a programmable DiscordClient that records calls.
type mockDiscord struct {
	mu sync.Mutex

	postErr   error
	postID    string
	posts     []postCall
	updates   []postCall
	updateErr error

	wins        []winCall
	announceErr error

	ownerDMs   []string
	ownerDMErr error

	members    []string
	membersErr error
}

type postCall struct {
	channelID string
	messageID string
	title     string
	status    string
}

type winCall struct {
	channelID   string
	userTag     string
	prizeName   string
	ticketsLeft int
}

func (m *mockDiscord) PostRafflePost(_ context.Context, channelID, title, _, status string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	id := m.postID
	if id == "" {
		id = "msg1"
	}
	m.posts = append(m.posts, postCall{channelID: channelID, messageID: id, title: title, status: status})
	return id, nil
}

func (m *mockDiscord) UpdateRafflePost(_ context.Context, channelID, messageID, title, _, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, postCall{channelID: channelID, messageID: messageID, title: title, status: status})
	return nil
}

func (m *mockDiscord) AnnounceWin(_ context.Context, channelID, userTag, prizeName string, ticketsLeft int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.announceErr != nil {
		return m.announceErr
	}
	m.wins = append(m.wins, winCall{channelID: channelID, userTag: userTag, prizeName: prizeName, ticketsLeft: ticketsLeft})
	return nil
}

func (m *mockDiscord) OwnerDM(_ context.Context, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ownerDMErr != nil {
		return m.ownerDMErr
	}
	m.ownerDMs = append(m.ownerDMs, text)
	return nil
}

func (m *mockDiscord) NonBotMemberIDs(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	return m.members, nil
}
