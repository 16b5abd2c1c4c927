package chatsync

import "teamchat/internal/models"

// ItemState is the lifecycle position of a message in the local log.
//
//	Pending -> Confirmed   (server echoed it)
//	Pending -> dropped     (send failed, or a fetch returned it under its
//	                        server id)
//	Confirmed -> Tombstoned (isDeleted observed on fetch)
type ItemState int

const (
	Pending ItemState = iota
	Confirmed
	Tombstoned
)

func (s ItemState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Tombstoned:
		return "tombstoned"
	}
	return "unknown"
}

// Item is a message as shown locally.
type Item struct {
	models.Message
	State ItemState
	// Failed marks a pending item whose send was rejected.
	Failed bool
}

// Confirm wraps a server message. Tombstones keep no body.
func Confirm(m models.Message) Item {
	it := Item{Message: m, State: Confirmed}
	if m.IsDeleted {
		it.Message = m.Redacted()
		it.State = Tombstoned
	}
	return it
}

// Merge builds the next local log from a fetch result. The server list wins
// for everything it contains; pending items survive only while their send is
// still in flight and the server has not yet echoed them. Failed items are
// dropped. Ordering is the server's, with surviving pending items appended.
func Merge(local []Item, remote []models.Message) []Item {
	seen := make(map[string]struct{}, len(remote)*2)
	out := make([]Item, 0, len(remote)+1)
	for _, m := range remote {
		seen[m.ID] = struct{}{}
		if m.ClientID != "" {
			seen[m.ClientID] = struct{}{}
		}
		out = append(out, Confirm(m))
	}

	for _, it := range local {
		if it.State != Pending || it.Failed {
			continue
		}
		if _, ok := seen[it.ClientID]; ok {
			continue
		}
		if _, ok := seen[it.ID]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Messages strips the lifecycle wrapper.
func Messages(items []Item) []models.Message {
	out := make([]models.Message, len(items))
	for i, it := range items {
		out[i] = it.Message
	}
	return out
}
