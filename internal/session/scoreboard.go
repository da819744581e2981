package session

import (
	"sort"

	"quizlive-service/internal/domain"
)

// ScoreBoard accumulates per-user points for one session. It is owned by the
// session and serialized by the session lock, so it carries no lock of its
// own. Scores only ever grow.
type ScoreBoard struct {
	totals map[string]int
	// seenAt records the sequence of each user's first submission and
	// scoredAt the sequence of their first earned point. Both feed the
	// deterministic tie-break: first point earned wins the tie.
	seenAt   map[string]int
	scoredAt map[string]int
	seq      int
}

func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{
		totals:   make(map[string]int),
		seenAt:   make(map[string]int),
		scoredAt: make(map[string]int),
	}
}

// AddPoints records a submission for userID worth delta points and returns
// the new total. Negative deltas are ignored; a zero delta still registers
// the user on the board.
func (b *ScoreBoard) AddPoints(userID string, delta int) int {
	b.seq++
	if _, ok := b.seenAt[userID]; !ok {
		b.seenAt[userID] = b.seq
	}
	if delta > 0 {
		b.totals[userID] += delta
		if _, ok := b.scoredAt[userID]; !ok {
			b.scoredAt[userID] = b.seq
		}
	} else if _, ok := b.totals[userID]; !ok {
		b.totals[userID] = 0
	}
	return b.totals[userID]
}

// Snapshot returns a copy of the current totals.
func (b *ScoreBoard) Snapshot() map[string]int {
	out := make(map[string]int, len(b.totals))
	for id, total := range b.totals {
		out[id] = total
	}
	return out
}

// Rank produces the ordered ranking for the given snapshot. Participants
// lists users who should appear even without a board entry (score 0).
// Ordering: score desc, then first point earned, then first submission,
// then user ID for full determinism. resolve maps user IDs to display names.
func (b *ScoreBoard) Rank(snapshot map[string]int, participants []string, resolve func(string) string) []domain.RankingEntry {
	const never = int(^uint(0) >> 1)

	users := make(map[string]int, len(snapshot)+len(participants))
	for id, total := range snapshot {
		users[id] = total
	}
	for _, id := range participants {
		if _, ok := users[id]; !ok {
			users[id] = 0
		}
	}

	entries := make([]domain.RankingEntry, 0, len(users))
	for id, total := range users {
		entries = append(entries, domain.RankingEntry{
			UserID:   id,
			Username: resolve(id),
			Score:    total,
		})
	}

	at := func(m map[string]int, id string) int {
		if v, ok := m[id]; ok {
			return v
		}
		return never
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b2 := entries[i], entries[j]
		if a.Score != b2.Score {
			return a.Score > b2.Score
		}
		if sa, sb := at(b.scoredAt, a.UserID), at(b.scoredAt, b2.UserID); sa != sb {
			return sa < sb
		}
		if sa, sb := at(b.seenAt, a.UserID), at(b.seenAt, b2.UserID); sa != sb {
			return sa < sb
		}
		return a.UserID < b2.UserID
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
