package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// shownEntries is how many rows the chat leaderboard prints.
const shownEntries = 10

// HandleTop handles the /peringkat command.
// Format: /peringkat [mingguan]
func (h *RankingHandler) HandleTop(c tele.Context) error {
	kind := model.LeaderboardAllTime
	title := "🏆 Papan Peringkat"
	if a := args(c); len(a) > 0 && strings.HasPrefix(strings.ToLower(a[0]), "minggu") {
		kind = model.LeaderboardWeekly
		title = "📅 Peringkat Minggu Ini"
	}

	ctx, cancel := requestContext()
	defer cancel()
	entries, err := h.rankingService.Leaderboard(ctx, kind)
	if err != nil {
		return c.Reply("❌ Gagal memuat papan peringkat, coba lagi nanti")
	}

	var userID int64
	if p := Profile(c); p != nil {
		userID = p.ID
	}
	return c.Reply(RenderLeaderboard(title, entries, userID))
}

// RenderLeaderboard formats the top rows and the caller's own position.
func RenderLeaderboard(title string, entries []*model.LeaderboardEntry, userID int64) string {
	var b strings.Builder
	b.WriteString(title + "\n━━━━━━━━━━━━━━━\n")
	if len(entries) == 0 {
		b.WriteString("Belum ada data")
		return b.String()
	}

	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		if i >= shownEntries {
			break
		}
		rank := fmt.Sprintf("%d.", e.Rank)
		if i < len(medals) {
			rank = medals[i]
		}
		name := e.DisplayName
		if name == "" {
			name = fmt.Sprintf("Hamba Allah #%d", e.UserID)
		}
		fmt.Fprintf(&b, "%s %s: %d XP (Lv %d, 🔥%d)\n", rank, name, e.Points, e.Level, e.CurrentStreak)
	}

	if pos := service.UserRank(entries, userID); pos > shownEntries {
		fmt.Fprintf(&b, "\n📍 Posisimu: #%d", pos)
	}
	return b.String()
}
