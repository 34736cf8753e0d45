package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// AdminHandler handles admin-related commands. Every command runs behind the
// admin middleware and the service checks the actor again.
type AdminHandler struct {
	admin     *service.AdminService
	broadcast *service.BroadcastService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, broadcast *service.BroadcastService) *AdminHandler {
	return &AdminHandler{
		admin:     admin,
		broadcast: broadcast,
	}
}

// HandleStats handles the /admin_stats command.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	st, err := h.admin.Stats(ctx, Profile(c))
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf(
		"📊 Statistik\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👥 Pengguna: %d\n"+
			"🟢 Aktif hari ini: %d\n"+
			"⛔ Diblokir: %d\n"+
			"💬 Komunitas: %d\n"+
			"✉️ Pesan: %d\n"+
			"📨 Permintaan menunggu: %d",
		st.TotalUsers, st.ActiveToday, st.BlockedUsers,
		st.TotalCommunities, st.TotalMessages, st.PendingRequests,
	))
}

// HandleUsers handles the /admin_pengguna command.
// Format: /admin_pengguna [offset]
func (h *AdminHandler) HandleUsers(c tele.Context) error {
	offset := 0
	if a := args(c); len(a) > 0 {
		offset, _ = strconv.Atoi(a[0])
	}

	ctx, cancel := requestContext()
	defer cancel()
	users, err := h.admin.Users(ctx, Profile(c), 20, max(offset, 0))
	if err != nil {
		return c.Reply(errorText(err))
	}

	var b strings.Builder
	b.WriteString("👥 Pengguna\n━━━━━━━━━━━━━━━\n")
	for _, u := range users {
		flags := ""
		if u.IsAdmin() {
			flags += " 🛡️"
		}
		if u.IsBlocked {
			flags += " ⛔"
		}
		if u.DeletedAt != nil {
			flags += " 🗑️"
		}
		fmt.Fprintf(&b, "%d %s: %d XP%s\n", u.ID, u.Name(), u.TotalPoints, flags)
	}
	if len(users) == 0 {
		b.WriteString("Tidak ada data")
	}
	return c.Reply(b.String())
}

// HandleSetPoints handles the /admin_poin command.
// Format: /admin_poin <user_id> <poin>
func (h *AdminHandler) HandleSetPoints(c tele.Context) error {
	a := args(c)
	if len(a) != 2 {
		return c.Reply("❌ Format: /admin_poin <user_id> <poin>")
	}
	targetID, err := parseUserID(a[0])
	if err != nil {
		return c.Reply("❌ ID pengguna harus berupa angka")
	}
	points, err := strconv.ParseInt(a[1], 10, 64)
	if err != nil {
		return c.Reply("❌ Poin harus berupa bilangan bulat")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.admin.SetPoints(ctx, Profile(c), targetID, points); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("✅ XP pengguna %d diatur menjadi %d", targetID, points))
}

// HandleSetRole handles the /admin_peran command.
// Format: /admin_peran <user_id> <user|admin>
func (h *AdminHandler) HandleSetRole(c tele.Context) error {
	a := args(c)
	if len(a) != 2 {
		return c.Reply("❌ Format: /admin_peran <user_id> <user|admin>")
	}
	targetID, err := parseUserID(a[0])
	if err != nil {
		return c.Reply("❌ ID pengguna harus berupa angka")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.admin.SetRole(ctx, Profile(c), targetID, model.Role(strings.ToLower(a[1]))); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Peran pengguna %d menjadi %s", targetID, strings.ToLower(a[1])))
}

// HandleBlock handles /admin_blokir and /admin_buka.
func (h *AdminHandler) HandleBlock(blocked bool) tele.HandlerFunc {
	return h.target(func(c tele.Context, targetID int64) (string, error) {
		ctx, cancel := requestContext()
		defer cancel()
		if err := h.admin.SetBlocked(ctx, Profile(c), targetID, blocked); err != nil {
			return "", err
		}
		if blocked {
			return fmt.Sprintf("⛔ Pengguna %d diblokir", targetID), nil
		}
		return fmt.Sprintf("✅ Blokir pengguna %d dibuka", targetID), nil
	})
}

// HandleSoftDelete handles the /admin_hapus command.
func (h *AdminHandler) HandleSoftDelete(c tele.Context) error {
	return h.target(func(c tele.Context, targetID int64) (string, error) {
		ctx, cancel := requestContext()
		defer cancel()
		if err := h.admin.SoftDelete(ctx, Profile(c), targetID); err != nil {
			return "", err
		}
		return fmt.Sprintf("🗑️ Pengguna %d ditandai terhapus", targetID), nil
	})(c)
}

// HandleHardDelete handles the /admin_hapus_permanen command.
func (h *AdminHandler) HandleHardDelete(c tele.Context) error {
	return h.target(func(c tele.Context, targetID int64) (string, error) {
		ctx, cancel := requestContext()
		defer cancel()
		if err := h.admin.HardDelete(ctx, Profile(c), targetID); err != nil {
			return "", err
		}
		return fmt.Sprintf("🗑️ Pengguna %d dihapus permanen", targetID), nil
	})(c)
}

// target wraps commands of the form /cmd <user_id>.
func (h *AdminHandler) target(fn func(c tele.Context, targetID int64) (string, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		a := args(c)
		if len(a) != 1 {
			return c.Reply("❌ Format: " + strings.Fields(c.Text())[0] + " <user_id>")
		}
		targetID, err := parseUserID(a[0])
		if err != nil {
			return c.Reply("❌ ID pengguna harus berupa angka")
		}
		msg, err := fn(c, targetID)
		if err != nil {
			return c.Reply(errorText(err))
		}
		return c.Reply(msg)
	}
}

// HandleRequests handles the /admin_permintaan command.
func (h *AdminHandler) HandleRequests(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	reqs, err := h.admin.PendingRequests(ctx, Profile(c))
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(reqs) == 0 {
		return c.Reply("📭 Tidak ada permintaan komunitas")
	}

	var b strings.Builder
	b.WriteString("📨 Permintaan komunitas\n━━━━━━━━━━━━━━━\n")
	for _, r := range reqs {
		fmt.Fprintf(&b, "%s\n   %s oleh %s\n   %s\n", r.ID, r.Name, r.RequesterName, r.Description)
	}
	b.WriteString("\n/admin_setujui <id> atau /admin_tolak <id>")
	return c.Reply(b.String())
}

// HandleApprove handles the /admin_setujui command.
// Format: /admin_setujui <request_id>
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /admin_setujui <request_id>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	cm, err := h.admin.ApproveRequest(ctx, Profile(c), a[0])
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Komunitas %s dibuat [%s]", cm.Name, cm.ID))
}

// HandleReject handles the /admin_tolak command.
// Format: /admin_tolak <request_id>
func (h *AdminHandler) HandleReject(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /admin_tolak <request_id>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.admin.RejectRequest(ctx, Profile(c), a[0]); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply("✅ Permintaan ditolak")
}

// HandleInvite handles the /admin_undang command.
// Format: /admin_undang <community_id> <user_id>
func (h *AdminHandler) HandleInvite(c tele.Context) error {
	a := args(c)
	if len(a) != 2 {
		return c.Reply("❌ Format: /admin_undang <community_id> <user_id>")
	}
	targetID, err := parseUserID(a[1])
	if err != nil {
		return c.Reply("❌ ID pengguna harus berupa angka")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.admin.Invite(ctx, Profile(c), a[0], targetID); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Pengguna %d diundang ke %s", targetID, a[0]))
}

// HandleDeleteMessage handles the /admin_hapus_pesan command.
// Format: /admin_hapus_pesan <community_id> <message_id>
func (h *AdminHandler) HandleDeleteMessage(c tele.Context) error {
	a := args(c)
	if len(a) != 2 {
		return c.Reply("❌ Format: /admin_hapus_pesan <community_id> <message_id>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.admin.DeleteMessage(ctx, Profile(c), a[0], a[1]); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply("🗑️ Pesan dihapus")
}

// HandleClear handles the /admin_bersihkan command.
// Format: /admin_bersihkan <community_id>
func (h *AdminHandler) HandleClear(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /admin_bersihkan <community_id>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	n, err := h.admin.ClearMessages(ctx, Profile(c), a[0])
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("🧹 %d pesan dihapus dari %s", n, a[0]))
}

// HandleRelease handles the /admin_rilis command.
// Format: /admin_rilis <versi>
func (h *AdminHandler) HandleRelease(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /admin_rilis <versi>")
	}
	if h.broadcast == nil {
		return c.Reply("❌ Email belum dikonfigurasi")
	}

	ctx, cancel := requestContext()
	defer cancel()
	res, err := h.broadcast.Publish(ctx, a[0])
	if err != nil {
		return c.Reply(errorText(err))
	}
	if !res.Changed {
		return c.Reply(fmt.Sprintf("ℹ️ Versi %s sudah diumumkan sebelumnya", res.Version))
	}
	return c.Reply(fmt.Sprintf("📣 Versi %s diumumkan ke %d email (sebelumnya %s)", res.Version, res.Recipients, orDash(res.Previous)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
