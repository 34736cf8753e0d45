package handler

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// CommunityHandler handles community chat from Telegram.
type CommunityHandler struct {
	community *service.CommunityService
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(community *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{community: community}
}

// HandleList handles the /komunitas command.
// Format: /komunitas [populer]
func (h *CommunityHandler) HandleList(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	order := repository.OrderNewest
	if a := args(c); len(a) > 0 && strings.EqualFold(a[0], "populer") {
		order = repository.OrderPopular
	}

	ctx, cancel := requestContext()
	defer cancel()
	list, err := h.community.List(ctx, order, 20)
	if err != nil {
		return c.Reply(errorText(err))
	}

	var b strings.Builder
	b.WriteString("💬 Komunitas\n━━━━━━━━━━━━━━━\n")
	for _, cm := range list {
		lock := ""
		if cm.IsPrivate {
			lock = "🔒 "
		}
		joined := ""
		if cm.HasMember(p.ID) {
			joined = " ✓"
		}
		fmt.Fprintf(&b, "%s%s [%s]%s\n   👥 %d anggota, 💬 %d pesan\n", lock, cm.Name, cm.ID, joined, cm.MemberCount, cm.MessageCount)
	}
	b.WriteString("\n/riwayat <id> - baca pesan\n/kirim <id> <pesan> - kirim pesan\n/ajukan <nama> | <deskripsi> - ajukan komunitas baru")

	if markup := BuildCommunityPanel(list, p.ID); markup != nil {
		return c.Reply(b.String(), markup)
	}
	return c.Reply(b.String())
}

// HandleJoin handles the /gabung command.
// Format: /gabung <id>
func (h *CommunityHandler) HandleJoin(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /gabung <id>")
	}
	return c.Reply(h.join(p.ID, a[0]))
}

// HandleJoinCallback joins the community of the pressed button.
func (h *CommunityHandler) HandleJoinCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_, id := callbackData(c)
	return c.Respond(&tele.CallbackResponse{Text: h.join(p.ID, id)})
}

func (h *CommunityHandler) join(userID int64, id string) string {
	ctx, cancel := requestContext()
	defer cancel()
	if err := h.community.Join(ctx, id, userID); err != nil {
		return errorText(err)
	}
	return "✅ Bergabung dengan komunitas " + id
}

// HandleSend handles the /kirim command.
// Format: /kirim <id> <pesan>
func (h *CommunityHandler) HandleSend(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	id, content, ok := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	if !ok {
		return c.Reply("❌ Format: /kirim <id> <pesan>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if _, err := h.community.Send(ctx, id, p, content); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply("✅ Pesan terkirim")
}

// HandleHistory handles the /riwayat command.
// Format: /riwayat <id>
func (h *CommunityHandler) HandleHistory(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /riwayat <id>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	msgs, err := h.community.History(ctx, a[0], p.ID, time.Time{})
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(RenderHistory(a[0], msgs, 20))
}

// RenderHistory formats the last n messages, oldest first.
func RenderHistory(id string, msgs []*model.CommunityMessage, n int) string {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💬 %s\n━━━━━━━━━━━━━━━\n", id)
	if len(msgs) == 0 {
		b.WriteString("Belum ada pesan")
		return b.String()
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format("02/01 15:04"), m.SenderName, m.Content)
	}
	return b.String()
}

// HandleRequest handles the /ajukan command.
// Format: /ajukan <nama> | <deskripsi>
func (h *CommunityHandler) HandleRequest(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	name, desc, _ := strings.Cut(c.Message().Payload, "|")

	ctx, cancel := requestContext()
	defer cancel()
	req, err := h.community.RequestCommunity(ctx, p, name, desc)
	if err != nil {
		return c.Reply(errorText(err) + "\nFormat: /ajukan <nama> | <deskripsi>")
	}
	return c.Reply(fmt.Sprintf("📨 Permintaan komunitas \"%s\" dikirim ke admin (ID %s)", req.Name, req.ID))
}
