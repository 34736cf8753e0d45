package handler

import (
	"fmt"
	"net/url"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts *service.AccountService
	tracker  *service.TrackerService
	issuer   *auth.Issuer
	appURL   string
}

// NewAccountHandler creates a new AccountHandler. appURL is the web
// client that receives the sign-in token.
func NewAccountHandler(accounts *service.AccountService, tracker *service.TrackerService, issuer *auth.Issuer, appURL string) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		tracker:  tracker,
		issuer:   issuer,
		appURL:   appURL,
	}
}

const helpText = "📖 Perintah yang tersedia:\n" +
	"/ibadah - Catat ibadah hari ini\n" +
	"/hari_ini - Ringkasan hari ini\n" +
	"/lencana - Lencana dan klaim bonus\n" +
	"/kebun - Kebun virtual\n" +
	"/sholat - Jadwal sholat\n" +
	"/kota <nama> - Pilih kota\n" +
	"/peringkat [mingguan] - Papan peringkat\n" +
	"/komunitas - Daftar komunitas\n" +
	"/murottal <surah> - Dengarkan murottal\n" +
	"/email <alamat> - Langganan kabar rilis\n" +
	"/web - Masuk ke aplikasi web"

// HandleStart handles the /start command and greets the user with what
// today's session bookkeeping changed.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}

	out := Session(c)
	if out == nil {
		ctx, cancel := requestContext()
		defer cancel()

		var err error
		out, err = h.tracker.StartSession(ctx, p.ID)
		if err != nil {
			return c.Reply(errorText(err))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assalamu'alaikum, %s! 🌙\n\n", p.Name())
	switch {
	case out.Streak.Reset:
		fmt.Fprintf(&b, "🌱 Streak dimulai lagi dari hari ke-%d. Semangat!\n", out.Streak.Current)
	case out.Streak.Changed:
		fmt.Fprintf(&b, "🔥 Streak login: %d hari\n", out.Streak.Current)
	}
	if out.Discipline.Applied && out.Discipline.Penalty > 0 {
		fmt.Fprintf(&b, "🥀 Kebunmu kehilangan %d kesehatan karena ibadah kemarin belum lengkap.\n", out.Discipline.Penalty)
	}
	b.WriteString("\n")
	b.WriteString(helpText)
	return c.Reply(b.String())
}

// HandleHelp handles the /bantuan command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

// HandleProfile handles the /profil command.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	current, err := h.accounts.Profile(ctx, p.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	city := current.CityName
	if city == "" {
		city = "belum dipilih"
	}
	email := current.Email
	if email == "" {
		email = "belum diatur"
	}
	return c.Reply(fmt.Sprintf(
		"👤 %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"⭐ XP: %d (Level %d)\n"+
			"🔥 Streak: %d hari\n"+
			"📅 Total login: %d hari\n"+
			"⏱️ Waktu aktif: %d menit\n"+
			"📍 Kota: %s\n"+
			"📧 Email: %s",
		current.Name(), current.TotalPoints, current.Level,
		current.CurrentStreak, current.TotalLoginDays,
		current.TotalMinutesActive, city, email,
	))
}

// HandleEmail handles the /email command.
// Format: /email <alamat>, or /email - to unsubscribe.
func (h *AccountHandler) HandleEmail(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) != 1 {
		return c.Reply("❌ Format: /email <alamat>\nKirim /email - untuk berhenti berlangganan")
	}
	email := a[0]
	if email == "-" {
		email = ""
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.accounts.SetEmail(ctx, p.ID, email); err != nil {
		return c.Reply(errorText(err))
	}
	if email == "" {
		return c.Reply("✅ Anda tidak akan menerima email rilis lagi")
	}
	return c.Reply("✅ Email tersimpan. Kabar rilis berikutnya akan dikirim ke " + email)
}

// HandleWeb handles the /web command.
// Issues a bearer token for the web client. Only answered in private chats.
func (h *AccountHandler) HandleWeb(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	if chat := c.Chat(); chat == nil || chat.Type != tele.ChatPrivate {
		return c.Reply("🔐 Kirim /web lewat chat pribadi dengan bot")
	}

	token, exp, err := h.issuer.Issue(p)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Send(fmt.Sprintf(
		"🌐 Buka aplikasi web:\n%s\n\nTautan berlaku sampai %s",
		WebLink(h.appURL, token), exp.Format("02 Jan 2006 15:04"),
	))
}

// WebLink builds the sign-in link of the web client.
func WebLink(appURL, token string) string {
	u, err := url.Parse(appURL)
	if err != nil || appURL == "" {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
