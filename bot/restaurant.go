package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"campusbites-telegram/api"
	"campusbites-telegram/config"
	"campusbites-telegram/models"
	"campusbites-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// RestaurantBot is the read-side restaurant dashboard (uses RESTAURANT_BOT_TOKEN).
type RestaurantBot struct {
	tg      *tgbotapi.BotAPI
	cfg     *config.Config
	backend *api.Client
	log     *logrus.Logger

	mu    sync.Mutex
	chats map[int64]*restaurantChat
}

// restaurantChat binds a chat to its restaurant and session cookie.
type restaurantChat struct {
	restaurantID int
	client       *api.Client
}

func NewRestaurantBot(cfg *config.Config, backend *api.Client, log *logrus.Logger) (*RestaurantBot, error) {
	if cfg.Telegram.RestaurantToken == "" {
		return nil, fmt.Errorf("RESTAURANT_BOT_TOKEN not set")
	}
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.RestaurantToken)
	if err != nil {
		return nil, err
	}
	return &RestaurantBot{
		tg:      tg,
		cfg:     cfg,
		backend: backend,
		log:     log,
		chats:   make(map[int64]*restaurantChat),
	}, nil
}

func (r *RestaurantBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.tg.GetUpdatesChan(u)

	for update := range updates {
		if update.CallbackQuery != nil {
			r.handleCallback(update.CallbackQuery)
			continue
		}
		if update.Message == nil {
			continue
		}
		msg := update.Message
		text := strings.TrimSpace(msg.Text)

		switch {
		case text == "/start":
			r.handleStart(msg.Chat.ID)
		case strings.HasPrefix(text, "/login"):
			r.handleLogin(msg.Chat.ID, msg.From.ID, text)
		default:
			r.send(msg.Chat.ID, "Use the buttons to view your dashboard.")
		}
	}
}

func (r *RestaurantBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.tg.Send(msg); err != nil {
		r.log.WithError(err).Error("restaurant bot send failed")
	}
}

func (r *RestaurantBot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.tg.Send(msg); err != nil {
		r.log.WithError(err).Error("restaurant bot send failed")
	}
}

func (r *RestaurantBot) panel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Today's Orders", "rest:orders"),
			tgbotapi.NewInlineKeyboardButtonData("📜 Menu", "rest:menu"),
		),
	)
}

func (r *RestaurantBot) chat(chatID int64) (*restaurantChat, bool) {
	r.mu.Lock()
	c, ok := r.chats[chatID]
	r.mu.Unlock()
	if ok {
		return c, true
	}
	ctx := context.Background()
	sess, err := services.GetSession(ctx, chatID)
	if err != nil || sess == nil || sess.Role != services.RoleRestaurant {
		return nil, false
	}
	c = &restaurantChat{
		restaurantID: sess.RestaurantID,
		client:       r.backend.WithCookie(sess.Cookie),
	}
	r.mu.Lock()
	r.chats[chatID] = c
	r.mu.Unlock()
	return c, true
}

func (r *RestaurantBot) handleStart(chatID int64) {
	if _, ok := r.chat(chatID); !ok {
		r.send(chatID, "Welcome! Log in with:\n/login email password")
		return
	}
	r.sendWithInline(chatID, "🏪 Restaurant dashboard", r.panel())
}

func (r *RestaurantBot) handleLogin(chatID int64, userID int64, text string) {
	ctx := context.Background()

	wait, _ := services.LoginThrottleWaitSeconds(ctx, userID, services.RoleRestaurant)
	if wait > 0 {
		r.send(chatID, fmt.Sprintf("Too many attempts. Try again in %d seconds.", wait))
		return
	}

	parts := strings.Fields(text)
	if len(parts) != 3 {
		r.send(chatID, "Usage: /login email password")
		return
	}
	cookie, err := r.backend.Login(ctx, api.LoginRoleRestaurant, api.LoginRequest{Email: parts[1], Password: parts[2]})
	if err != nil {
		_ = services.RecordLoginFailed(ctx, userID, services.RoleRestaurant)
		r.send(chatID, "Login failed: "+errDetail(err))
		return
	}
	_ = services.RecordLoginSuccess(ctx, userID, services.RoleRestaurant)

	// restaurant accounts carry their restaurant id in the profile
	client := r.backend.WithCookie(cookie)
	me, err := client.Me(ctx)
	if err != nil {
		r.send(chatID, errDetail(err))
		return
	}
	restaurantID := me.UserID()
	if err := services.SaveSession(ctx, models.Session{
		TgUserID:     userID,
		ChatID:       chatID,
		Role:         services.RoleRestaurant,
		RestaurantID: restaurantID,
		Cookie:       cookie,
	}); err != nil {
		r.log.WithError(err).Error("save restaurant session")
	}
	r.mu.Lock()
	r.chats[chatID] = &restaurantChat{restaurantID: restaurantID, client: client}
	r.mu.Unlock()
	r.sendWithInline(chatID, "🏪 Restaurant dashboard", r.panel())
}

func (r *RestaurantBot) handleCallback(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	r.tg.Request(tgbotapi.NewCallback(cq.ID, ""))

	c, ok := r.chat(chatID)
	if !ok {
		r.send(chatID, "Please log in first: /login email password")
		return
	}

	switch cq.Data {
	case "rest:orders":
		r.showTodayOrders(chatID, c)
	case "rest:menu":
		r.showMenu(chatID, c)
	}
}

func (r *RestaurantBot) showTodayOrders(chatID int64, c *restaurantChat) {
	ctx := context.Background()
	orders, err := c.client.ListOrders(ctx, 0, 200)
	if err != nil {
		r.send(chatID, errDetail(err))
		return
	}

	today := time.Now().Truncate(24 * time.Hour)
	var total float64
	byStatus := make(map[string]int)
	var sb strings.Builder
	count := 0
	for _, o := range orders {
		if o.RestaurantID != c.restaurantID || o.CreatedAt.Before(today) {
			continue
		}
		count++
		// base_fare is the food subtotal, the restaurant-side revenue
		total += o.BaseFare
		byStatus[o.OrderStatus]++
		items := 0
		for _, it := range o.OrderItems {
			items += it.Quantity
		}
		sb.WriteString(fmt.Sprintf("\n#%d — %d items · $%.2f · %s", o.OrderID, items, o.BaseFare, o.OrderStatus))
	}
	if count == 0 {
		r.send(chatID, "No orders yet today.")
		return
	}

	var head strings.Builder
	head.WriteString(fmt.Sprintf("📥 Today: %d orders · $%.2f\n", count, total))
	for status, n := range byStatus {
		head.WriteString(fmt.Sprintf("  %s: %d\n", status, n))
	}
	r.send(chatID, head.String()+sb.String())
}

func (r *RestaurantBot) showMenu(chatID int64, c *restaurantChat) {
	ctx := context.Background()
	items, err := c.client.MenuByRestaurant(ctx, c.restaurantID, 0, 200)
	if err != nil {
		r.send(chatID, errDetail(err))
		return
	}
	if len(items) == 0 {
		r.send(chatID, "Your menu has no available items.")
		return
	}
	var sb strings.Builder
	sb.WriteString("📜 Available items\n")
	for _, m := range items {
		line := fmt.Sprintf("\n%s — $%.2f", m.ItemName, m.Price)
		if m.Category != nil && *m.Category != "" {
			line += " (" + *m.Category + ")"
		}
		sb.WriteString(line)
	}
	r.send(chatID, sb.String())
}
