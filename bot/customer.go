package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"campusbites-telegram/api"
	"campusbites-telegram/config"
	"campusbites-telegram/models"
	"campusbites-telegram/poll"
	"campusbites-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// CustomerBot is the ordering dashboard (uses TOKEN).
type CustomerBot struct {
	tg       *tgbotapi.BotAPI
	cfg      *config.Config
	backend  *api.Client
	log      *logrus.Logger
	checkout *services.CheckoutService
	starter  *services.DispatchStarter
	pending  *services.PendingDispatchStore

	mu    sync.Mutex
	chats map[int64]*customerChat
}

// customerChat is per-chat runtime state. client carries the chat's session
// cookie on every backend call.
type customerChat struct {
	userID         int
	client         *api.Client
	awaitingAddr   bool
	statusSub      *poll.Subscription[orderStatusTick]
	statusTracker  poll.Tracker
	watchedOrderID int
}

// orderStatusTick is one joined poll of the order and its dispatch snapshot.
type orderStatusTick struct {
	order *api.Order
	snap  *services.DispatchSnapshot
}

func NewCustomerBot(cfg *config.Config, backend *api.Client, checkout *services.CheckoutService, starter *services.DispatchStarter, pending *services.PendingDispatchStore, log *logrus.Logger) (*CustomerBot, error) {
	if cfg.Telegram.CustomerToken == "" {
		return nil, fmt.Errorf("TOKEN not set")
	}
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.CustomerToken)
	if err != nil {
		return nil, err
	}
	return &CustomerBot{
		tg:       tg,
		cfg:      cfg,
		backend:  backend,
		log:      log,
		checkout: checkout,
		starter:  starter,
		pending:  pending,
		chats:    make(map[int64]*customerChat),
	}, nil
}

func (b *CustomerBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)

	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallback(update.CallbackQuery)
			continue
		}
		if update.Message == nil {
			continue
		}
		msg := update.Message
		text := strings.TrimSpace(msg.Text)

		switch {
		case text == "/start":
			b.handleStart(msg.Chat.ID)
		case strings.HasPrefix(text, "/login"):
			b.handleLogin(msg.Chat.ID, msg.From.ID, text)
		default:
			b.handleText(msg.Chat.ID, text)
		}
	}
}

func (b *CustomerBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.log.WithError(err).Error("customer bot send failed")
	}
}

func (b *CustomerBot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := b.tg.Send(msg)
	if err != nil {
		b.log.WithError(err).Error("customer bot send failed")
		return 0
	}
	return sent.MessageID
}

func (b *CustomerBot) chat(chatID int64) *customerChat {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chats[chatID]
	if !ok {
		c = &customerChat{}
		b.chats[chatID] = c
	}
	return c
}

func (b *CustomerBot) mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 Restaurants", "restaurants"),
			tgbotapi.NewInlineKeyboardButtonData("🛒 My Cart", "cart"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 My Orders", "orders"),
		),
	)
}

func (b *CustomerBot) handleStart(chatID int64) {
	ctx := context.Background()
	sess, err := services.GetSession(ctx, chatID)
	if err != nil {
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	if sess == nil || sess.Role != services.RoleCustomer {
		b.send(chatID, "Welcome to CampusBites! Log in with:\n/login email password")
		return
	}
	c := b.chat(chatID)
	c.userID = sess.BackendUserID
	c.client = b.backend.WithCookie(sess.Cookie)
	b.sendWithInline(chatID, "🍕 What are you craving today?", b.mainMenu())
}

func (b *CustomerBot) handleLogin(chatID int64, userID int64, text string) {
	ctx := context.Background()

	wait, _ := services.LoginThrottleWaitSeconds(ctx, userID, services.RoleCustomer)
	if wait > 0 {
		b.send(chatID, fmt.Sprintf("Too many attempts. Try again in %d seconds.", wait))
		return
	}

	parts := strings.Fields(text)
	if len(parts) != 3 {
		b.send(chatID, "Usage: /login email password")
		return
	}
	cookie, err := b.backend.Login(ctx, api.LoginRoleUser, api.LoginRequest{Email: parts[1], Password: parts[2]})
	if err != nil {
		_ = services.RecordLoginFailed(ctx, userID, services.RoleCustomer)
		b.send(chatID, "Login failed: "+errDetail(err))
		return
	}
	_ = services.RecordLoginSuccess(ctx, userID, services.RoleCustomer)

	client := b.backend.WithCookie(cookie)
	profile, err := client.Me(ctx)
	if err != nil {
		b.send(chatID, "Login failed: "+errDetail(err))
		return
	}

	if err := services.SaveSession(ctx, models.Session{
		TgUserID:      userID,
		ChatID:        chatID,
		Role:          services.RoleCustomer,
		BackendUserID: profile.UserID(),
		Cookie:        cookie,
	}); err != nil {
		b.log.WithError(err).Error("save customer session")
	}
	c := b.chat(chatID)
	c.userID = profile.UserID()
	c.client = client
	b.sendWithInline(chatID, fmt.Sprintf("Welcome, %s! 🍕", profile.Name), b.mainMenu())
}

func (b *CustomerBot) requireCustomer(chatID int64) (*customerChat, bool) {
	c := b.chat(chatID)
	if c.userID == 0 || c.client == nil {
		ctx := context.Background()
		sess, err := services.GetSession(ctx, chatID)
		if err != nil || sess == nil || sess.Role != services.RoleCustomer {
			b.send(chatID, "Please log in first: /login email password")
			return nil, false
		}
		c.userID = sess.BackendUserID
		c.client = b.backend.WithCookie(sess.Cookie)
	}
	return c, true
}

func (b *CustomerBot) handleCallback(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	data := cq.Data

	b.tg.Request(tgbotapi.NewCallback(cq.ID, ""))

	c, ok := b.requireCustomer(chatID)
	if !ok {
		return
	}

	switch {
	case data == "restaurants":
		b.showRestaurants(chatID, c)
	case strings.HasPrefix(data, "rest:"):
		id, err := strconv.Atoi(strings.TrimPrefix(data, "rest:"))
		if err == nil && id > 0 {
			b.showMenu(chatID, c, id)
		}
	case strings.HasPrefix(data, "add:"):
		id, err := strconv.Atoi(strings.TrimPrefix(data, "add:"))
		if err == nil && id > 0 {
			b.addToCart(chatID, c, id)
		}
	case data == "cart":
		b.showCart(chatID)
	case strings.HasPrefix(data, "cart:inc:"):
		b.bumpQuantity(chatID, strings.TrimPrefix(data, "cart:inc:"), +1)
	case strings.HasPrefix(data, "cart:dec:"):
		b.bumpQuantity(chatID, strings.TrimPrefix(data, "cart:dec:"), -1)
	case strings.HasPrefix(data, "cart:rm:"):
		id, err := strconv.Atoi(strings.TrimPrefix(data, "cart:rm:"))
		if err == nil && id > 0 {
			b.mutateAndShowCart(chatID, services.RemoveItem{ItemID: id})
		}
	case data == "cart:clear":
		b.mutateAndShowCart(chatID, services.ClearCart{})
	case data == "checkout":
		c.awaitingAddr = true
		b.send(chatID, "Where should we deliver? Send your address:")
	case data == "paid":
		b.handlePaid(chatID, c)
	case data == "orders":
		b.showOrders(chatID, c)
	}
}

func (b *CustomerBot) handleText(chatID int64, text string) {
	c, ok := b.requireCustomer(chatID)
	if !ok {
		return
	}
	if !c.awaitingAddr {
		b.send(chatID, "Use the buttons to browse and order.")
		return
	}
	c.awaitingAddr = false
	b.doCheckout(chatID, c, text)
}

func (b *CustomerBot) showRestaurants(chatID int64, c *customerChat) {
	ctx := context.Background()
	restaurants, err := c.client.ListRestaurants(ctx, 0, 50)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}
	if len(restaurants) == 0 {
		b.send(chatID, "No restaurants are open right now.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range restaurants {
		label := fmt.Sprintf("%s · %s · %s", r.Name, r.CuisineType, r.City)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("rest:%d", r.ID)),
		))
	}
	b.sendWithInline(chatID, "🍽 Open restaurants:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *CustomerBot) showMenu(chatID int64, c *customerChat, restaurantID int) {
	ctx := context.Background()
	items, err := c.client.MenuByRestaurant(ctx, restaurantID, 0, 100)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}
	if len(items) == 0 {
		b.send(chatID, "This restaurant has nothing available right now.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range items {
		label := fmt.Sprintf("%s — $%.2f", m.ItemName, m.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+label, fmt.Sprintf("add:%d", m.MenuID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛒 View Cart", "cart"),
	))
	b.sendWithInline(chatID, "📜 Menu:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *CustomerBot) addToCart(chatID int64, c *customerChat, menuItemID int) {
	ctx := context.Background()
	item, err := c.client.GetMenuItem(ctx, menuItemID)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}
	restaurant, err := c.client.GetRestaurant(ctx, item.RestaurantID)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}

	before, err := services.GetCart(ctx, chatID)
	if err != nil {
		b.send(chatID, "Could not update your cart, please try again.")
		return
	}
	switched := before.RestaurantID() != 0 && before.RestaurantID() != item.RestaurantID

	category := ""
	if item.Category != nil {
		category = *item.Category
	}
	cart, err := services.MutateCart(ctx, chatID, services.AddItem{Item: models.CartItem{
		ItemID:         item.MenuID,
		Name:           item.ItemName,
		Price:          item.Price,
		Qty:            1,
		Category:       category,
		RestaurantID:   item.RestaurantID,
		RestaurantName: restaurant.Name,
	}})
	if err != nil {
		b.send(chatID, "Could not update your cart, please try again.")
		return
	}
	note := fmt.Sprintf("✅ %s added. Cart: %d items, $%.2f", item.ItemName, cart.Count(), cart.ItemsTotal())
	if switched {
		note = "🗑 Started a new cart for " + restaurant.Name + ".\n" + note
	}
	b.send(chatID, note)
}

func (b *CustomerBot) bumpQuantity(chatID int64, rawID string, delta int) {
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return
	}
	ctx := context.Background()
	cart, err := services.GetCart(ctx, chatID)
	if err != nil {
		b.send(chatID, "Could not update your cart, please try again.")
		return
	}
	for _, it := range cart.Items {
		if it.ItemID == id {
			b.mutateAndShowCart(chatID, services.UpdateQuantity{ItemID: id, Qty: it.Qty + delta})
			return
		}
	}
}

func (b *CustomerBot) mutateAndShowCart(chatID int64, action services.CartAction) {
	ctx := context.Background()
	if _, err := services.MutateCart(ctx, chatID, action); err != nil {
		b.send(chatID, "Could not update your cart, please try again.")
		return
	}
	b.showCart(chatID)
}

func (b *CustomerBot) showCart(chatID int64) {
	ctx := context.Background()
	cart, err := services.GetCart(ctx, chatID)
	if err != nil {
		b.send(chatID, "Could not load your cart, please try again.")
		return
	}
	if len(cart.Items) == 0 {
		b.send(chatID, "Your cart is empty.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 Cart — %s\n", cart.Items[0].RestaurantName))
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range cart.Items {
		sb.WriteString(fmt.Sprintf("\n%s ×%d — $%.2f", it.Name, it.Qty, it.Price*float64(it.Qty)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", fmt.Sprintf("cart:dec:%d", it.ItemID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s ×%d", it.Name, it.Qty), fmt.Sprintf("cart:rm:%d", it.ItemID)),
			tgbotapi.NewInlineKeyboardButtonData("➕", fmt.Sprintf("cart:inc:%d", it.ItemID)),
		))
	}
	sb.WriteString(fmt.Sprintf("\n\nSubtotal: $%.2f", cart.ItemsTotal()))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Clear", "cart:clear"),
		tgbotapi.NewInlineKeyboardButtonData("💳 Checkout", "checkout"),
	))
	b.sendWithInline(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *CustomerBot) doCheckout(chatID int64, c *customerChat, address string) {
	ctx := context.Background()
	cart, err := services.GetCart(ctx, chatID)
	if err != nil {
		b.send(chatID, "Could not load your cart, please try again.")
		return
	}

	res, err := b.checkout.Checkout(ctx, c.client, chatID, c.userID, cart, address)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}
	if err := services.DeleteCart(ctx, chatID); err != nil {
		b.log.WithError(err).Warn("clear cart after checkout")
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Pay now", res.PaymentURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I've paid", "paid"),
		),
	)
	b.sendWithInline(chatID, fmt.Sprintf(
		"📝 Order #%d placed!\nItems: $%.2f\nDelivery: $%.2f\n\nPay to start the delivery:",
		res.Order.OrderID, cart.ItemsTotal(), res.DeliveryFee,
	), kb)
}

// handlePaid fires dispatch for the staged order and switches to the
// order status view. Dispatch start is fail-open: a slow engine never
// blocks the customer past the configured timeout.
func (b *CustomerBot) handlePaid(chatID int64, c *customerChat) {
	ctx := context.Background()
	pd, err := b.pending.Get(ctx, chatID)
	if err != nil || pd == nil {
		b.send(chatID, "No pending order found. Check My Orders.")
		return
	}

	err = b.starter.Start(ctx, c.client, pd.OrderID, api.DispatchStartRequest{
		DeliveryAddress:      pd.DeliveryAddress,
		Phase1WaitSecondsMin: b.cfg.Dispatch.Phase1WaitSecondsMin,
		Phase1WaitSecondsMax: b.cfg.Dispatch.Phase1WaitSecondsMax,
		Phase2WaitSeconds:    b.cfg.Dispatch.Phase2WaitSeconds,
		PollIntervalSeconds:  b.cfg.Dispatch.PollIntervalSeconds,
	})
	if clearErr := b.pending.Clear(ctx, chatID); clearErr != nil {
		b.log.WithError(clearErr).Warn("clear pending dispatch")
	}
	if err != nil {
		b.log.WithFields(logrus.Fields{"order_id": pd.OrderID}).
			WithError(err).Warn("dispatch start")
	}

	b.send(chatID, "🚀 Looking for a courier…")
	b.watchOrder(chatID, c, pd.OrderID)
}

// watchOrder polls the order and dispatch status, editing the timeline
// card in place until the order reaches a terminal state.
func (b *CustomerBot) watchOrder(chatID int64, c *customerChat, orderID int) {
	if c.statusSub != nil {
		c.statusSub.Stop()
	}
	c.statusTracker.Reset()
	c.watchedOrderID = orderID
	userID := c.userID
	client := c.client

	c.statusSub = poll.Every(context.Background(), b.cfg.Dispatch.RefreshInterval, func(ctx context.Context) (orderStatusTick, error) {
		orders, err := client.ListUserOrders(ctx, userID)
		if err != nil {
			return orderStatusTick{}, err
		}
		var order *api.Order
		for i := range orders {
			if orders[i].OrderID == orderID {
				order = &orders[i]
				break
			}
		}
		if order == nil {
			return orderStatusTick{}, fmt.Errorf("order %d not found", orderID)
		}

		tick := orderStatusTick{order: order}
		// dispatch status is best effort; the order status alone still renders
		if ds, err := client.DispatchStatus(ctx, orderID); err == nil {
			note := ""
			if ds.Note != nil {
				note = *ds.Note
			}
			tick.snap = &services.DispatchSnapshot{Status: ds.Status, Phase: ds.Phase, Note: note}
		}
		return tick, nil
	})

	go func() {
		sub := c.statusSub
		for res := range sub.Results() {
			if !c.statusTracker.Accept(res.Seq) {
				continue
			}
			if res.Err != nil {
				b.log.WithError(res.Err).Warn("order status poll failed")
				continue
			}
			display := services.DeriveCustomerStatus(res.Value.order.OrderStatus, res.Value.snap)
			b.renderOrderCard(chatID, res.Value.order, res.Value.snap, display)
			if services.IsTerminalDisplay(display) {
				if err := services.DeleteOrderCard(context.Background(), orderID, services.AudienceCustomer); err != nil {
					b.log.WithError(err).Warn("drop order card pointer")
				}
				sub.Stop()
				return
			}
		}
	}()
}

func (b *CustomerBot) renderOrderCard(chatID int64, order *api.Order, snap *services.DispatchSnapshot, display string) {
	ctx := context.Background()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 Order #%d — %s\n\n", order.OrderID, services.StatusLabel(display)))
	step := services.TimelineStepIndex(display)
	labels := []string{"Placed", "Preparing", "Finding courier", "On the way", "Delivered"}
	for i, l := range labels {
		mark := "▫️"
		switch {
		case step < 0:
			mark = "▫️"
		case i < step:
			mark = "✅"
		case i == step:
			mark = "🔵"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, l))
	}
	if snap != nil {
		if agent := services.AcceptedAgentID(snap.Note); agent != "" {
			sb.WriteString("\n🚴 Courier #" + agent + " is on it!")
		}
	}
	if display == services.DisplayNeedsFeeIncrease {
		sb.WriteString("\n⚠️ No bids yet — a higher delivery fee may help.")
	}
	text := sb.String()

	if prevChatID, messageID, ok, err := services.GetOrderCard(ctx, order.OrderID, services.AudienceCustomer); err == nil && ok && prevChatID == chatID {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		if _, err := b.tg.Send(edit); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := b.tg.Send(msg)
	if err != nil {
		b.log.WithError(err).Error("send order card")
		return
	}
	if err := services.UpsertOrderCard(ctx, order.OrderID, services.AudienceCustomer, chatID, sent.MessageID); err != nil {
		b.log.WithError(err).Warn("save order card pointer")
	}
}

func (b *CustomerBot) showOrders(chatID int64, c *customerChat) {
	ctx := context.Background()
	orders, err := c.client.ListUserOrders(ctx, c.userID)
	if err != nil {
		b.send(chatID, errDetail(err))
		return
	}
	if len(orders) == 0 {
		b.send(chatID, "You have no orders yet.")
		return
	}

	var active *api.Order
	var sb strings.Builder
	sb.WriteString("📦 Your orders\n")
	for i := range orders {
		o := orders[i]
		sb.WriteString(fmt.Sprintf("\n#%d — $%.2f · %s", o.OrderID, o.Total(), o.OrderStatus))
		if active == nil && !services.IsTerminalDisplay(o.OrderStatus) {
			active = &orders[i]
		}
	}
	b.send(chatID, sb.String())

	if active != nil {
		b.watchOrder(chatID, c, active.OrderID)
	}
}
