package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"campusbites-telegram/api"
	"campusbites-telegram/config"
	"campusbites-telegram/models"
	"campusbites-telegram/poll"
	"campusbites-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// AgentBot is the delivery agent dashboard (uses AGENT_BOT_TOKEN).
type AgentBot struct {
	tg        *tgbotapi.BotAPI
	cfg       *config.Config
	backend   *api.Client
	log       *logrus.Logger
	bids      *services.BidService
	submitted *services.SubmittedBids
	proofs    *services.ProofStore
	fulfiller *services.Fulfiller

	mu    sync.Mutex
	chats map[int64]*agentChat
}

// agentChat is the per-chat runtime state while the agent is online.
// client carries the chat's session cookie on every backend call.
type agentChat struct {
	agentID       string
	client        *api.Client
	online        bool
	feed          *services.Feed
	feedSub       *poll.Subscription[[]api.AgentAvailableDispatchItem]
	activeSub     *poll.Subscription[*api.AgentActiveOrdersResponse]
	feedTracker   poll.Tracker
	activeTracker poll.Tracker
	stopTicker    context.CancelFunc

	feedMessageID   int
	lastFeedIDs     map[int]bool // orders present in the previous poll
	activeOrders    []api.AgentActiveOrder
	pendingBidOrder int // order awaiting an amount reply, 0 = none
	pendingProof    int // order awaiting a photo, 0 = none
}

func NewAgentBot(cfg *config.Config, backend *api.Client, bids *services.BidService, submitted *services.SubmittedBids, proofs *services.ProofStore, fulfiller *services.Fulfiller, log *logrus.Logger) (*AgentBot, error) {
	if cfg.Telegram.AgentToken == "" {
		return nil, fmt.Errorf("AGENT_BOT_TOKEN not set")
	}
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.AgentToken)
	if err != nil {
		return nil, err
	}
	return &AgentBot{
		tg:        tg,
		cfg:       cfg,
		backend:   backend,
		log:       log,
		bids:      bids,
		submitted: submitted,
		proofs:    proofs,
		fulfiller: fulfiller,
		chats:     make(map[int64]*agentChat),
	}, nil
}

func (a *AgentBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.tg.GetUpdatesChan(u)

	for update := range updates {
		if update.CallbackQuery != nil {
			a.handleCallback(update.CallbackQuery)
			continue
		}
		if update.Message == nil {
			continue
		}
		msg := update.Message
		chatID := msg.Chat.ID

		if len(msg.Photo) > 0 {
			a.handlePhoto(chatID, msg)
			continue
		}

		text := strings.TrimSpace(msg.Text)
		switch {
		case text == "/start":
			a.handleStart(chatID, msg.From.ID)
		case strings.HasPrefix(text, "/login"):
			a.handleLogin(chatID, msg.From.ID, text)
		default:
			a.handleText(chatID, msg.From.ID, text)
		}
	}
}

func (a *AgentBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.tg.Send(msg); err != nil {
		a.log.WithError(err).Error("agent bot send failed")
	}
}

func (a *AgentBot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := a.tg.Send(msg)
	if err != nil {
		a.log.WithError(err).Error("agent bot send failed")
		return 0
	}
	return sent.MessageID
}

func (a *AgentBot) chat(chatID int64) *agentChat {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.chats[chatID]
	if !ok {
		c = &agentChat{feed: services.NewFeed()}
		a.chats[chatID] = c
	}
	return c
}

func (a *AgentBot) handleStart(chatID int64, userID int64) {
	ctx := context.Background()
	sess, err := services.GetSession(ctx, chatID)
	if err != nil {
		a.send(chatID, "Something went wrong, please try again.")
		return
	}
	if sess == nil || sess.Role != services.RoleAgent {
		a.send(chatID, "Welcome, courier! Log in with:\n/login email password")
		return
	}
	c := a.chat(chatID)
	c.agentID = sess.AgentID
	c.client = a.backend.WithCookie(sess.Cookie)
	a.sendPanel(chatID)
}

func (a *AgentBot) handleLogin(chatID int64, userID int64, text string) {
	ctx := context.Background()

	wait, _ := services.LoginThrottleWaitSeconds(ctx, userID, services.RoleAgent)
	if wait > 0 {
		a.send(chatID, fmt.Sprintf("Too many attempts. Try again in %d seconds.", wait))
		return
	}

	parts := strings.Fields(text)
	if len(parts) != 3 {
		a.send(chatID, "Usage: /login email password")
		return
	}
	cookie, err := a.backend.Login(ctx, api.LoginRoleDeliveryAgent, api.LoginRequest{Email: parts[1], Password: parts[2]})
	if err != nil {
		_ = services.RecordLoginFailed(ctx, userID, services.RoleAgent)
		a.send(chatID, "Login failed: "+errDetail(err))
		return
	}
	_ = services.RecordLoginSuccess(ctx, userID, services.RoleAgent)

	client := a.backend.WithCookie(cookie)
	profile, err := client.Me(ctx)
	if err != nil {
		a.send(chatID, "Login failed: "+errDetail(err))
		return
	}
	agentID := profile.AgentID()
	if agentID == "" {
		a.send(chatID, "No courier profile found for this account.")
		return
	}
	if err := services.SaveSession(ctx, models.Session{
		TgUserID: userID,
		ChatID:   chatID,
		Role:     services.RoleAgent,
		AgentID:  agentID,
		Cookie:   cookie,
	}); err != nil {
		a.log.WithError(err).Error("save agent session")
	}
	c := a.chat(chatID)
	c.agentID = agentID
	c.client = client
	a.send(chatID, fmt.Sprintf("Welcome back, %s!", profile.Name))
	a.sendPanel(chatID)
}

func (a *AgentBot) sendPanel(chatID int64) {
	c := a.chat(chatID)
	status := "🔴 Offline"
	if c.online {
		status = "🟢 Online"
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟢 Go Online", "agent:online"),
			tgbotapi.NewInlineKeyboardButtonData("🔴 Go Offline", "agent:offline"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Active Deliveries", "agent:active"),
			tgbotapi.NewInlineKeyboardButtonData("💰 Earnings", "agent:earnings"),
		),
	)
	a.sendWithInline(chatID, "🚴 Courier panel\n\nStatus: "+status, kb)
}

func (a *AgentBot) requireAgent(chatID int64) (*agentChat, bool) {
	c := a.chat(chatID)
	if c.agentID == "" || c.client == nil {
		ctx := context.Background()
		sess, err := services.GetSession(ctx, chatID)
		if err != nil || sess == nil || sess.Role != services.RoleAgent {
			a.send(chatID, "Please log in first: /login email password")
			return nil, false
		}
		c.agentID = sess.AgentID
		c.client = a.backend.WithCookie(sess.Cookie)
	}
	return c, true
}

func (a *AgentBot) handleCallback(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	data := cq.Data

	a.tg.Request(tgbotapi.NewCallback(cq.ID, ""))

	c, ok := a.requireAgent(chatID)
	if !ok {
		return
	}

	switch {
	case data == "agent:online":
		a.goOnline(chatID, c)
	case data == "agent:offline":
		a.goOffline(chatID, c)
	case data == "agent:active":
		a.showActiveOrders(chatID, c)
	case data == "agent:earnings":
		a.showEarnings(chatID, c)
	case strings.HasPrefix(data, "bid:"):
		orderID, err := strconv.Atoi(strings.TrimPrefix(data, "bid:"))
		if err != nil || orderID <= 0 {
			return
		}
		c.pendingBidOrder = orderID
		c.pendingProof = 0
		a.send(chatID, fmt.Sprintf("Enter your bid for order #%d:", orderID))
	case strings.HasPrefix(data, "proof:"):
		orderID, err := strconv.Atoi(strings.TrimPrefix(data, "proof:"))
		if err != nil || orderID <= 0 {
			return
		}
		c.pendingProof = orderID
		c.pendingBidOrder = 0
		a.send(chatID, fmt.Sprintf("Send the delivery photo for order #%d.", orderID))
	case strings.HasPrefix(data, "fulfill:"):
		orderID, err := strconv.Atoi(strings.TrimPrefix(data, "fulfill:"))
		if err != nil || orderID <= 0 {
			return
		}
		a.handleFulfill(chatID, c, orderID)
	}
}

// goOnline starts the feed and active-order polls plus the countdown ticker.
func (a *AgentBot) goOnline(chatID int64, c *agentChat) {
	if c.online {
		a.send(chatID, "You are already online.")
		return
	}
	c.online = true
	c.feedTracker.Reset()
	c.activeTracker.Reset()
	c.lastFeedIDs = nil

	client := c.client
	agentID := c.agentID
	interval := a.cfg.Dispatch.RefreshInterval

	c.feedSub = poll.Every(context.Background(), interval, func(ctx context.Context) ([]api.AgentAvailableDispatchItem, error) {
		return client.AvailableDispatch(ctx, agentID, 20)
	})
	c.activeSub = poll.Every(context.Background(), interval, func(ctx context.Context) (*api.AgentActiveOrdersResponse, error) {
		return client.AgentActiveOrders(ctx, agentID)
	})

	go a.consumeFeed(chatID, c)
	go a.consumeActive(chatID, c)

	tickerCtx, cancel := context.WithCancel(context.Background())
	c.stopTicker = cancel
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickerCtx.Done():
				return
			case <-ticker.C:
				c.feed.Tick()
			}
		}
	}()

	a.send(chatID, "🟢 You are online. Watching for delivery requests…")
}

func (a *AgentBot) goOffline(chatID int64, c *agentChat) {
	if !c.online {
		a.send(chatID, "You are already offline.")
		return
	}
	c.online = false
	if c.feedSub != nil {
		c.feedSub.Stop()
	}
	if c.activeSub != nil {
		c.activeSub.Stop()
	}
	if c.stopTicker != nil {
		c.stopTicker()
	}
	c.feed.Clear()
	c.feedMessageID = 0
	c.lastFeedIDs = nil
	a.send(chatID, "🔴 You are offline.")
}

func (a *AgentBot) consumeFeed(chatID int64, c *agentChat) {
	ctx := context.Background()
	for res := range c.feedSub.Results() {
		if !c.feedTracker.Accept(res.Seq) {
			continue
		}
		// a poll that was in flight when the agent went offline must not
		// resurrect the feed
		if !c.online {
			continue
		}
		if res.Err != nil {
			a.log.WithError(res.Err).Warn("feed poll failed")
			continue
		}
		agentID := c.agentID

		current := make(map[int]bool, len(res.Value))
		for _, it := range res.Value {
			current[it.OrderID] = true
		}
		var departed []int
		for id := range c.lastFeedIDs {
			if !current[id] {
				departed = append(departed, id)
			}
		}
		c.lastFeedIDs = current

		c.feed.ApplySnapshot(res.Value, func(orderID int) bool {
			ok, err := a.submitted.Contains(ctx, agentID, orderID)
			if err != nil {
				return false
			}
			return ok
		})
		a.renderFeed(chatID, c)

		if len(departed) > 0 {
			outcomes, err := a.bids.ReconcileDeparted(ctx, c.client, agentID, departed)
			if err != nil {
				a.log.WithError(err).Warn("reconcile departed bids")
			}
			for _, oc := range outcomes {
				a.notifyBidOutcome(chatID, oc)
			}
		}
	}
}

func (a *AgentBot) notifyBidOutcome(chatID int64, oc services.BidOutcome) {
	if oc.BidStatus == api.BidStatusAccepted {
		a.send(chatID, fmt.Sprintf("🎉 Your $%.2f bid won order #%d! Check Active Deliveries.", oc.BidAmount, oc.OrderID))
		return
	}
	a.send(chatID, fmt.Sprintf("Order #%d went to another courier.", oc.OrderID))
}

func (a *AgentBot) consumeActive(chatID int64, c *agentChat) {
	for res := range c.activeSub.Results() {
		if !c.activeTracker.Accept(res.Seq) {
			continue
		}
		if !c.online {
			continue
		}
		if res.Err != nil {
			a.log.WithError(res.Err).Warn("active orders poll failed")
			continue
		}
		c.activeOrders = res.Value.ActiveOrders
	}
}

// renderFeed edits the feed message in place, sending it on first render.
func (a *AgentBot) renderFeed(chatID int64, c *agentChat) {
	cards := c.feed.Cards()
	if len(cards) == 0 {
		if c.feedMessageID != 0 {
			edit := tgbotapi.NewEditMessageText(chatID, c.feedMessageID, "No delivery requests right now.")
			a.tg.Send(edit)
		}
		return
	}

	var b strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	b.WriteString("📋 Delivery requests\n")
	for _, card := range cards {
		b.WriteString(fmt.Sprintf("\n#%d — %s → %s\n", card.OrderID, card.RestaurantName, card.DeliveryAddress))
		b.WriteString(fmt.Sprintf("Fare: $%.2f–$%.2f (suggested $%.2f)\n", card.MinAllowedFare, card.MaxAllowedFare, card.BaseFare))
		if card.StudentOnly {
			b.WriteString("🎓 Student couriers only\n")
		}
		if card.LeadingBidAmount != nil {
			b.WriteString(fmt.Sprintf("Leading bid: $%.2f of %d\n", *card.LeadingBidAmount, card.TotalPlacedBids))
		} else if card.TotalPlacedBids > 0 {
			b.WriteString(fmt.Sprintf("Bids placed: %d\n", card.TotalPlacedBids))
		}
		b.WriteString("⏱ " + card.CountdownLabel() + " left\n")
		if card.BidSubmitted {
			b.WriteString("✅ Bid submitted\n")
		} else {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💵 Bid on #%d", card.OrderID), fmt.Sprintf("bid:%d", card.OrderID)),
			))
		}
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)

	if c.feedMessageID == 0 {
		c.feedMessageID = a.sendWithInline(chatID, b.String(), kb)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, c.feedMessageID, b.String())
	if len(rows) > 0 {
		edit.ReplyMarkup = &kb
	}
	if _, err := a.tg.Send(edit); err != nil {
		// message may have been deleted; fall back to a fresh one
		c.feedMessageID = a.sendWithInline(chatID, b.String(), kb)
	}
}

func (a *AgentBot) handleText(chatID int64, userID int64, text string) {
	c, ok := a.requireAgent(chatID)
	if !ok {
		return
	}
	if c.pendingBidOrder == 0 {
		a.send(chatID, "Use the buttons to interact.")
		return
	}

	orderID := c.pendingBidOrder
	var card *services.FeedCard
	for _, fc := range c.feed.Cards() {
		if fc.OrderID == orderID {
			card = &fc
			break
		}
	}
	if card == nil {
		c.pendingBidOrder = 0
		a.send(chatID, fmt.Sprintf("Order #%d is no longer open for bids.", orderID))
		return
	}

	ctx := context.Background()
	bid, err := a.bids.Submit(ctx, c.client, c.agentID, *card, text)
	if err != nil {
		// validation and backend errors stay scoped to this order
		a.send(chatID, err.Error())
		return
	}
	c.pendingBidOrder = 0
	c.feed.MarkSubmitted(orderID)
	a.send(chatID, fmt.Sprintf("✅ Bid of $%.2f placed on order #%d.", bid.BidAmount, orderID))
	a.renderFeed(chatID, c)
}

func (a *AgentBot) handlePhoto(chatID int64, msg *tgbotapi.Message) {
	c, ok := a.requireAgent(chatID)
	if !ok {
		return
	}
	if c.pendingProof == 0 {
		a.send(chatID, "Tap 📸 on a delivery first, then send the photo.")
		return
	}
	orderID := c.pendingProof

	// largest size is last
	photo := msg.Photo[len(msg.Photo)-1]
	fileName := fmt.Sprintf("delivery_%d.jpg", orderID)

	ctx := context.Background()
	proof, err := a.proofs.Attach(ctx, c.agentID, orderID, photo.FileID, fileName)
	if err != nil {
		a.log.WithError(err).Error("attach proof")
		a.send(chatID, "Could not save the photo, please try again.")
		return
	}
	c.pendingProof = 0
	a.log.WithFields(logrus.Fields{"order_id": orderID, "proof_key": proof.Key}).Info("proof attached")

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark Delivered", fmt.Sprintf("fulfill:%d", orderID)),
		),
	)
	a.sendWithInline(chatID, fmt.Sprintf("📸 Photo saved for order #%d.", orderID), kb)
}

func (a *AgentBot) handleFulfill(chatID int64, c *agentChat, orderID int) {
	ctx := context.Background()
	resp, err := a.fulfiller.Fulfill(ctx, c.client, c.agentID, orderID)
	if err != nil {
		a.send(chatID, errDetail(err))
		return
	}

	// drop from the local active list without waiting for the next poll
	remaining := c.activeOrders[:0]
	for _, o := range c.activeOrders {
		if o.OrderID != orderID {
			remaining = append(remaining, o)
		}
	}
	c.activeOrders = remaining

	a.send(chatID, fmt.Sprintf(
		"🎉 Order #%d delivered!\nEarned: $%.2f\nTotal earnings: $%.2f (%d deliveries)",
		resp.OrderID, resp.PayoutAmount, resp.TotalEarnings, resp.TotalDeliveries,
	))
}

func (a *AgentBot) showActiveOrders(chatID int64, c *agentChat) {
	ctx := context.Background()
	resp, err := c.client.AgentActiveOrders(ctx, c.agentID)
	if err != nil {
		a.send(chatID, errDetail(err))
		return
	}
	c.activeOrders = resp.ActiveOrders
	if len(resp.ActiveOrders) == 0 {
		a.send(chatID, "No active deliveries.")
		return
	}

	var b strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	b.WriteString("📦 Active deliveries\n")
	for _, o := range resp.ActiveOrders {
		b.WriteString(fmt.Sprintf("\n#%d — %s → %s\nFare: $%.2f · %s\n",
			o.OrderID, o.RestaurantName, o.DeliveryAddress, o.DeliveryFee, o.OrderStatus))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📸 Photo #%d", o.OrderID), fmt.Sprintf("proof:%d", o.OrderID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Deliver #%d", o.OrderID), fmt.Sprintf("fulfill:%d", o.OrderID)),
		))
	}
	a.sendWithInline(chatID, b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (a *AgentBot) showEarnings(chatID int64, c *agentChat) {
	ctx := context.Background()
	agent, err := c.client.GetAgent(ctx, c.agentID)
	if err != nil {
		a.send(chatID, errDetail(err))
		return
	}
	a.send(chatID, fmt.Sprintf(
		"💰 Earnings\n\nTotal earned: $%.2f\nDeliveries: %d\nRating: %.1f",
		agent.TotalEarnings, agent.TotalDeliveries, agent.Rating,
	))
}
