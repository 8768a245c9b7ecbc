package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"tasksync/internal/config"
	"tasksync/internal/repository"
	"tasksync/internal/service"
)

const (
	cbConfirm = "confirm"
	cbCancel  = "cancel"
)

const (
	btnConfirm = "✅ Run cleanup"
	btnCancel  = "↩️ Cancel"
)

// sender is the part of the Telegram API the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type pendingCleanup struct {
	userID     uuid.UUID
	templateID uuid.UUID
}

// Bot exposes the maintenance entry points to admin chats.
type Bot struct {
	api         *tgbotapi.BotAPI
	out         sender
	syncSvc     *service.TaskSyncService
	propagation *service.PropagationService
	cleanup     *service.CleanupService
	config      *config.Config
	pending     map[int64]pendingCleanup
	mu          sync.Mutex
}

func New(cfg *config.Config, syncSvc *service.TaskSyncService, propagation *service.PropagationService, cleanup *service.CleanupService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, cfg, syncSvc, propagation, cleanup)
	b.api = api
	return b, nil
}

func newBot(out sender, cfg *config.Config, syncSvc *service.TaskSyncService, propagation *service.PropagationService, cleanup *service.CleanupService) *Bot {
	return &Bot{
		out:         out,
		syncSvc:     syncSvc,
		propagation: propagation,
		cleanup:     cleanup,
		config:      cfg,
		pending:     make(map[int64]pendingCleanup),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram connection")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || !b.config.IsAdmin(msg.Chat.ID) {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help for the list of maintenance commands.")
	}

	log.Printf("[info] command from chat %d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "fix":
		return b.handleFix(ctx, msg)
	case "preview":
		return b.handlePropagate(ctx, msg, true)
	case "propagate":
		return b.handlePropagate(ctx, msg, false)
	case "reconcile":
		return b.handleReconcile(ctx, msg, false)
	case "reconcile_external":
		return b.handleReconcile(ctx, msg, true)
	case "cleanup":
		return b.handleCleanup(msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Maintenance commands</b>\n" +
		"• /fix — rebuild missing template tasks for every user\n" +
		"• /preview &lt;template&gt; — how many activities an edit would touch\n" +
		"• /propagate &lt;template&gt; — push the template to every activity using it\n" +
		"• /reconcile &lt;activity&gt; — resync one activity\n" +
		"• /reconcile_external &lt;meta&gt; — resync one external event\n" +
		"• /cleanup &lt;user&gt; &lt;template&gt; — remove everything a template generated"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleFix(ctx context.Context, msg *tgbotapi.Message) error {
	results, err := b.propagation.FixMissingActivityTasksForAllUsers(ctx)
	if err != nil {
		return b.sendError(msg.Chat.ID, "Repair sweep failed", err)
	}
	return b.sendText(msg.Chat.ID, service.FormatFixResults(results, time.Now(), service.HTML))
}

func (b *Bot) handlePropagate(ctx context.Context, msg *tgbotapi.Message, dryRun bool) error {
	ids, err := parseIDs(msg.CommandArguments(), 1)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /"+msg.Command()+" &lt;template-id&gt;")
	}
	report, err := b.propagation.PropagateTemplateChange(ctx, ids[0], dryRun)
	if err != nil {
		return b.sendError(msg.Chat.ID, "Propagation failed", err)
	}
	return b.sendText(msg.Chat.ID, service.FormatPropagation(report, service.HTML))
}

func (b *Bot) handleReconcile(ctx context.Context, msg *tgbotapi.Message, external bool) error {
	ids, err := parseIDs(msg.CommandArguments(), 1)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /"+msg.Command()+" &lt;id&gt;")
	}
	var res service.ReconcileResult
	if external {
		res, err = b.syncSvc.ReconcileExternalEventTasks(ctx, ids[0])
	} else {
		res, err = b.syncSvc.ReconcileActivityTasks(ctx, ids[0])
	}
	if err != nil {
		return b.sendError(msg.Chat.ID, "Reconcile failed", err)
	}
	return b.sendText(msg.Chat.ID, service.FormatReconcile(res, service.HTML))
}

func (b *Bot) handleCleanup(msg *tgbotapi.Message) error {
	ids, err := parseIDs(msg.CommandArguments(), 2)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /cleanup &lt;user-id&gt; &lt;template-id&gt;")
	}
	b.setPending(msg.Chat.ID, pendingCleanup{userID: ids[0], templateID: ids[1]})

	text := fmt.Sprintf("⚠️ Remove every task template <code>%s</code> generated for user <code>%s</code>?",
		ids[1], ids[0])
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirm),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancel),
	))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, markup)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.Message.Chat == nil || !b.config.IsAdmin(cb.Message.Chat.ID) {
		return nil
	}
	chatID := cb.Message.Chat.ID
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	req, ok := b.takePending(chatID)
	if !ok {
		return b.sendText(chatID, "Nothing to confirm.")
	}

	switch cb.Data {
	case cbConfirm:
		log.Printf("[info] cleanup confirmed chat=%d template=%s", chatID, req.templateID)
		report, err := b.cleanup.CleanupTasksForTemplate(ctx, req.userID, req.templateID, nil)
		if err != nil {
			return b.sendError(chatID, "Cleanup failed", err)
		}
		return b.sendText(chatID, service.FormatCleanup(report, service.HTML))
	default:
		return b.sendText(chatID, "↩️ Cleanup cancelled.")
	}
}

// SendMaintenanceReport sends a sweep summary to every admin chat.
func (b *Bot) SendMaintenanceReport(ctx context.Context, results []service.FixResult) error {
	text := service.FormatFixResults(results, time.Now(), service.HTML)
	for _, chatID := range b.config.AdminChatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chatID, text); err != nil {
			log.Printf("send maintenance report to %d: %v", chatID, err)
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendError(chatID int64, what string, err error) error {
	log.Printf("%s: %v", what, err)
	if errors.Is(err, repository.ErrNotFound) {
		return b.sendText(chatID, what+": not found.")
	}
	return b.sendText(chatID, fmt.Sprintf("%s: %s", what, html.EscapeString(err.Error())))
}

func (b *Bot) setPending(chatID int64, req pendingCleanup) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = req
}

func (b *Bot) takePending(chatID int64) (pendingCleanup, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.pending[chatID]
	delete(b.pending, chatID)
	return req, ok
}

func parseIDs(args string, n int) ([]uuid.UUID, error) {
	fields := strings.Fields(args)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d ids, got %d", n, len(fields))
	}
	ids := make([]uuid.UUID, 0, n)
	for _, f := range fields {
		id, err := uuid.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
