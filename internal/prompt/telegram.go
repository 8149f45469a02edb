package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
)

const defaultTelegramTimeout = 5 * time.Minute

// TelegramPrompter forwards approval requests to a Telegram chat as an
// inline-keyboard message and waits for a button press. Only senders on
// the allow list may answer.
type TelegramPrompter struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	allowList map[string]bool
	timeout   time.Duration

	mu sync.Mutex // one pending request at a time
}

func NewTelegramPrompter(token string, chatID int64, allowFrom []string) (*TelegramPrompter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	slog.Info("telegram prompter connected", "username", bot.Self.UserName)

	allowList := make(map[string]bool)
	for _, id := range allowFrom {
		allowList[strings.TrimSpace(id)] = true
	}
	return &TelegramPrompter{
		bot:       bot,
		chatID:    chatID,
		allowList: allowList,
		timeout:   defaultTelegramTimeout,
	}, nil
}

// SetTimeout overrides how long Ask waits for an answer.
func (p *TelegramPrompter) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// Ask sends the request and blocks until a button press, timeout, or
// context cancel. Timeout and cancel count as dismissal.
func (p *TelegramPrompter) Ask(ctx context.Context, req risk.ActionRequest) (permission.Choice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := tgbotapi.NewMessage(p.chatID, formatRequest(req))
	msg.ReplyMarkup = approvalKeyboard(req.ID)

	sent, err := p.bot.Send(msg)
	if err != nil {
		return permission.ChoiceNone, fmt.Errorf("send approval request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := p.bot.GetUpdatesChan(u)
	defer p.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			p.editOutcome(sent, "No answer, treated as cancelled")
			return permission.ChoiceNone, nil
		case update, ok := <-updates:
			if !ok {
				return permission.ChoiceNone, nil
			}
			choice, answered := p.handleUpdate(update, req.ID)
			if !answered {
				continue
			}
			p.editOutcome(sent, "Answered: "+choiceLabel(choice))
			return choice, nil
		}
	}
}

func (p *TelegramPrompter) handleUpdate(update tgbotapi.Update, requestID string) (permission.Choice, bool) {
	cb := update.CallbackQuery
	if cb == nil || cb.From == nil {
		return permission.ChoiceNone, false
	}

	senderID := fmt.Sprintf("%d", cb.From.ID)
	if len(p.allowList) > 0 && !p.allowList[senderID] {
		slog.Debug("unauthorized approval answer", "id", senderID)
		return permission.ChoiceNone, false
	}

	gotID, choice, ok := parseCallback(cb.Data)
	if !ok || gotID != requestID {
		return permission.ChoiceNone, false
	}

	ack := tgbotapi.NewCallback(cb.ID, choiceLabel(choice))
	if _, err := p.bot.Request(ack); err != nil {
		slog.Warn("answer callback failed", "error", err)
	}
	return choice, true
}

func (p *TelegramPrompter) editOutcome(sent tgbotapi.Message, outcome string) {
	edit := tgbotapi.NewEditMessageText(sent.Chat.ID, sent.MessageID, sent.Text+"\n\n"+outcome)
	if _, err := p.bot.Send(edit); err != nil {
		slog.Debug("edit approval message failed", "error", err)
	}
}

func formatRequest(req risk.ActionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s risk: %s\n", req.Level.Icon(), strings.ToUpper(string(req.Level)), req.Category)
	b.WriteString(req.Description + "\n")
	if req.EstimatedImpact != "" {
		b.WriteString("Impact: " + req.EstimatedImpact + "\n")
	}
	if !req.Reversible {
		b.WriteString("This action cannot be undone\n")
	}
	if len(req.AffectedFiles) > 0 {
		fmt.Fprintf(&b, "Files (%d):\n", len(req.AffectedFiles))
		shown := req.AffectedFiles
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, f := range shown {
			b.WriteString("  " + f + "\n")
		}
		if rest := len(req.AffectedFiles) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func approvalKeyboard(requestID string) tgbotapi.InlineKeyboardMarkup {
	button := func(label string, choice permission.Choice) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label, encodeCallback(requestID, choice))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("Allow once", permission.ChoiceAllowOnce),
			button("Always allow", permission.ChoiceAlwaysAllow),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("Always ask", permission.ChoiceAlwaysAsk),
			button("Deny", permission.ChoiceDeny),
		),
	)
}

func encodeCallback(requestID string, choice permission.Choice) string {
	return "approve|" + requestID + "|" + string(choice)
}

func parseCallback(data string) (requestID string, choice permission.Choice, ok bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != "approve" {
		return "", permission.ChoiceNone, false
	}
	switch c := permission.Choice(parts[2]); c {
	case permission.ChoiceAllowOnce, permission.ChoiceAlwaysAllow, permission.ChoiceAlwaysAsk, permission.ChoiceDeny:
		return parts[1], c, true
	default:
		return "", permission.ChoiceNone, false
	}
}

func choiceLabel(choice permission.Choice) string {
	switch choice {
	case permission.ChoiceAllowOnce:
		return "Allow once"
	case permission.ChoiceAlwaysAllow:
		return "Always allow"
	case permission.ChoiceAlwaysAsk:
		return "Always ask"
	case permission.ChoiceDeny:
		return "Deny"
	default:
		return "Cancelled"
	}
}
