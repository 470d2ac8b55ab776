package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
	"github.com/PoluyanbIch/MenuQuizBot/internal/service"
)

// QuizEngine - то, что бот вызывает у движка раундов
type QuizEngine interface {
	StartQuiz(ctx context.Context, userID int64, identityLabel string) error
	CancelQuiz(ctx context.Context, userID int64) error
	SubmitAnswer(ctx context.Context, userID int64, text string) error
	SubmitOption(ctx context.Context, userID int64, token string, option int) error
	ReloadQuestionBank(ctx context.Context) (int, error)
}

type Bot struct {
	api     sender
	engine  QuizEngine
	board   ledger.Board
	isAdmin func(userID int64) bool
}

func NewBot(api sender, engine QuizEngine, board ledger.Board, isAdmin func(int64) bool) *Bot {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Bot{
		api:     api,
		engine:  engine,
		board:   board,
		isAdmin: isAdmin,
	}
}

// Run слушает long polling до отмены ctx. Каждое обновление
// обрабатывается в своей горутине: ответы разных пользователей независимы.
// Перед возвратом дожидается обработчиков, которые ещё работают.
func Run(ctx context.Context, api *tgbotapi.BotAPI, b *Bot) error {
	glog.Infof("Authorised on account: %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return b.serve(ctx, api.GetUpdatesChan(u), api.StopReceivingUpdates)
}

func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func()) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		b.sendMainMenu(chatID)
	case "quiz":
		b.startQuiz(ctx, chatID, message.From)
	case "cancel", "stop":
		b.cancelQuiz(ctx, chatID)
	case "leaderboard":
		b.handleLeaderboard(ctx, chatID)
	case "reload":
		b.handleReload(ctx, chatID, message.From)
	case "info":
		b.handleInfo(chatID)
	case "":
		// обычный текст - ответ на текущий вопрос
		b.submitText(ctx, chatID, message.Text)
	default:
		b.sendMessage(chatID, "Невідома команда")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.api.Request(callbackConfig); err != nil {
		glog.Warningf("Error answering callback: %v", err)
	}

	switch {
	case data == "start_quiz":
		b.startQuiz(ctx, chatID, callback.From)
	case strings.HasPrefix(data, answerPrefix):
		b.submitOption(ctx, chatID, data)
	case data == "exit_quiz":
		b.cancelQuiz(ctx, chatID)
	case data == "back_to_menu":
		b.sendMainMenu(chatID)
	case data == "info":
		b.handleInfo(chatID)
	case data == "leaderboard":
		b.handleLeaderboard(ctx, chatID)
	default:
		b.sendMessage(chatID, "Невідома команда")
	}
}

// identityLabel - имя для журнала: @username или имя с фамилией
func identityLabel(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, user *tgbotapi.User) {
	err := b.engine.StartQuiz(ctx, chatID, identityLabel(user))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSessionActive):
		b.sendMessage(chatID, "⏳ Тест уже триває. Відповідай на питання або натисни «Вийти з тесту».")
	case errors.Is(err, service.ErrCatalogUnavailable):
		b.sendMessage(chatID, "😔 Питання ще не готові, спробуй трохи пізніше.")
	default:
		glog.Errorf("Error starting quiz for %d: %v", chatID, err)
	}
}

func (b *Bot) cancelQuiz(ctx context.Context, chatID int64) {
	if err := b.engine.CancelQuiz(ctx, chatID); err != nil && !errors.Is(err, service.ErrNoActiveSession) {
		glog.Errorf("Error canceling quiz for %d: %v", chatID, err)
	}
}

func (b *Bot) submitText(ctx context.Context, chatID int64, text string) {
	b.logAnswerErr(chatID, b.engine.SubmitAnswer(ctx, chatID, text))
}

func (b *Bot) submitOption(ctx context.Context, chatID int64, data string) {
	token, option, ok := parseAnswerData(data)
	if !ok {
		glog.V(2).Infof("Malformed answer callback from %d: %q", chatID, data)
		return
	}
	b.logAnswerErr(chatID, b.engine.SubmitOption(ctx, chatID, token, option))
}

func (b *Bot) logAnswerErr(chatID int64, err error) {
	switch {
	case err == nil:
	case errors.Is(err, service.ErrStaleRound), errors.Is(err, service.ErrNoActiveSession):
		glog.V(2).Infof("Answer from %d ignored: %v", chatID, err)
	case errors.Is(err, service.ErrLedgerWriteFailed):
		glog.Warningf("Result of %d not saved: %v", chatID, err)
	default:
		glog.Errorf("Error handling answer from %d: %v", chatID, err)
	}
}

func (b *Bot) handleReload(ctx context.Context, chatID int64, user *tgbotapi.User) {
	if user == nil || !b.isAdmin(user.ID) {
		b.sendMessage(chatID, "Невідома команда")
		return
	}

	n, err := b.engine.ReloadQuestionBank(ctx)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("⚠️ Не вдалося оновити меню: %v\nПитань у банку: %d", err, n))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🔄 Меню оновлено, питань: %d", n))
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "📋 *Головне меню*")
	msg.ParseMode = "Markdown"

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 Тест по меню", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Лідерборд", "leaderboard"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Правила", "info"),
		),
	)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		glog.Warningf("Error sending start message: %v", err)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		glog.Warningf("Error sending msg: %v", err)
	}
}

func leaderboardText(top []ledger.Result) string {
	message := "🏆 <b>Топ 10 гравців</b>\n\n"

	for i, entry := range top {
		medal := "🔸"
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}

		message += fmt.Sprintf("%s %d. %s - %.0f%% (%d/%d)\n   📅 %s\n\n",
			medal, i+1, html.EscapeString(entry.IdentityLabel), entry.Percentage, entry.Score, entry.Total,
			entry.Timestamp.Format("02.01.2006 15:04"))
	}
	return message
}

func (b *Bot) handleLeaderboard(ctx context.Context, chatID int64) {
	if b.board == nil {
		b.sendMessage(chatID, "🏆 Лідерборд недоступний")
		return
	}

	top, err := b.board.Top(ctx, 10) // Топ 10
	if err != nil {
		glog.Errorf("Error loading leaderboard: %v", err)
		b.sendMessage(chatID, "😔 Не вдалося завантажити лідерборд")
		return
	}

	if len(top) == 0 {
		b.sendMessage(chatID, "🏆 Лідерборд\n\nПоки немає результатів. Будь першим! 🎯")
		return
	}

	msg := tgbotapi.NewMessage(chatID, leaderboardText(top))
	msg.ParseMode = "HTML"

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Почати тест", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Головне меню", "back_to_menu"),
		),
	)

	msg.ReplyMarkup = keyboard

	if _, err := b.api.Send(msg); err != nil {
		glog.Warningf("Error sending leaderboard: %v", err)
	}
}

func (b *Bot) handleInfo(chatID int64) {
	msg := "Тест по меню ресторану.\n\n" +
		"• Питання про ціни, вагу та склад страв\n" +
		"• На кожне питання 10 секунд\n" +
		"• Можна натиснути кнопку або написати відповідь текстом\n" +
		"• /cancel - перервати тест, результат не зберігається"

	infoMsg := tgbotapi.NewMessage(chatID, msg)

	infoMsg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Почати тест", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "back_to_menu"),
		),
	)

	if _, err := b.api.Send(infoMsg); err != nil {
		glog.Warningf("Error sending info: %v", err)
	}
}
