package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
	"github.com/PoluyanbIch/MenuQuizBot/internal/service"
)

const answerPrefix = "ans:"

// sender - часть tgbotapi.BotAPI, которой пользуется бот
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Presenter показывает раунды в Telegram
type Presenter struct {
	api sender
}

func NewPresenter(api sender) *Presenter {
	return &Presenter{api: api}
}

func answerData(token string, option int) string {
	return fmt.Sprintf("%s%s:%d", answerPrefix, token, option)
}

// parseAnswerData разбирает "ans:<token>:<index>"
func parseAnswerData(data string) (string, int, bool) {
	rest, ok := strings.CutPrefix(data, answerPrefix)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", 0, false
	}
	option, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], option, true
}

func (p *Presenter) PresentQuestion(ctx context.Context, userID int64, round service.Round) error {
	text := fmt.Sprintf("❓ Питання %d/%d\n\n%s\n\n⏱ %d сек",
		round.Number,
		round.Total,
		round.Text,
		int(round.Window.Seconds()))

	msg := tgbotapi.NewMessage(userID, text)

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range round.Options {
		button := tgbotapi.NewInlineKeyboardButtonData(option, answerData(round.Token, i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚪 Вийти з тесту", "exit_quiz"),
	))

	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	_, err := p.api.Send(msg)
	return err
}

func (p *Presenter) PresentMessage(ctx context.Context, userID int64, text string) error {
	_, err := p.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func resultText(res ledger.Result, saveErr error) string {
	text := fmt.Sprintf(
		"🏁 *Тест завершено!*\n\n"+
			"📊 Результат: %d/%d\n"+
			"📈 Відсоток правильних: %.0f%%\n"+
			"%s",
		res.Score, res.Total, res.Percentage, gradeLabel(res.Grade))

	if saveErr != nil {
		text += "\n\n⚠️ Не вдалося зберегти результат у журнал, але він зарахований."
	}
	return text
}

func gradeLabel(grade string) string {
	switch service.Grade(grade) {
	case service.GradeExcellent:
		return "🏆 Відмінно!"
	case service.GradeGood:
		return "👍 Добре"
	case service.GradeFair:
		return "🙂 Задовільно"
	default:
		return "📚 Варто повторити меню"
	}
}

func (p *Presenter) PresentResult(ctx context.Context, userID int64, res ledger.Result, saveErr error) error {
	msg := tgbotapi.NewMessage(userID, resultText(res, saveErr))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Почати знову", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 В меню", "back_to_menu"),
		),
	)

	_, err := p.api.Send(msg)
	return err
}
