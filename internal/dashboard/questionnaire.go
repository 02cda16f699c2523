package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/osteo-care/internal/preprocess"
)

const callbackPrefix = "q"

// answerData encodes an answer to question i as callback data, e.g. "q:2:yes".
func answerData(i int, yes bool) string {
	v := "no"
	if yes {
		v = "yes"
	}
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, i, v)
}

func parseAnswerData(data string) (int, bool, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return 0, false, false
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil || i < 0 || i >= preprocess.QuestionCount {
		return 0, false, false
	}
	switch parts[2] {
	case "yes":
		return i, true, true
	case "no":
		return i, false, true
	}
	return 0, false, false
}

func (b *Bot) startQuestionnaire(chatID int64) {
	b.chats.update(chatID, func(c *conversation) {
		c.step = 0
		c.answers = preprocess.Answers{}
	})
	b.askQuestion(chatID, 0)
}

func (b *Bot) askQuestion(chatID int64, i int) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%d/%d. %s", i+1, preprocess.QuestionCount, preprocess.Questions[i]))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", answerData(i, true)),
			tgbotapi.NewInlineKeyboardButtonData("No", answerData(i, false)),
		),
	)
	b.sendMessage(msg)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.WarnContext(ctx, "ack callback", "error", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	i, yes, ok := parseAnswerData(cb.Data)
	if !ok {
		return
	}

	// Buttons from an earlier question or a cancelled run are ignored.
	var accepted bool
	conv := b.chats.update(chatID, func(c *conversation) {
		if c.step != i {
			return
		}
		accepted = true
		c.answers[i] = yes
		c.step++
		if c.step == preprocess.QuestionCount {
			c.step = idle
		}
	})
	if !accepted {
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		b.logger.DebugContext(ctx, "clear keyboard", "error", err)
	}

	if conv.step != idle {
		b.askQuestion(chatID, conv.step)
		return
	}

	risk, err := b.diag.AssessRisk(ctx, conv.answers)
	if err != nil {
		b.logger.ErrorContext(ctx, "questionnaire prediction", "chat_id", chatID, "error", err)
		b.send(chatID, msgPredictionError)
		return
	}
	b.send(chatID, "Risk Level: "+risk.Label)
}
