package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/osteo-care/internal/preprocess"
)

var errTooLarge = errors.New("file too large")

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	// Telegram lists sizes smallest first.
	photo := msg.Photo[len(msg.Photo)-1]
	b.grade(ctx, msg.Chat.ID, photo.FileID)
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if !preprocess.AllowedFilename(msg.Document.FileName) {
		b.send(msg.Chat.ID, msgInvalidFileType)
		return
	}
	b.grade(ctx, msg.Chat.ID, msg.Document.FileID)
}

func (b *Bot) grade(ctx context.Context, chatID int64, fileID string) {
	data, err := b.download(ctx, fileID)
	if err != nil {
		b.logger.ErrorContext(ctx, "download image", "chat_id", chatID, "error", err)
		b.send(chatID, msgPredictionError)
		return
	}

	g, err := b.diag.GradeImage(ctx, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, preprocess.ErrDecode) {
			b.send(chatID, msgInvalidImage)
			return
		}
		b.logger.ErrorContext(ctx, "image prediction", "chat_id", chatID, "error", err)
		b.send(chatID, msgPredictionError)
		return
	}

	b.logger.InfoContext(ctx, "graded x-ray", "chat_id", chatID, "kl_grade", g.KLGrade, "label", g.SeverityLabel)
	b.send(chatID, "Predicted Severity: "+g.SeverityLabel)
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > b.maxDownload {
		return nil, errTooLarge
	}
	return data, nil
}
