package telegram

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medinsight/api/internal/upload"
	"medinsight/api/internal/util"
)

// Telegram bots can fetch files up to 20MB.
const maxDownloadBytes = 20 << 20

var errFileTooLarge = errors.New("file exceeds download limit")

func isImageDocument(d *tgbotapi.Document) bool {
	return strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}

// acceptPhoto claims the chat on the polling goroutine and fetches the file
// in the background; the photo is stored only if nothing changed meanwhile.
func (r *Router) acceptPhoto(chatID int64, fileID string) {
	gen, err := r.sessions.Claim(chatID)
	if err != nil {
		r.reject(chatID, err)
		return
	}
	r.async(func() { r.fetchPhoto(chatID, gen, fileID) })
}

func (r *Router) fetchPhoto(chatID int64, gen uint64, fileID string) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		r.log.Warn("telegram get file failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not fetch the photo, please send it again.")
		return
	}
	data, err := r.download(url)
	if errors.Is(err, errFileTooLarge) {
		r.log.Warn("photo download too large", "chat_id", chatID, "limit", r.maxDownload)
		r.send(chatID, "The file is larger than "+upload.FormatLimit(r.maxDownload)+". Please send a smaller image.")
		return
	}
	if err != nil {
		r.log.Warn("photo download failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not fetch the photo, please send it again.")
		return
	}
	if len(data) > r.maxImage {
		small, err := shrinkImage(data, r.maxImage)
		if err != nil {
			r.log.Warn("photo too large", "chat_id", chatID, "bytes", len(data), "error", err)
			r.send(chatID, "The photo is too large. Please send an image under "+upload.FormatLimit(r.maxImage)+".")
			return
		}
		data = small
	}

	mime := util.SniffMimeHTTP(data)
	encoded := base64.StdEncoding.EncodeToString(data)
	_, err = r.sessions.FireIf(chatID, gen, EventPhoto, func(s *Session) {
		s.Image = encoded
		s.MIMEType = mime
		s.Modality = ""
		s.Report = nil
	})
	if errors.Is(err, ErrStale) {
		r.log.Debug("dropping superseded photo", "chat_id", chatID)
		return
	}
	if err != nil {
		r.reject(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Photo received. What kind of document is it?")
	msg.ReplyMarkup = modalityKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) download(url string) ([]byte, error) {
	resp, err := r.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(r.maxDownload)+1))
	if err != nil {
		return nil, err
	}
	if len(data) > r.maxDownload {
		return nil, errFileTooLarge
	}
	return data, nil
}
