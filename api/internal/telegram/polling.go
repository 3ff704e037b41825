package telegram

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medinsight/api/internal/logger"
)

// Updater fetches updates with long polling.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// backoffRule maps a polling error message to a wait. A rule with after set
// honours the server's "retry after N" hint before falling back to wait.
type backoffRule struct {
	contains string
	wait     time.Duration
	after    *regexp.Regexp
}

var backoffRules = []backoffRule{
	{contains: "too many requests", wait: 3 * time.Second, after: regexp.MustCompile(`retry after\s+(\d+)`)},
	{contains: "bad gateway", wait: 5 * time.Second},
	{contains: "conflict", wait: 10 * time.Second},
}

const (
	timeoutBackoff = 2 * time.Second
	defaultBackoff = time.Second
)

// retryDelayFromError picks the wait before the next GetUpdates call.
func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range backoffRules {
		if !strings.Contains(msg, rule.contains) {
			continue
		}
		if rule.after != nil {
			if m := rule.after.FindStringSubmatch(msg); m != nil {
				if n, _ := strconv.Atoi(m[1]); n > 0 {
					return time.Duration(n) * time.Second
				}
			}
		}
		return rule.wait
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutBackoff
	}
	return defaultBackoff
}

// RunPolling long-polls until ctx is done, backing off on errors.
func RunPolling(ctx context.Context, bot Updater, log *logger.Logger, handle func(tgbotapi.Update)) {
	if log == nil {
		log = logger.Nop()
	}
	offset := 0
	baseDelay := time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			log.Info("polling stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", "error", err, "retry_in", d.String())
			if !sleep(ctx, d) {
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 && !sleep(ctx, 200*time.Millisecond) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
