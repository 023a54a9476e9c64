package dispatch

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealradar/offers-service/internal/model"
)

// TelegramSender posts offers to Telegram chats/channels. The channel
// config's Target is the chat ID.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender authorises against the Bot API.
func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

func (s *TelegramSender) Send(_ context.Context, offer model.Offer, ch model.ChannelConfig) error {
	chatID, err := strconv.ParseInt(ch.Target, 10, 64)
	if err != nil {
		return fmt.Errorf("channel %s: bad chat ID %q: %w", ch.ID, ch.Target, err)
	}

	msg := tgbotapi.NewMessage(chatID, formatOffer(offer))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = offer.ImageURL == ""

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

func formatOffer(o model.Offer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 <b>%s</b>\n\n", html.EscapeString(o.Title))
	fmt.Fprintf(&b, "💰 <s>%.2f</s> → <b>%.2f %s</b> (-%.0f%%)\n",
		o.OriginalPrice, o.CurrentPrice, o.Currency, o.DiscountPercentage)
	if len(o.CouponCodes) > 0 {
		fmt.Fprintf(&b, "🎟 Coupon: <code>%s</code>\n", html.EscapeString(strings.Join(o.CouponCodes, ", ")))
	}
	if o.Rating > 0 {
		fmt.Fprintf(&b, "⭐ %.1f (%d reviews)\n", o.Rating, o.ReviewCount)
	}
	fmt.Fprintf(&b, "\n<a href=%q>View deal</a>", o.AffiliateURL)
	return b.String()
}
