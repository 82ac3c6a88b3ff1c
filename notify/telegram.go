package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/rates"
)

var errMissingToken = errors.New("missing telegram token")

// sender is the subset of the bot API used to deliver messages
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier posts rate changes to a single chat
type TelegramNotifier struct {
	bot  sender
	chat tele.ChatID
}

// NewTelegramBot creates a bot for the given token. Offline bots skip
// the initial API handshake, and are only used for sending
func NewTelegramBot(token, apiURL string, offline bool) (*tele.Bot, error) {
	if token == "" {
		return nil, errMissingToken
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     apiURL,
		Offline: offline,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create telegram bot: %w", err)
	}

	return bot, nil
}

// NewTelegramNotifier creates a new notifier posting to the given chat
func NewTelegramNotifier(bot *tele.Bot, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:  bot,
		chat: tele.ChatID(chatID),
	}
}

func (n *TelegramNotifier) Notify(_ context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	if _, err := n.bot.Send(n.chat, Message(changes)); err != nil {
		return fmt.Errorf("unable to send telegram notification: %w", err)
	}

	return nil
}

// SnapshotSource provides the current rates to bot commands
type SnapshotSource interface {
	Snapshot() rates.Snapshot
}

// RegisterCommands registers the rate query commands on the bot:
// /tasa replies with the current snapshot, /convertir converts an amount
func RegisterCommands(bot *tele.Bot, source SnapshotSource) {
	bot.Handle("/tasa", func(c tele.Context) error {
		return c.Send(SnapshotMessage(source.Snapshot()))
	})

	bot.Handle("/convertir", func(c tele.Context) error {
		req, err := convert.ParseArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}

		return c.Send(convert.Message(req, convert.Do(req, source.Snapshot())))
	})
}

// SnapshotMessage renders the snapshot as a chat reply
func SnapshotMessage(s rates.Snapshot) string {
	if !s.Known() {
		return "Tasas no disponibles todavía"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "USDT: %.2f Bs (%s, %+.2f%%)\n", s.USDT.Price, s.USDT.Source, s.USDT.Change)
	fmt.Fprintf(&b, "BCV: %.2f Bs (%s, %+.2f%%)\n", s.BCV.Price, s.BCV.Source, s.BCV.Change)
	fmt.Fprintf(&b, "Euro: %.2f Bs (%s, %+.2f%%)\n", s.Euro.Price, s.Euro.Source, s.Euro.Change)
	fmt.Fprintf(&b, "Brecha: %.2f%%", convert.Gap(s))

	return b.String()
}
