package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends Telegram messages to players. A nil *Notifier drops every
// message, which is how notifications are disabled.
type Notifier struct {
	bot *tgbotapi.BotAPI
}

func NewNotifier(botToken string) (*Notifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}
	log.Printf("Notifier authorized as @%s", bot.Self.UserName)
	return &Notifier{bot: bot}, nil
}

func (n *Notifier) send(chatID int64, text string) {
	if n == nil || n.bot == nil || chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

func (n *Notifier) DepositApproved(userID int64, credited float64) {
	n.send(userID, fmt.Sprintf("✅ *Deposit approved*\n\n*+%.0f silver* has been added to your balance.", credited))
}

func (n *Notifier) DepositRejected(userID int64, amount float64) {
	n.send(userID, fmt.Sprintf("❌ Your deposit of %.0f silver was rejected. Contact support if you already paid.", amount))
}

func (n *Notifier) WithdrawalPaid(userID int64, amount float64, method string) {
	n.send(userID, fmt.Sprintf("💸 *Withdrawal sent*\n\n%.0f gold was paid out via %s.", amount, method))
}

func (n *Notifier) WithdrawalRejected(userID int64, amount float64) {
	n.send(userID, fmt.Sprintf("❌ Your withdrawal of %.0f gold was rejected and the gold was returned.", amount))
}

func (n *Notifier) SponsorBonus(sponsorID int64, friend string, bonus float64) {
	n.send(sponsorID, fmt.Sprintf("🥈 *Referral earnings!*\n\nYour friend @%s bought silver.\n\n💰 *+%.0f silver* was added to your account!", friend, bonus))
}
