package controller

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MainMenu returns reply keyboard shown to logged in users.
// On air button is hidden when stream is not configured.
func MainMenu(onAir bool) tgbotapi.ReplyKeyboardMarkup {
	first := tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonLibrary),
		tgbotapi.NewKeyboardButton(ButtonSchedule),
		tgbotapi.NewKeyboardButton(ButtonNewMedia),
	)

	second := tgbotapi.NewKeyboardButtonRow()
	if onAir {
		second = append(second, tgbotapi.NewKeyboardButton(ButtonOnAir))
	}
	second = append(second,
		tgbotapi.NewKeyboardButton(ButtonHelp),
		tgbotapi.NewKeyboardButton(ButtonMainMenu),
	)

	return tgbotapi.NewReplyKeyboard(first, second)
}
