package controller

const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandTags  = "tags"

	// CallbackAutoDJ starts auto-DJ dialogue
	// from schedule menu.
	CallbackAutoDJ = "dj_start"
)

// Reply keyboard buttons.
const (
	ButtonLibrary  = "📚🎶"
	ButtonNewMedia = "🆕🎵"
	ButtonSchedule = "🗓🎼"
	ButtonOnAir    = "📻"
	ButtonHelp     = "❓"
	ButtonMainMenu = "Главное меню"
)

const (
	ReplyUnexpected  = "Ты отправил мне что-то не то..."
	ReplyFail        = "Произошла ошибка, обратитесь к администратору."
	ReplyFailStart   = "Произошла ошибка, обратитесь к администратору.\nНажми /start, чтобы попробовать еще раз."
	ReplyUnknownUser = "Приветствую, радист, для начала надо зарегистрироваться. Нажми /start."
	ReplyRelogin     = "Радио не принимает твои логин и пароль. Нажми /start, чтобы войти заново."
	ReplyMainMenu    = "Главное меню"
)
