package telegram

import (
	"strconv"
	"strings"
)

// Update is the subset of a Bot API webhook update the bot reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

func (c Chat) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}

// Command returns the leading bot command of text, lower-cased and without any
// @botname suffix. It returns "" when text is not a command.
func Command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}
