package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// Unique is the callback key; Data is an optional payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// Btn is shorthand for a payload-less callback button.
func Btn(text, unique string) InlineBtn {
	return InlineBtn{Text: text, Unique: unique}
}

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ContactRequest builds a one-time reply keyboard with a "share my phone" button
// and an optional plain text button under it.
func ContactRequest(shareText, altText string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	rows := []tele.Row{markup.Row(markup.Contact(shareText))}
	if altText != "" {
		rows = append(rows, markup.Row(markup.Text(altText)))
	}
	markup.Reply(rows...)
	return markup
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			var data []string
			if btn.Data != "" {
				data = append(data, btn.Data)
			}
			r[j] = *markup.Data(btn.Text, btn.Unique, data...).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// InlineButtonsNPerRow splits a flat list of buttons into rows with up to n buttons per row.
// Trailing rows are appended as given. n <= 1 puts every button on its own row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int, trailing ...[]InlineBtn) *tele.ReplyMarkup {
	if n <= 1 {
		n = 1
	}
	var rows [][]InlineBtn
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	rows = append(rows, trailing...)
	return InlineButtonsRows(rows...)
}

// Keys lists the callback keys of an inline keyboard, row by row.
func Keys(markup *tele.ReplyMarkup) [][]string {
	if markup == nil {
		return nil
	}
	out := make([][]string, 0, len(markup.InlineKeyboard))
	for _, row := range markup.InlineKeyboard {
		keys := make([]string, 0, len(row))
		for _, b := range row {
			keys = append(keys, b.Unique)
		}
		out = append(out, keys)
	}
	return out
}
