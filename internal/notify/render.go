package notify

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"elpbot/core/telegram/format"
	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/internal/leads"
)

// ContactKindLabel names the contact kind for people.
func ContactKindLabel(k leads.ContactKind) string {
	switch k {
	case leads.ContactPhone:
		return "телефон"
	case leads.ContactEmail:
		return "email"
	default:
		return "не указан"
	}
}

func emailStatusLine(s EmailStatus) string {
	switch s {
	case EmailSent:
		return "📧 Email: отправлен"
	case EmailFailed:
		return "📧 Email: ошибка отправки"
	default:
		return "📧 Email: отключен"
	}
}

// AdminMessage renders the Telegram HTML summary sent to the admin chat.
func AdminMessage(lead leads.Lead, ref leads.Ref, status EmailStatus) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Новая заявка " + format.Escape(ref.String()) + "</b>\n\n")
	b.WriteString(format.Field("Имя", lead.Name, "—") + "\n")
	b.WriteString(format.Field("Контакт", lead.Contact, "—") + " (" + ContactKindLabel(lead.ContactKind) + ")\n")
	b.WriteString(format.Field("Площадь", lead.Area, "—") + "\n")
	b.WriteString(format.Field("Срок", lead.Term, "—") + "\n")
	b.WriteString(format.Field("Пользователь", lead.Handle(), "—") + " " + format.Code(formatID(lead.UserID)) + "\n")
	b.WriteString(format.Field("Время", tghelpers.FormatStamp(lead.CreatedAt), "—") + "\n")
	if !ref.Durable() {
		b.WriteString("\n⚠️ Заявка не сохранена в базе данных\n")
	}
	b.WriteString("\n" + emailStatusLine(status))
	return b.String()
}

var emailTemplate = template.Must(template.New("lead").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Новая заявка {{.Ref}}</h2>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Имя</b></td><td>{{.Lead.Name}}</td></tr>
    <tr><td><b>Контакт</b></td><td>{{.Lead.Contact}} ({{.Kind}})</td></tr>
    <tr><td><b>Площадь</b></td><td>{{.Lead.Area}}</td></tr>
    <tr><td><b>Срок</b></td><td>{{.Lead.Term}}</td></tr>
    {{- with .Lead.Handle}}
    <tr><td><b>Telegram</b></td><td>{{.}}</td></tr>
    {{- end}}
    <tr><td><b>Дата</b></td><td>{{.Stamp}}</td></tr>
  </table>
  <p style="color: #888;">Eurasian Logistics Park · ELP Bot</p>
</body>
</html>
`))

func renderEmail(lead leads.Lead, ref leads.Ref) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Lead  leads.Lead
		Ref   string
		Kind  string
		Stamp string
	}{
		Lead:  lead,
		Ref:   ref.String(),
		Kind:  ContactKindLabel(lead.ContactKind),
		Stamp: tghelpers.FormatStamp(lead.CreatedAt),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatID(id int64) string {
	if id == 0 {
		return "—"
	}
	return strconv.FormatInt(id, 10)
}
