package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"autosolver/internal/domain/model"
	"autosolver/internal/platform/telegram"
)

// Chat messages use the Bot API HTML subset. Anything that came from outside is escaped.

const (
	msgSubmitting      = "📤 <b>Submitting solution...</b>"
	msgAlreadySolved   = "✅ Today's POTD is already solved!"
	msgAllSolved       = "🏆 You've solved everything! No more free algorithms left."
	msgCFAllSolved     = "🏆 No unsolved Codeforces problems left in your rating band."
	msgNotAuthorized   = "⚠️ You are not authorized to use this bot. Please link your Chat ID in the web app."
	msgInactive        = "🔴 Automation is paused. Send /start to resume it first."
	msgStopped         = "🔴 <b>Automation paused.</b>\n\nScheduled solves are off. Send /start to resume."
	msgBusy            = "⏳ A command is already running. Try again in a minute."
	msgQueuedPOTD      = "🤖 <b>Processing POTD...</b> Please wait."
	msgQueuedNext      = "🤖 <b>Finding and solving next problem...</b> This may take a minute."
	msgAlreadyQueued   = "⏳ That solve is already queued for today."
	msgCFPicking       = "🤖 <b>Picking a Codeforces problem...</b>"
	msgSessionExpired  = "<b>⚠️ Session Expired!</b>\n\nYour LeetCode session has expired. Please refresh your cookies in the web app to keep automation running."
	msgUnknownCommand  = "🤔 Unknown command.\n\n"
	msgMissingLeetCode = "⚠️ LeetCode credentials are missing. Add your session cookie and CSRF token in the web app."
)

func msgHelp(active bool) string {
	state := "🟢 Automation is active."
	if !active {
		state = "🔴 Automation is paused."
	}
	return "👋 <b>Welcome to LeetCode Solver!</b>\n\n" +
		"I can help you solve problems directly from Telegram.\n\n" +
		"🚀 <b>Commands:</b>\n" +
		"• /solve - Solve today's POTD\n" +
		"• /next - Solve the next free algorithm\n" +
		"• /cf - Solve a random Codeforces problem\n" +
		"• /status - Check your session status\n" +
		"• /stop - Pause automation\n" +
		"• /start - Resume automation\n\n" + state
}

func msgGenerating(title string) string {
	return fmt.Sprintf("🧠 <b>Generating solution for %s...</b>", telegram.EscapeHTML(title))
}

func msgSubmitFailed(source string, err error) string {
	return fmt.Sprintf("<b>❌ LeetCode Submission Failed!</b>\n\nProblem: %s\nReason: %s\nPlease check your session cookies.",
		telegram.EscapeHTML(source), telegram.EscapeHTML(err.Error()))
}

func msgError(err error) string {
	return "❌ <b>Error:</b> " + telegram.EscapeHTML(err.Error())
}

func verdictIcon(state string) string {
	switch state {
	case model.VerdictAccepted:
		return "✅"
	case model.VerdictWrongAnswer:
		return "❌"
	default:
		return "⚠️"
	}
}

func msgVerdict(p *model.Problem, source string, v *model.Verdict) string {
	number := p.FrontendID
	if number == "" {
		number = "?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s LeetCode %s!</b>\n\n", verdictIcon(v.State), telegram.EscapeHTML(v.State))
	fmt.Fprintf(&b, "<b>Problem:</b> %s. %s\n", telegram.EscapeHTML(number), telegram.EscapeHTML(p.Title))
	fmt.Fprintf(&b, "<b>Source:</b> %s\n", telegram.EscapeHTML(source))
	fmt.Fprintf(&b, "<b>Difficulty:</b> %s\n", telegram.EscapeHTML(string(p.Difficulty)))
	fmt.Fprintf(&b, "<b>Status:</b> %s", telegram.EscapeHTML(v.State))
	if v.Message != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", telegram.EscapeHTML(v.Message))
	}
	return b.String()
}

func msgScheduled(target time.Time, loc *time.Location) string {
	local := target.In(loc)
	return fmt.Sprintf("🎯 <b>POTD Scheduled!</b>\n\nI have scheduled today's Problem of the Day for <b>%s %s</b>. See you then! 🤖",
		local.Format("15:04"), local.Format("MST"))
}

func msgStatus(s *model.AutomationSettings, session string, loc *time.Location) string {
	active := "🟢 Active"
	if !s.IsActive {
		active = "🔴 Inactive"
	}
	last := "Never"
	if s.LastSolvedDate != nil {
		last = s.LastSolvedDate.Format(time.DateOnly)
	}
	out := fmt.Sprintf("📈 <b>Bot Status:</b> %s\n👤 <b>LeetCode Session:</b> %s\n📅 <b>Last Solved:</b> %s", active, session, last)
	if s.TargetTime != nil {
		out += fmt.Sprintf("\n🎯 <b>Next Target:</b> %s", s.TargetTime.In(loc).Format("2006-01-02 15:04 MST"))
	}
	return out
}

func msgCFSubmitted(p model.CFProblem, url string) string {
	return fmt.Sprintf("<b>✅ Codeforces Submitted!</b>\n\n<b>Problem:</b> <a href=\"%s\">%d%s. %s</a>\n<b>Rating:</b> %d\nCheck your status page for the verdict.",
		telegram.EscapeHTML(url), p.ContestID, telegram.EscapeHTML(p.Index), telegram.EscapeHTML(p.Name), p.Rating)
}

func msgCFManual(p model.CFProblem, url string, reason error, code string) string {
	head := fmt.Sprintf("<b>⚠️ Manual Submission Required</b>\n\nCodeforces refused the automated submission: %s\n\n<b>Problem:</b> <a href=\"%s\">%d%s. %s</a>\n\nCopy the solution below and submit it yourself:\n",
		telegram.EscapeHTML(reason.Error()), telegram.EscapeHTML(url), p.ContestID, telegram.EscapeHTML(p.Index), telegram.EscapeHTML(p.Name))
	return head + telegram.Pre(code, telegram.MaxMessageLen-utf8.RuneCountInString(head))
}
