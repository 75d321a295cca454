// internal/notify/format.go
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// markdownEscaper escapes every character Telegram MarkdownV2 reserves.
// Backslash goes first so already-present backslashes don't double-escape
// the replacements.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"~", `\~`,
	"`", "\\`",
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	"{", `\{`,
	"}", `\}`,
	".", `\.`,
	"!", `\!`,
)

// Escape makes text safe for insertion into a MarkdownV2 message. It is
// applied to inserted content only, never to markup the formatter emits.
func Escape(text string) string {
	return markdownEscaper.Replace(text)
}

// escapeLinkURL escapes the characters MarkdownV2 reserves inside the (...)
// part of an inline link.
func escapeLinkURL(url string) string {
	url = strings.ReplaceAll(url, `\`, `\\`)
	return strings.ReplaceAll(url, `)`, `\)`)
}

// escapeCode escapes the characters MarkdownV2 reserves inside a code span.
// Git allows backticks and backslashes in branch names.
func escapeCode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "`", "\\`")
}

// firstLine truncates a commit message to its summary line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// shortSHA is the 7-character commit identifier GitHub displays.
func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// CommitMessage carries everything the commit notification template renders.
type CommitMessage struct {
	RepoName   string
	Branch     string
	AuthorName string // raw VCS author name
	AuthorURL  string // GitHub profile URL, empty when the login is unknown
	// TelegramName overrides the author display when the GitHub login has
	// been reconciled to a Telegram account.
	TelegramName string
	SHA          string
	URL          string
	Message      string
	Added        int
	Removed      int
	Modified     int
}

// FormatCommit renders one commit notification in MarkdownV2.
func FormatCommit(m CommitMessage) string {
	var b strings.Builder

	b.WriteString("📦 *")
	b.WriteString(Escape(m.RepoName))
	b.WriteString("* `(")
	b.WriteString(escapeCode(m.Branch))
	b.WriteString(")`\n")

	b.WriteString("👤 ")
	switch {
	case m.TelegramName != "":
		b.WriteString(Escape(m.TelegramName))
	case m.AuthorURL != "":
		b.WriteString("[")
		b.WriteString(Escape(m.AuthorName))
		b.WriteString("](")
		b.WriteString(escapeLinkURL(m.AuthorURL))
		b.WriteString(")")
	default:
		b.WriteString(Escape(m.AuthorName))
	}
	b.WriteString("\n")

	b.WriteString("🔗 [")
	b.WriteString(Escape(shortSHA(m.SHA)))
	b.WriteString("](")
	b.WriteString(escapeLinkURL(m.URL))
	b.WriteString(") — ")
	b.WriteString(Escape(firstLine(m.Message)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "📊 \\+%d −%d \\~%d", m.Added, m.Removed, m.Modified)

	return b.String()
}

// ReportEntry is one ranked line of the weekly report.
type ReportEntry struct {
	GithubLogin  string
	TelegramName string
	Count        int
}

const reportDivider = "----------------------------------"

// FormatWeeklyReport renders the aggregate report for one repository in
// MarkdownV2. An empty entry list produces the "no commits" body.
func FormatWeeklyReport(repoName string, weekStart, weekEnd time.Time, entries []ReportEntry, total int) string {
	var b strings.Builder

	b.WriteString("📊 *")
	b.WriteString(Escape("Weekly report for"))
	b.WriteString("* ")
	b.WriteString(Escape(repoName))
	b.WriteString("\n*")
	b.WriteString(Escape("Period"))
	b.WriteString("*: ")
	b.WriteString(Escape(weekStart.Format("02.01.2006")))
	b.WriteString(" \\- ")
	b.WriteString(Escape(weekEnd.Format("02.01.2006")))
	b.WriteString("\n\n")

	if len(entries) == 0 {
		b.WriteString(Escape("No commits this week."))
		return b.String()
	}

	b.WriteString("*")
	b.WriteString(Escape("Top contributors:"))
	b.WriteString("*\n")
	b.WriteString(Escape(reportDivider))
	b.WriteString("\n")

	for i, e := range entries {
		display := e.GithubLogin
		if display == "" {
			display = "N/A"
		}
		if e.TelegramName != "" {
			display = fmt.Sprintf("%s (GitHub: %s)", e.TelegramName, e.GithubLogin)
		}
		b.WriteString(Escape(fmt.Sprintf("%d. ", i+1)))
		b.WriteString(Escape(display))
		b.WriteString(" — *")
		b.WriteString(Escape(strconv.Itoa(e.Count)))
		b.WriteString("* ")
		b.WriteString(Escape("commit(s)"))
		b.WriteString("\n")
	}

	b.WriteString(Escape(reportDivider))
	b.WriteString("\n\n*")
	b.WriteString(Escape("Total commits"))
	b.WriteString("*: ")
	b.WriteString(Escape(strconv.Itoa(total)))

	return b.String()
}
