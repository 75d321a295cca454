// internal/notify/format_test.go
package notify

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// unescape drops the backslash in front of every escaped reserved character,
// recovering the original inserted text.
var escapeSeq = regexp.MustCompile("\\\\([\\\\_*\\[\\]()~`>#+=|{}.!-])")

func unescape(s string) string {
	return escapeSeq.ReplaceAllString(s, "$1")
}

func TestEscape_RoundTrip(t *testing.T) {
	inputs := []string{
		"_*[]()~`>#+-=|{}.!",
		"release v1.2.3 (hotfix!) [urgent]",
		"plain text without markup",
		`back\slash`,
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, in, unescape(Escape(in)), "input %q", in)
	}
}

func TestEscape_NeutralizesMarkup(t *testing.T) {
	escaped := Escape("*bold* _italic_ [link](url)")
	assert.Equal(t, `\*bold\* \_italic\_ \[link\]\(url\)`, escaped)
}

func TestFormatCommit(t *testing.T) {
	msg := FormatCommit(CommitMessage{
		RepoName:   "mixaron/test-repo",
		Branch:     "main",
		AuthorName: "Mix Aron",
		AuthorURL:  "https://github.com/mixaron",
		SHA:        "4a0c3e95b1f0decafc0ffeebadf00d1234567890",
		URL:        "https://github.com/mixaron/test-repo/commit/4a0c3e9",
		Message:    "fix: handle empty refs\n\nlong body that should not appear",
		Added:      2,
		Removed:    1,
		Modified:   3,
	})

	assert.Contains(t, msg, `mixaron/test\-repo`)
	assert.Contains(t, msg, "`(main)`")
	assert.Contains(t, msg, `[4a0c3e9]`)
	assert.Contains(t, msg, `fix: handle empty refs`)
	assert.NotContains(t, msg, "long body")
	assert.Contains(t, msg, `\+2 −1 \~3`)
	// Raw author name links to the profile.
	assert.Contains(t, msg, `[Mix Aron](https://github.com/mixaron)`)
}

func TestFormatCommit_LinkedTelegramName(t *testing.T) {
	msg := FormatCommit(CommitMessage{
		RepoName:     "a/b",
		Branch:       "main",
		AuthorName:   "Mix Aron",
		AuthorURL:    "https://github.com/mixaron",
		TelegramName: "mix_tg",
		SHA:          "abcdef1234",
		URL:          "https://example.com/c",
		Message:      "msg",
	})
	assert.Contains(t, msg, `mix\_tg`)
	assert.NotContains(t, msg, "github.com/mixaron)")
}

func TestFormatCommit_AdversarialInput(t *testing.T) {
	msg := FormatCommit(CommitMessage{
		RepoName:   "owner/repo_with_underscores",
		Branch:     "main",
		AuthorName: "",
		SHA:        "abc",
		URL:        "https://example.com/c(1)",
		Message:    "*][`~!",
	})
	assert.Contains(t, msg, `repo\_with\_underscores`)
	assert.Contains(t, msg, `\*\]\[`+"\\`"+`\~\!`)
	// Parenthesis inside the link target is escaped so the link stays closed.
	assert.Contains(t, msg, `https://example.com/c(1\)`)
}

func TestFormatCommit_BranchWithReservedCharacters(t *testing.T) {
	t.Run("backtick cannot close the code span early", func(t *testing.T) {
		msg := FormatCommit(CommitMessage{
			RepoName: "a/b",
			Branch:   "fix`oops",
			SHA:      "abc",
			URL:      "https://example.com/c",
			Message:  "m",
		})
		assert.Contains(t, msg, "`(fix\\`oops)`")
	})

	t.Run("backslash stays literal inside the code span", func(t *testing.T) {
		msg := FormatCommit(CommitMessage{
			RepoName: "a/b",
			Branch:   `wip\2`,
			SHA:      "abc",
			URL:      "https://example.com/c",
			Message:  "m",
		})
		assert.Contains(t, msg, "`(wip\\\\2)`")
	})
}

func TestFormatWeeklyReport(t *testing.T) {
	start := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 24, 23, 59, 59, 0, time.UTC)

	t.Run("ranks entries with totals", func(t *testing.T) {
		report := FormatWeeklyReport("a/b", start, end, []ReportEntry{
			{GithubLogin: "alice", TelegramName: "alice_tg", Count: 5},
			{GithubLogin: "bob", Count: 2},
		}, 7)

		assert.Contains(t, report, `Weekly report for`)
		assert.Contains(t, report, `18\.08\.2025`)
		assert.Contains(t, report, `24\.08\.2025`)
		assert.Contains(t, report, `1\. alice\_tg \(GitHub: alice\) — *5*`)
		assert.Contains(t, report, `2\. bob — *2*`)
		assert.Contains(t, report, `*Total commits*: 7`)
	})

	t.Run("renders the empty window", func(t *testing.T) {
		report := FormatWeeklyReport("a/b", start, end, nil, 0)
		assert.Contains(t, report, `No commits this week\.`)
		assert.NotContains(t, report, "Top contributors")
	})
}
