// Package format renders raffle state and history for Discord embeds.
package format

import (
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

// Embed colors.
const (
	ColorRaffle  = 0xFFD700 // gold raffle post
	ColorWin     = 0x00FF00 // green winner announcement
	ColorStatus  = 0x00FFFF // aqua entries/status reply
	ColorHistory = 0x00008B // dark blue history
)

// Default raffle post text, overridable per start.
const (
	DefaultTitle       = "\U0001F39F️ Raffle Time!" // 🎟️
	DefaultDescription = "Click the button below to use your raffle ticket!"
	JoinButtonLabel    = "\U0001F39F️ Use Ticket"
)

// Discord caps embed field values at 1024 characters.
const maxFieldLen = 1024

// recentWinners is how many winners the status block shows.
const recentWinners = 5

// LimitLabel renders a win cap, where 0 means unlimited.
func LimitLabel(n int) string {
	if n > 0 {
		return fmt.Sprintf("%d", n)
	}
	return "No Limit"
}

// Status renders the raffle status block shown on the raffle post and in
// entries replies.
func Status(g *raffle.GuildRaffle) string {
	var b strings.Builder

	active := "❌ No"
	if g.Active {
		active = "✅ Yes"
	}
	fmt.Fprintf(&b, "**Active:** %s\n", active)
	fmt.Fprintf(&b, "**Tickets Distributed:** %d\n", g.TotalTickets())
	fmt.Fprintf(&b, "**Max Wins Per User:** %s\n", LimitLabel(g.MaxWinsPerUser))
	fmt.Fprintf(&b, "**Max Wins Per Prize:** %s\n\n", LimitLabel(g.MaxWinsPerPrize))

	b.WriteString("**Prizes & Wins:**\n")
	if len(g.Prizes) == 0 {
		b.WriteString("No prizes configured.\n")
	} else {
		for _, p := range g.Prizes {
			fmt.Fprintf(&b, "• **%s** (Chance: %d) - Won: %d times\n", p.Name, p.Weight, g.PrizeWins[p.Name])
		}
	}

	b.WriteString("\n**Recent Winners:**\n")
	if len(g.Winners) == 0 {
		b.WriteString("No winners yet in this raffle.\n")
	} else {
		winners := g.Winners
		if len(winners) > recentWinners {
			winners = winners[len(winners)-recentWinners:]
		}
		for _, w := range winners {
			fmt.Fprintf(&b, "• %s won **%s**\n", w.UserTag, w.PrizeName)
		}
	}

	return Truncate(b.String(), maxFieldLen)
}

// WinAnnouncement renders the public winner announcement body.
func WinAnnouncement(userTag, prizeName string) string {
	return fmt.Sprintf("%s just won **%s**!", userTag, prizeName)
}

// maxHistoryWinners is how many winners a history entry lists before eliding
// the rest.
const maxHistoryWinners = 10

// HistoryEntry renders one completed run for the history embed.
func HistoryEntry(s raffle.Summary) string {
	var b strings.Builder

	b.WriteString("**Prizes:**\n")
	if len(s.Prizes) == 0 {
		b.WriteString("No prizes configured.\n")
	} else {
		for _, p := range s.Prizes {
			fmt.Fprintf(&b, "• %s (Chance: %d)\n", p.Name, p.Weight)
		}
	}

	b.WriteString("**Winners:**\n")
	if len(s.Winners) == 0 {
		b.WriteString("No winners.")
	} else {
		winners := s.Winners
		if len(winners) > maxHistoryWinners {
			winners = winners[:maxHistoryWinners]
		}
		for _, w := range winners {
			fmt.Fprintf(&b, "• %s won **%s**\n", w.UserTag, w.PrizeName)
		}
		if extra := len(s.Winners) - maxHistoryWinners; extra > 0 {
			fmt.Fprintf(&b, "...and %d more.", extra)
		}
	}

	return Truncate(b.String(), maxFieldLen)
}

// Truncate shortens s to maxLen characters, appending "..." when trimmed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
