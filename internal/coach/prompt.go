package coach

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2beens/apexhq/internal/athlete"
)

const (
	chatContextLogs   = 5
	chatContextEvents = 5
)

// ChatContext picks what the coach gets to see next to the athlete's message:
// the most recent mental logs (stored newest first) and the next upcoming
// events, today included.
func ChatContext(doc athlete.Document, today athlete.Day) ([]athlete.MentalLog, []athlete.CalendarEvent) {
	logs := doc.MentalLogs
	if len(logs) > chatContextLogs {
		logs = logs[:chatContextLogs]
	}
	recentLogs := make([]athlete.MentalLog, len(logs))
	copy(recentLogs, logs)

	var upcoming []athlete.CalendarEvent
	for _, e := range doc.Events {
		if !e.Date.Before(today) {
			upcoming = append(upcoming, e)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})
	if len(upcoming) > chatContextEvents {
		upcoming = upcoming[:chatContextEvents]
	}
	if upcoming == nil {
		upcoming = []athlete.CalendarEvent{}
	}

	return recentLogs, upcoming
}

func chatPrompt(message string, profile athlete.Profile, recentLogs []athlete.MentalLog, upcoming []athlete.CalendarEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an elite Sports Performance Coach for an athlete named %s.\n\n", profile.Name)

	sb.WriteString("ATHLETE PROFILE:\n")
	fmt.Fprintf(&sb, "- Sport: %s (%s)\n", profile.Sport, profile.Position)
	fmt.Fprintf(&sb, "- Phase: %s\n", profile.TrainingPhase)
	fmt.Fprintf(&sb, "- Level: %s\n", profile.ExperienceLevel)
	fmt.Fprintf(&sb, "- Goals: Short-term: %q, Long-term: %q\n", profile.Goals.ShortTerm, profile.Goals.LongTerm)
	fmt.Fprintf(&sb, "- Injuries: %s\n\n", profile.Injuries)

	sb.WriteString("RECENT MENTAL LOGS (Last few entries):\n")
	for _, l := range recentLogs {
		fmt.Fprintf(&sb, "- %s: Mood %d/10, Energy %d/10. Note: %s\n",
			l.Timestamp.Format("2006-01-02"), l.Mood, l.Energy, l.Notes)
	}

	sb.WriteString("\nUPCOMING SCHEDULE:\n")
	for _, e := range upcoming {
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", e.Date, e.Title, e.Type)
	}

	sb.WriteString(`
INSTRUCTIONS:
- Be concise, motivating, and direct.
- Focus on performance, recovery, and mindset.
- Do not give medical advice; refer to a physio/doctor for injuries.
- Use the provided context to tailor your advice.
- Tone: Professional, intense but supportive, "Personal HQ" feel.
`)

	fmt.Fprintf(&sb, "\n\nAthlete asks: %q", message)
	return sb.String()
}

func programPrompt(profile athlete.Profile) string {
	return fmt.Sprintf(`Create a 7-day high-performance training schedule and a brief dietary strategy for:
Athlete: %s, Sport: %s, Phase: %s, Injuries: %s.

The schedule should represent the next 7 days (Day 1 = tomorrow).
The dietary strategy should be 2-3 concise sentences summarizing their nutrition focus for this week.
`, profile.Name, profile.Sport, profile.TrainingPhase, profile.Injuries)
}

// WelcomeMessage opens every chat transcript.
func WelcomeMessage(profile *athlete.Profile) string {
	firstName := ""
	if profile != nil {
		if fields := strings.Fields(profile.Name); len(fields) > 0 {
			firstName = fields[0]
		}
	}
	return fmt.Sprintf(
		"Welcome to your personal HQ, %s. I've analyzed your profile and schedule. How can I help you optimize your performance today?",
		firstName,
	)
}
