package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyson0807/isolog/internal/notify"
	"github.com/hyson0807/isolog/internal/services"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	takenStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	scheduledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	todayStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// StatusCmd prints the stored state without starting reminders.
type StatusCmd struct {
	Date  string `help:"Show one day (YYYY-MM-DD)."`
	Month string `help:"Render a month grid (YYYY-MM, or 'current')."`
}

func (cmd *StatusCmd) Run(appCtx *Context) error {
	rt, err := openRuntime(context.Background(), appCtx, notify.LogDispatcher{})
	if err != nil {
		return err
	}
	defer rt.Close()

	return cmd.render(appCtx.Out, rt.engine)
}

func (cmd *StatusCmd) render(out io.Writer, engine *services.Engine) error {
	location := engine.Location()
	today := engine.Today()
	schedule := engine.Schedule()

	fmt.Fprintln(out, headerStyle.Render("isolog"))
	fmt.Fprintf(out, "today:     %s\n", services.DayKey(today))
	if schedule.Active() {
		fmt.Fprintf(out, "cadence:   %s (since %s)\n", schedule.Cadence(), schedule.ReferenceDate)
	} else {
		fmt.Fprintln(out, "cadence:   none")
	}

	upcoming := make([]string, 0)
	for _, day := range engine.UpcomingDoseDays() {
		upcoming = append(upcoming, services.DayKey(day))
	}
	if len(upcoming) == 0 {
		fmt.Fprintln(out, "upcoming:  -")
	} else {
		fmt.Fprintf(out, "upcoming:  %s\n", strings.Join(upcoming, ", "))
	}

	summary := engine.Summary()
	fmt.Fprintf(out, "taken:     %d of %d dose days, streak %d\n", summary.TakenDoseDays, summary.DoseDaysSinceReference, summary.Streak)

	preferences := engine.Preferences()
	reminders := "off"
	if preferences.Enabled {
		reminders = fmt.Sprintf("dose %02d:%02d", preferences.ReminderTime.Hour, preferences.ReminderTime.Minute)
		if preferences.SkinReminderEnabled {
			reminders += fmt.Sprintf(", skin %02d:%02d", preferences.SkinReminderTime.Hour, preferences.SkinReminderTime.Minute)
		}
	}
	fmt.Fprintf(out, "reminders: %s\n", reminders)

	if conflicts := engine.ConflictDates(); len(conflicts) > 0 {
		fmt.Fprintf(out, "conflicts: %s\n", strings.Join(conflicts, ", "))
	}

	if cmd.Date != "" {
		day, err := services.ParseDay(cmd.Date, location)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", cmd.Date, err)
		}
		fmt.Fprintln(out)
		renderDay(out, engine.DayDetail(day))
	}

	if cmd.Month != "" {
		month, err := parseMonthFlag(cmd.Month, today, location)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		renderMonth(out, month, engine.MonthDayViews(month))
	}
	return nil
}

func parseMonthFlag(raw string, today time.Time, location *time.Location) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "current") {
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, location), nil
	}
	parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --month %q: %w", raw, err)
	}
	return parsed, nil
}

func renderDay(out io.Writer, detail services.DayDetail) {
	fmt.Fprintln(out, headerStyle.Render(detail.DateString))
	fmt.Fprintf(out, "  status:   %s\n", detail.Status)
	fmt.Fprintf(out, "  dose day: %t\n", detail.IsDoseDay)
	fmt.Fprintf(out, "  editable: %t\n", detail.CanEdit)
	if detail.IsConflict {
		fmt.Fprintln(out, "  conflict: yes")
	}
	switch distance := detail.Warning.Distance(); {
	case distance == 0:
		fmt.Fprintf(out, "  warning:  %s (conflict day)\n", detail.Warning)
	case distance > 0:
		fmt.Fprintf(out, "  warning:  %s (%d days from a conflict)\n", detail.Warning, distance)
	}
	if record := detail.SkinRecord; record != nil {
		fmt.Fprintf(out, "  skin:     acne %d, dryness %d\n", record.Acne, record.Dryness)
		if record.Note != "" {
			fmt.Fprintf(out, "  note:     %s\n", record.Note)
		}
	}
}

func renderMonth(out io.Writer, month time.Time, days []services.DayView) {
	fmt.Fprintln(out, headerStyle.Render(month.Format("January 2006")))
	fmt.Fprintln(out, mutedStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa"))

	var row strings.Builder
	for index, day := range days {
		row.WriteString(dayCell(day))
		if index%7 == 6 {
			fmt.Fprintln(out, strings.TrimRight(row.String(), " "))
			row.Reset()
		}
	}
	fmt.Fprintln(out, mutedStyle.Render("* taken  ! missed  + dose day  ~ conflict warning"))
}

func dayCell(day services.DayView) string {
	marker := " "
	switch {
	case day.Status == services.DayStatusTaken:
		marker = "*"
	case day.Status == services.DayStatusMissed:
		marker = "!"
	case day.IsDoseDay && day.InMonth:
		marker = "+"
	case day.Warning != services.WarningNone && day.InMonth:
		marker = "~"
	}
	cell := fmt.Sprintf("%3d%s", day.Day, marker)

	switch {
	case !day.InMonth:
		return mutedStyle.Render(fmt.Sprintf("%3s ", "."))
	case day.Status == services.DayStatusTaken:
		return takenStyle.Render(cell)
	case day.Status == services.DayStatusMissed:
		return missedStyle.Render(cell)
	case day.Status == services.DayStatusToday:
		return todayStyle.Render(cell)
	case day.Status == services.DayStatusScheduled:
		return scheduledStyle.Render(cell)
	default:
		return cell
	}
}
