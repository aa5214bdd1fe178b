package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	terminalWidthBackup = 80
	minBarWidth         = 10
	maxBarWidth         = 40
	barFilled           = "#"
	barEmpty            = "-"
)

// Render prints the report as an aligned table followed by a summary line.
// A totalWidth of 0 uses the terminal width.
func Render(w io.Writer, r Report, totalWidth int) error {
	if len(r.Sets) == 0 {
		_, err := fmt.Fprintln(w, "No sets found.")
		return err
	}
	if totalWidth <= 0 {
		totalWidth = terminalWidth()
	}

	headers := []string{"ID", "Set", "Cards", "Learned"}
	rows := make([][]string, 0, len(r.Sets))
	for _, s := range r.Sets {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			strconv.Itoa(s.CardCount),
			strconv.Itoa(s.LearnedCount),
		})
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true}
	barWidth := barWidthFor(totalWidth, formatTable(headers, rows, rightAlign)[0])
	for i, s := range r.Sets {
		rows[i] = append(rows[i], ProgressBar(s.Ratio, barWidth)+" "+formatPercent(s.Ratio))
	}
	headers = append(headers, "Progress")

	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Sets: %d (%d finished)  Cards: %d  Learned: %d (%s)\n",
		len(r.Sets), r.Finished(), r.TotalCards, r.TotalLearned, strings.TrimSpace(formatPercent(r.Ratio())))
	return err
}

// ProgressBar renders ratio as a bracketed bar of width cells.
func ProgressBar(ratio float64, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(math.Round(ratio * float64(width)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled) + "]"
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%3.0f%%", ratio*100)
}

// barWidthFor fits the bar into what the leading columns leave of totalWidth.
func barWidthFor(totalWidth int, leading string) int {
	// space, brackets, space, percent
	width := totalWidth - displayWidth(leading) - 1 - 2 - 1 - 4
	if width < minBarWidth {
		return minBarWidth
	}
	if width > maxBarWidth {
		return maxBarWidth
	}
	return width
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
